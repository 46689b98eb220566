package curation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mypalette/internal/domain/access"
	"mypalette/internal/domain/opencalls"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/store"
)

var (
	ErrSelectionLimit           = errors.New("selection limit reached")
	ErrUnknownSubmission        = errors.New("submission does not belong to this open call")
	ErrCallAcceptingSubmissions = errors.New("open call is still accepting submissions")
	ErrForbidden                = errors.New("curation requires an admin or the call's host")
	ErrCallNotFound             = errors.New("open call not found")
)

type Store interface {
	ListForCall(ctx context.Context, openCallID uint) ([]submissions.Submission, error)
	ApplyCuration(ctx context.Context, openCallID uint, selected []uint, notes map[uint]string) error
}

type CallStore interface {
	Get(ctx context.Context, id uint) (opencalls.OpenCall, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Deps struct {
	Calls       CallStore
	Submissions Store
	Events      EventPublisher // optional
	Log         *slog.Logger
	Now         func() time.Time
}

// Engine is one curator's working selection for a closed open call.
// Submissions keep the load order: newest first.
type Engine struct {
	call       opencalls.OpenCall
	numWinners int
	subs       []submissions.Submission
	selected   map[uint]bool
	notes      map[uint]string

	store  Store
	events EventPublisher
	log    *slog.Logger
}

// Load builds an engine seeded from the persisted selection. numWinners <= 0
// uses the call's own winner count. A persisted selection larger than the
// limit is trimmed in sort order.
func Load(ctx context.Context, d Deps, sess access.Session, openCallID uint, numWinners int) (*Engine, error) {
	call, err := d.Calls.Get(ctx, openCallID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCallNotFound
		}
		return nil, err
	}
	if !mayCurate(sess, call) {
		return nil, ErrForbidden
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	if call.AcceptingSubmissions(now()) {
		return nil, ErrCallAcceptingSubmissions
	}

	subs, err := d.Submissions.ListForCall(ctx, openCallID)
	if err != nil {
		return nil, err
	}

	if numWinners <= 0 {
		numWinners = call.NumWinners
	}
	if numWinners <= 0 {
		numWinners = 1
	}

	l := d.Log
	if l == nil {
		l = slog.Default()
	}
	e := &Engine{
		call:       call,
		numWinners: numWinners,
		subs:       subs,
		selected:   make(map[uint]bool, numWinners),
		notes:      make(map[uint]string, len(subs)),
		store:      d.Submissions,
		events:     d.Events,
		log:        l.With("open_call_id", openCallID),
	}
	for _, s := range subs {
		if s.CuratorNotes != "" {
			e.notes[s.ID] = s.CuratorNotes
		}
		if s.IsSelected && len(e.selected) < numWinners {
			e.selected[s.ID] = true
		}
	}
	return e, nil
}

func mayCurate(sess access.Session, call opencalls.OpenCall) bool {
	if access.IsAdmin(sess) {
		return true
	}
	uid, ok := sess.CurrentUserID()
	return ok && call.HostID != nil && *call.HostID == uid
}

func (e *Engine) Call() opencalls.OpenCall { return e.call }
func (e *Engine) NumWinners() int          { return e.numWinners }

func (e *Engine) Submissions() []submissions.Submission { return e.subs }

func (e *Engine) IsSelected(id uint) bool { return e.selected[id] }

func (e *Engine) Note(id uint) string { return e.notes[id] }

// Selected returns the selected ids in sort order.
func (e *Engine) Selected() []uint {
	out := make([]uint, 0, len(e.selected))
	for _, s := range e.subs {
		if e.selected[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}

func (e *Engine) has(id uint) bool {
	for _, s := range e.subs {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Toggle removes a selected id, or adds it while under the winner limit.
// A rejected add leaves the selection unchanged.
func (e *Engine) Toggle(id uint) error {
	if !e.has(id) {
		return ErrUnknownSubmission
	}
	if e.selected[id] {
		delete(e.selected, id)
		return nil
	}
	if len(e.selected) >= e.numWinners {
		return ErrSelectionLimit
	}
	e.selected[id] = true
	return nil
}

// SelectTopN replaces the selection with the first numWinners submissions.
func (e *Engine) SelectTopN() {
	e.selected = make(map[uint]bool, e.numWinners)
	for _, s := range e.subs {
		if len(e.selected) >= e.numWinners {
			break
		}
		e.selected[s.ID] = true
	}
}

func (e *Engine) ClearSelection() {
	e.selected = make(map[uint]bool, e.numWinners)
}

func (e *Engine) ClearNotes() {
	e.notes = make(map[uint]string, len(e.subs))
}

func (e *Engine) SetNote(id uint, note string) error {
	if !e.has(id) {
		return ErrUnknownSubmission
	}
	note = strings.TrimSpace(note)
	if note == "" {
		delete(e.notes, id)
		return nil
	}
	e.notes[id] = note
	return nil
}

// Save writes is_selected and curator_notes for every submission of the call.
func (e *Engine) Save(ctx context.Context) error {
	selected := e.Selected()
	if err := e.store.ApplyCuration(ctx, e.call.ID, selected, e.notes); err != nil {
		e.log.Error("curation save failed", "error", err)
		return err
	}
	for i := range e.subs {
		e.subs[i].IsSelected = e.selected[e.subs[i].ID]
		e.subs[i].CuratorNotes = e.notes[e.subs[i].ID]
	}
	e.log.Info("curation saved", "selected", len(selected), "submissions", len(e.subs))

	if e.events != nil {
		ev := Saved{OpenCallID: e.call.ID, SelectedIDs: selected, NumWinners: e.numWinners}
		if err := e.events.Publish(ctx, "curation.saved", ev); err != nil {
			e.log.Warn("publish curation.saved failed", "error", err)
		}
	}
	return nil
}

type Saved struct {
	OpenCallID  uint   `json:"open_call_id"`
	SelectedIDs []uint `json:"selected_ids"`
	NumWinners  int    `json:"num_winners"`
}

// ExportWinnerContacts lists "Display Name (handle)" for each selected
// submission, one per line, in sort order.
func (e *Engine) ExportWinnerContacts() string {
	var b strings.Builder
	for _, s := range e.subs {
		if !e.selected[s.ID] {
			continue
		}
		if s.Artist == nil {
			fmt.Fprintf(&b, "artist #%d\n", s.ArtistID)
			continue
		}
		fmt.Fprintf(&b, "%s (%s)\n", s.Artist.DisplayName(), s.Artist.ContactHandle())
	}
	return b.String()
}
