package workflow

import (
	"context"
	"errors"
	"sync"

	"mypalette/internal/domain/opencalls"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/store"
)

// memStore is an in-memory SubmissionStore and OpenCallStore.
type memStore struct {
	mu      sync.Mutex
	calls   map[uint]opencalls.OpenCall
	rows    map[uint]submissions.Submission
	nextID  uint
	inserts int

	deleteErr  error
	deleteHits int
	createErr  error
}

func newMemStore(calls ...opencalls.OpenCall) *memStore {
	m := &memStore{calls: map[uint]opencalls.OpenCall{}, rows: map[uint]submissions.Submission{}}
	for _, c := range calls {
		m.calls[c.ID] = c
	}
	return m
}

func (m *memStore) Get(_ context.Context, id uint) (opencalls.OpenCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return c, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) HasPriorPaidSubmission(_ context.Context, artistID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.freeSlotUsedLocked(artistID), nil
}

func (m *memStore) freeSlotUsedLocked(artistID uint) bool {
	for _, r := range m.rows {
		if r.ArtistID != artistID {
			continue
		}
		for _, st := range submissions.FreeSlotConsumed {
			if r.PaymentStatus == st {
				return true
			}
		}
	}
	return false
}

func (m *memStore) CountForCall(_ context.Context, artistID, openCallID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(artistID, openCallID), nil
}

func (m *memStore) countLocked(artistID, openCallID uint) int {
	n := 0
	for _, r := range m.rows {
		if r.ArtistID == artistID && r.OpenCallID == openCallID && r.PaymentStatus != submissions.PaymentFailed {
			n++
		}
	}
	return n
}

func (m *memStore) CreateWithinCap(_ context.Context, sub *submissions.Submission, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	c, ok := m.calls[sub.OpenCallID]
	if !ok {
		return store.ErrNotFound
	}
	if !c.AcceptingSubmissions(sub.SubmittedAt) {
		return store.ErrCallClosed
	}
	if m.countLocked(sub.ArtistID, sub.OpenCallID) >= limit {
		return store.ErrCapReached
	}
	if sub.PaymentStatus == submissions.PaymentFree && m.freeSlotUsedLocked(sub.ArtistID) {
		return store.ErrFreeSlotTaken
	}
	m.nextID++
	sub.ID = m.nextID
	m.rows[sub.ID] = *sub
	m.inserts++
	return nil
}

func (m *memStore) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteHits++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, id)
	return nil
}

func (m *memStore) SetPaymentIntent(_ context.Context, id uint, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	r.PaymentIntentID = &intentID
	m.rows[id] = r
	return nil
}

// seed inserts a committed row directly, bypassing the cap.
func (m *memStore) seed(artistID, openCallID uint, status submissions.PaymentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows[m.nextID] = submissions.Submission{ID: m.nextID, ArtistID: artistID, OpenCallID: openCallID, PaymentStatus: status}
}

func (m *memStore) row(id uint) (submissions.Submission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	return r, ok
}

type fakePayments struct {
	requests []PaymentRequest
	err      error
}

func (f *fakePayments) Create(_ context.Context, req PaymentRequest) (PaymentIntent, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return PaymentIntent{}, f.err
	}
	return PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret"}, nil
}

type fakeEvents struct {
	keys []string
}

func (f *fakeEvents) Publish(_ context.Context, key string, _ any) error {
	f.keys = append(f.keys, key)
	return nil
}

var errStoreDown = errors.New("connection refused")
