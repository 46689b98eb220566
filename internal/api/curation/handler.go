package curationapi

import (
	"errors"
	"net/http"
	"strconv"

	"mypalette/internal/app/http/middleware"
	"mypalette/internal/curation"
	"mypalette/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

type Handler struct {
	deps   curation.Deps
	policy *bluemonday.Policy
}

func NewHandler(d curation.Deps) *Handler {
	return &Handler{deps: d, policy: bluemonday.StrictPolicy()}
}

type entryDTO struct {
	SubmissionID  uint        `json:"submission_id"`
	ArtistID      uint        `json:"artist_id"`
	ArtistName    string      `json:"artist_name"`
	ContactHandle string      `json:"contact_handle"`
	SubmittedAt   string      `json:"submitted_at"`
	PaymentStatus string      `json:"payment_status"`
	Data          interface{} `json:"submission_data"`
	Selected      bool        `json:"selected"`
	Note          string      `json:"note,omitempty"`
}

func view(e *curation.Engine) gin.H {
	entries := make([]entryDTO, 0, len(e.Submissions()))
	for _, s := range e.Submissions() {
		d := entryDTO{
			SubmissionID:  s.ID,
			ArtistID:      s.ArtistID,
			SubmittedAt:   s.SubmittedAt.UTC().Format("2006-01-02T15:04:05Z"),
			PaymentStatus: string(s.PaymentStatus),
			Data:          s.Data.Data(),
			Selected:      e.IsSelected(s.ID),
			Note:          e.Note(s.ID),
		}
		if s.Artist != nil {
			d.ArtistName = s.Artist.DisplayName()
			d.ContactHandle = s.Artist.ContactHandle()
		}
		entries = append(entries, d)
	}
	return gin.H{
		"open_call_id": e.Call().ID,
		"title":        e.Call().Title,
		"num_winners":  e.NumWinners(),
		"selected":     e.Selected(),
		"submissions":  entries,
	}
}

func (h *Handler) load(c *gin.Context, numWinners int) (*curation.Engine, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return nil, false
	}
	d := h.deps
	d.Log = logger.FromGin(c)
	e, err := curation.Load(c.Request.Context(), d, middleware.Session(c), uint(id), numWinners)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return e, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, curation.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, curation.ErrCallNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Open call not found"})
	case errors.Is(err, curation.ErrCallAcceptingSubmissions):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, curation.ErrSelectionLimit):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, curation.ErrUnknownSubmission):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("curation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Curation failed"})
	}
}

// GET /admin/open-calls/:id/curation?num_winners=
func (h *Handler) Get(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("num_winners"))
	e, ok := h.load(c, n)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, view(e))
}

type saveRequest struct {
	NumWinners int             `json:"num_winners"`
	Selected   []uint          `json:"selected"`
	Notes      map[uint]string `json:"notes"`
}

// PUT /admin/open-calls/:id/curation replaces the selection and notes: a
// submission missing from either field ends up unselected with no note. The
// selection is applied as toggles in order, so the first id past the winner
// limit rejects the whole request and nothing is saved.
func (h *Handler) Save(c *gin.Context) {
	var body saveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed curation"})
		return
	}
	e, ok := h.load(c, body.NumWinners)
	if !ok {
		return
	}

	e.ClearSelection()
	seen := make(map[uint]bool, len(body.Selected))
	for _, id := range body.Selected {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := e.Toggle(id); err != nil {
			writeError(c, err)
			return
		}
	}
	e.ClearNotes()
	for id, note := range body.Notes {
		if err := e.SetNote(id, middleware.StripMarkup(h.policy, note)); err != nil {
			writeError(c, err)
			return
		}
	}

	if err := e.Save(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(e))
}

// POST /admin/open-calls/:id/curation/select-top
func (h *Handler) SelectTop(c *gin.Context) {
	var body struct {
		NumWinners int `json:"num_winners"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed request"})
			return
		}
	}
	e, ok := h.load(c, body.NumWinners)
	if !ok {
		return
	}
	e.SelectTopN()
	if err := e.Save(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(e))
}

// GET /admin/open-calls/:id/curation/export
func (h *Handler) Export(c *gin.Context) {
	n, _ := strconv.Atoi(c.Query("num_winners"))
	e, ok := h.load(c, n)
	if !ok {
		return
	}
	c.Header("Content-Disposition", "attachment; filename=winners-"+c.Param("id")+".txt")
	c.String(http.StatusOK, e.ExportWinnerContacts())
}
