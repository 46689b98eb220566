package opencallsapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mypalette/internal/app/http/middleware"
	"mypalette/internal/domain/access"
	"mypalette/internal/domain/opencalls"
	"mypalette/internal/infra/logger"
	"mypalette/internal/store"

	"github.com/gin-gonic/gin"
)

type Store interface {
	Get(ctx context.Context, id uint) (opencalls.OpenCall, error)
	ListLive(ctx context.Context) ([]opencalls.OpenCall, error)
	ListAll(ctx context.Context) ([]opencalls.OpenCall, error)
	Create(ctx context.Context, call *opencalls.OpenCall) error
	Transition(ctx context.Context, id uint, to opencalls.Status) (opencalls.OpenCall, error)
	SetFeatured(ctx context.Context, id uint, featured bool) error
}

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(s Store) *Handler { return &Handler{store: s, now: time.Now} }

// GET /open-calls lists live calls, featured first.
func (h *Handler) List(c *gin.Context) {
	calls, err := h.store.ListLive(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Error("list open calls failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load open calls"})
		return
	}
	now := h.now()
	out := make([]gin.H, 0, len(calls))
	for _, call := range calls {
		out = append(out, gin.H{"open_call": call, "accepting_submissions": call.AcceptingSubmissions(now)})
	}
	c.JSON(http.StatusOK, gin.H{"open_calls": out})
}

// GET /open-calls/:id. Calls that are not live yet are only visible to
// admins and their host.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	call, err := h.store.Get(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && call.Status == opencalls.StatusPending && !canManage(middleware.Session(c), call)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Open call not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load open call"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"open_call": call, "accepting_submissions": call.AcceptingSubmissions(h.now())})
}

func canManage(s access.Session, call opencalls.OpenCall) bool {
	if access.IsAdmin(s) {
		return true
	}
	uid, ok := s.CurrentUserID()
	return ok && call.HostID != nil && *call.HostID == uid
}

type createRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Organization   string `json:"organization"`
	Deadline       string `json:"deadline"`
	SubmissionFee  int64  `json:"submission_fee"`
	Currency       string `json:"currency"`
	MaxSubmissions int    `json:"max_submissions"`
	NumWinners     int    `json:"num_winners"`
}

// POST /open-calls creates a pending call owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	sess := middleware.Session(c)
	uid, ok := sess.CurrentUserID()
	if !ok || !access.CanHost(sess) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only hosts can create open calls"})
		return
	}

	var body createRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed open call"})
		return
	}
	body.Title = strings.TrimSpace(body.Title)
	if body.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	deadline, err := time.Parse(time.RFC3339, body.Deadline)
	if err != nil || !deadline.After(h.now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Deadline must be an RFC 3339 time in the future"})
		return
	}
	if body.SubmissionFee < 0 || body.NumWinners < 0 || body.MaxSubmissions < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fee and counts cannot be negative"})
		return
	}
	currency := strings.ToLower(strings.TrimSpace(body.Currency))
	if currency == "" {
		currency = "usd"
	}
	if len(currency) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Currency must be a 3-letter code"})
		return
	}
	numWinners := body.NumWinners
	if numWinners == 0 {
		numWinners = 1
	}

	call := opencalls.OpenCall{
		HostID:         &uid,
		Title:          body.Title,
		Description:    strings.TrimSpace(body.Description),
		Organization:   strings.TrimSpace(body.Organization),
		Deadline:       deadline.UTC(),
		SubmissionFee:  body.SubmissionFee,
		Currency:       currency,
		MaxSubmissions: body.MaxSubmissions,
		NumWinners:     numWinners,
	}
	if err := h.store.Create(c.Request.Context(), &call); err != nil {
		logger.FromGin(c).Error("create open call failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create open call"})
		return
	}
	logger.FromGin(c).Info("open call created", "open_call_id", call.ID, "host_id", uid)
	c.JSON(http.StatusCreated, gin.H{"open_call": call})
}

// GET /admin/open-calls
func (h *Handler) AdminList(c *gin.Context) {
	calls, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load open calls"})
		return
	}
	if calls == nil {
		calls = []opencalls.OpenCall{}
	}
	c.JSON(http.StatusOK, gin.H{"open_calls": calls})
}

// POST /admin/open-calls/:id/status {"status": "live"|"closed"}
func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed request"})
		return
	}
	to, ok := opencalls.ParseStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	call, err := h.store.Transition(c.Request.Context(), id, to)
	switch {
	case err == nil:
		logger.FromGin(c).Info("open call status changed", "open_call_id", id, "status", to)
		c.JSON(http.StatusOK, gin.H{"open_call": call})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Open call not found"})
	case errors.Is(err, opencalls.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.FromGin(c).Error("open call transition failed", "open_call_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update open call"})
	}
}

// POST /admin/open-calls/:id/feature {"featured": bool}
func (h *Handler) SetFeatured(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var body struct {
		Featured *bool `json:"featured"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Featured == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing featured flag"})
		return
	}
	err := h.store.SetFeatured(c.Request.Context(), id, *body.Featured)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"id": id, "is_featured": *body.Featured})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Open call not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update open call"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(n), true
}
