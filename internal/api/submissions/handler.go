package submissionsapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"mypalette/internal/app/http/middleware"
	"mypalette/internal/domain/access"
	"mypalette/internal/domain/pricing"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/infra/logger"
	"mypalette/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

type Workflow interface {
	Submit(ctx context.Context, sess access.Session, openCallID uint, data submissions.Data) workflow.Outcome
	Eligibility(ctx context.Context, sess access.Session, openCallID uint) (pricing.Decision, error)
}

type Store interface {
	ListForArtist(ctx context.Context, artistID uint) ([]submissions.Submission, error)
	DeletePending(ctx context.Context, id, artistID uint) (bool, error)
}

type Handler struct {
	workflow Workflow
	store    Store
	policy   *bluemonday.Policy
}

func NewHandler(w Workflow, s Store) *Handler {
	return &Handler{workflow: w, store: s, policy: bluemonday.StrictPolicy()}
}

type submitRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Medium          string   `json:"medium"`
	Year            string   `json:"year"`
	Dimensions      string   `json:"dimensions"`
	ArtistStatement string   `json:"artist_statement"`
	ImageURLs       []string `json:"image_urls"`
	ExternalLinks   []string `json:"external_links"`
}

// data stores text fields as plain text. URLs are kept verbatim and checked
// by submissions.Data.Validate.
func (h *Handler) data(in submitRequest) submissions.Data {
	text := func(s string) string { return middleware.StripMarkup(h.policy, s) }
	return submissions.Data{
		Title:           text(in.Title),
		Description:     text(in.Description),
		Medium:          text(in.Medium),
		Year:            text(in.Year),
		Dimensions:      text(in.Dimensions),
		ArtistStatement: text(in.ArtistStatement),
		ImageURLs:       in.ImageURLs,
		ExternalLinks:   in.ExternalLinks,
	}
}

// POST /open-calls/:id/submissions
func (h *Handler) Submit(c *gin.Context) {
	callID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed submission"})
		return
	}

	out := h.workflow.Submit(c.Request.Context(), middleware.Session(c), callID, h.data(body))
	if out.OK() {
		resp := gin.H{
			"state":      out.State,
			"submission": out.Submission,
			"decision":   decisionDTO(out.Decision, out.Submission.Currency),
		}
		if out.State == workflow.StatePaidComplete {
			resp["client_secret"] = out.ClientSecret
			c.JSON(http.StatusAccepted, resp)
			return
		}
		c.JSON(http.StatusCreated, resp)
		return
	}
	writeOutcomeError(c, out)
}

func writeOutcomeError(c *gin.Context, out workflow.Outcome) {
	var verr *workflow.ValidationError
	var perr *workflow.PaymentIntentError
	switch {
	case errors.As(out.Err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "state": out.State, "fields": verr.Fields})
	case errors.Is(out.Err, workflow.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to submit"})
	case errors.Is(out.Err, workflow.ErrCallNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Open call not found"})
	case errors.Is(out.Err, workflow.ErrCapExceeded), errors.Is(out.Err, workflow.ErrCallClosed):
		c.JSON(http.StatusConflict, gin.H{"error": out.Err.Error(), "state": out.State})
	case errors.As(out.Err, &perr):
		if perr.Orphaned {
			logger.FromGin(c).Error("submission left behind after payment failure", "critical", true, "submission_id", perr.SubmissionID)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment could not be started, please try again", "state": out.State})
	default:
		logger.FromGin(c).Error("submission failed", "state", out.State, "error", out.Err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save submission, please try again", "state": out.State})
	}
}

// GET /open-calls/:id/eligibility
func (h *Handler) Eligibility(c *gin.Context) {
	callID, ok := parseID(c, "id")
	if !ok {
		return
	}
	d, err := h.workflow.Eligibility(c.Request.Context(), middleware.Session(c), callID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, decisionDTO(d, ""))
	case errors.Is(err, workflow.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign in to submit"})
	case errors.Is(err, workflow.ErrCallNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Open call not found"})
	case errors.Is(err, workflow.ErrCallClosed):
		c.JSON(http.StatusOK, gin.H{"can_submit": false, "reason": err.Error()})
	default:
		logger.FromGin(c).Error("eligibility check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not check eligibility"})
	}
}

// GET /submissions
func (h *Handler) ListMine(c *gin.Context) {
	uid, ok := middleware.Session(c).CurrentUserID()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	subs, err := h.store.ListForArtist(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load submissions"})
		return
	}
	if subs == nil {
		subs = []submissions.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

// DELETE /submissions/:id/pending abandons an unpaid submission. Repeating
// the call is harmless.
func (h *Handler) AbandonPending(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	uid, ok := middleware.Session(c).CurrentUserID()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	deleted, err := h.store.DeletePending(c.Request.Context(), id, uid)
	if err != nil {
		logger.FromGin(c).Error("abandon pending submission failed", "submission_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not remove submission"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func decisionDTO(d pricing.Decision, currency string) gin.H {
	out := gin.H{
		"can_submit":     d.CanSubmit,
		"is_free":        d.IsFree,
		"amount_due":     int64(d.AmountDue),
		"amount_display": d.AmountDue.String(),
		"remaining":      d.Remaining,
	}
	if currency != "" {
		out["currency"] = currency
	}
	return out
}

func parseID(c *gin.Context, param string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || n == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(n), true
}
