package stripewebhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mypalette/internal/domain/submissions"
	"mypalette/internal/infra/events"
	"mypalette/internal/infra/logger"
	stripeinfra "mypalette/internal/infra/stripe"
	"mypalette/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

type Store interface {
	AdvancePayment(ctx context.Context, intentID string, submissionID uint, to submissions.PaymentStatus) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Handler struct {
	store  Store
	events EventPublisher
	secret string
}

func NewHandler(s Store, e EventPublisher, endpointSecret string) *Handler {
	return &Handler{store: s, events: e, secret: endpointSecret}
}

type PaymentSettled struct {
	SubmissionID    uint   `json:"submission_id,omitempty"`
	PaymentIntentID string `json:"payment_intent_id"`
	PaymentStatus   string `json:"payment_status"`
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.FromGin(c).Warn("stripe signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}
	h.handleEvent(c, event)
}

func (h *Handler) handleEvent(c *gin.Context, event stripe.Event) {
	to, ok := stripeinfra.StatusForEvent(string(event.Type))
	if !ok {
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var intentID string
	var submissionID uint
	if event.Type == "charge.refunded" {
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse charge"})
			return
		}
		if ch.PaymentIntent != nil {
			intentID = ch.PaymentIntent.ID
		}
		submissionID, _ = stripeinfra.SubmissionIDFromMetadata(ch.Metadata)
	} else {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse payment intent"})
			return
		}
		intentID = pi.ID
		submissionID, _ = stripeinfra.SubmissionIDFromMetadata(pi.Metadata)
	}

	log := logger.FromGin(c).With("event_id", event.ID, "event_type", event.Type, "payment_intent_id", intentID)
	changed, err := h.store.AdvancePayment(c.Request.Context(), intentID, submissionID, to)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Abandoned or cleaned-up submission; nothing to settle.
		log.Warn("payment event for unknown submission", "submission_id", submissionID)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	case errors.Is(err, store.ErrStaleUpdate):
		log.Warn("out-of-order payment event", "to", to)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	case err != nil:
		// 500 so Stripe retries
		log.Error("payment status update failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update submission"})
		return
	}

	if changed {
		log.Info("submission payment settled", "payment_status", to)
		if h.events != nil {
			ev := PaymentSettled{SubmissionID: submissionID, PaymentIntentID: intentID, PaymentStatus: string(to)}
			if err := h.events.Publish(c.Request.Context(), events.PaymentSettled, ev); err != nil {
				log.Warn("publish payment event failed", "error", err)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
