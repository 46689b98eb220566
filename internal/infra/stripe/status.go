package stripe

import (
	"strings"

	"mypalette/internal/domain/submissions"
)

// StatusForEvent maps a PaymentIntent webhook event type onto the submission
// payment status it settles. ok is false for events we ignore.
func StatusForEvent(eventType string) (submissions.PaymentStatus, bool) {
	switch strings.TrimSpace(eventType) {
	case "payment_intent.succeeded":
		return submissions.PaymentPaid, true
	case "payment_intent.payment_failed", "payment_intent.canceled":
		return submissions.PaymentFailed, true
	case "charge.refunded":
		return submissions.PaymentRefunded, true
	default:
		return "", false
	}
}
