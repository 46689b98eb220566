package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mypalette/internal/workflow"

	gostripe "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/paymentintent"
)

var ErrNotConfigured = errors.New("STRIPE_SECRET_KEY not configured")

// PaymentIntents creates Stripe PaymentIntents for paid submissions.
type PaymentIntents struct {
	key string
}

func NewPaymentIntents(secretKey string) *PaymentIntents {
	return &PaymentIntents{key: secretKey}
}

func (p *PaymentIntents) Create(ctx context.Context, req workflow.PaymentRequest) (workflow.PaymentIntent, error) {
	if p.key == "" {
		return workflow.PaymentIntent{}, ErrNotConfigured
	}
	if req.Amount <= 0 {
		return workflow.PaymentIntent{}, fmt.Errorf("invalid amount %s", req.Amount)
	}
	gostripe.Key = p.key

	params := &gostripe.PaymentIntentParams{
		Amount:      gostripe.Int64(int64(req.Amount)),
		Currency:    gostripe.String(req.Currency),
		Description: gostripe.String(fmt.Sprintf("Open call #%d submission: %s", req.OpenCallID, req.SubmissionData.Title)),
		AutomaticPaymentMethods: &gostripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: gostripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("submission_id", strconv.FormatUint(uint64(req.SubmissionID), 10))
	params.AddMetadata("open_call_id", strconv.FormatUint(uint64(req.OpenCallID), 10))
	params.AddMetadata("artist_id", strconv.FormatUint(uint64(req.ArtistID), 10))
	// One intent per submission row, even if the request is retried.
	params.SetIdempotencyKey("submission-" + strconv.FormatUint(uint64(req.SubmissionID), 10))

	pi, err := paymentintent.New(params)
	if err != nil {
		return workflow.PaymentIntent{}, err
	}
	return workflow.PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// SubmissionIDFromMetadata reads back the id stored by Create.
func SubmissionIDFromMetadata(md map[string]string) (uint, bool) {
	n, err := strconv.ParseUint(md["submission_id"], 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
