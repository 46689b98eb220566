package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mypalette/internal/domain/access"
	"mypalette/internal/domain/opencalls"
	"mypalette/internal/domain/pricing"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/infra/logger"
	"mypalette/internal/store"

	"gorm.io/datatypes"
)

type State string

const (
	StateDrafting        State = "drafting"
	StateValidating      State = "validating"
	StatePricingCheck    State = "pricing_check"
	StatePersisting      State = "persisting"
	StateBlocked         State = "blocked"
	StateFreeComplete    State = "free_complete"
	StateAwaitingPayment State = "awaiting_payment"
	StatePaidComplete    State = "paid_complete"
	StatePaymentFailed   State = "payment_failed"
)

type SubmissionStore interface {
	HasPriorPaidSubmission(ctx context.Context, artistID uint) (bool, error)
	CountForCall(ctx context.Context, artistID, openCallID uint) (int, error)
	CreateWithinCap(ctx context.Context, sub *submissions.Submission, limit int) error
	Delete(ctx context.Context, id uint) error
	SetPaymentIntent(ctx context.Context, id uint, intentID string) error
}

type OpenCallStore interface {
	Get(ctx context.Context, id uint) (opencalls.OpenCall, error)
}

type PaymentRequest struct {
	OpenCallID     uint
	SubmissionID   uint
	ArtistID       uint
	SubmissionData submissions.Data
	Amount         pricing.Money
	Currency       string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentIntents is the external payment collaborator.
type PaymentIntents interface {
	Create(ctx context.Context, req PaymentRequest) (PaymentIntent, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Deps struct {
	Policy      pricing.Policy
	Calls       OpenCallStore
	Submissions SubmissionStore
	Payments    PaymentIntents
	Events      EventPublisher // optional
	Log         *slog.Logger
}

// Workflow creates submissions, honoring the pricing policy, and hands paid
// ones to the payment collaborator.
type Workflow struct {
	policy   pricing.Policy
	calls    OpenCallStore
	subs     SubmissionStore
	payments PaymentIntents
	events   EventPublisher
	log      *slog.Logger

	clock           func() time.Time
	cleanupAttempts int
	cleanupBackoff  time.Duration
}

func New(d Deps) *Workflow {
	l := d.Log
	if l == nil {
		l = slog.Default()
	}
	return &Workflow{
		policy:          d.Policy,
		calls:           d.Calls,
		subs:            d.Submissions,
		payments:        d.Payments,
		events:          d.Events,
		log:             l,
		clock:           time.Now,
		cleanupAttempts: 3,
		cleanupBackoff:  200 * time.Millisecond,
	}
}

// Outcome is what the caller sees for one attempt. Err is nil only for
// StateFreeComplete and StatePaidComplete.
type Outcome struct {
	State        State
	Submission   *submissions.Submission
	Decision     pricing.Decision
	ClientSecret string
	Err          error
}

func (o Outcome) OK() bool {
	return o.Err == nil && (o.State == StateFreeComplete || o.State == StatePaidComplete)
}

// Eligibility runs the pricing check only.
func (w *Workflow) Eligibility(ctx context.Context, sess access.Session, openCallID uint) (pricing.Decision, error) {
	artistID, ok := sess.CurrentUserID()
	if !ok {
		return pricing.Decision{}, ErrUnauthenticated
	}
	_, d, err := w.pricingCheck(ctx, artistID, openCallID)
	return d, err
}

func (w *Workflow) Submit(ctx context.Context, sess access.Session, openCallID uint, data submissions.Data) Outcome {
	artistID, ok := sess.CurrentUserID()
	if !ok {
		return Outcome{State: StateDrafting, Err: ErrUnauthenticated}
	}
	log := w.logFor(ctx).With("artist_id", artistID, "open_call_id", openCallID)

	// Validating
	if fields := data.Validate(); len(fields) > 0 {
		return Outcome{State: StateDrafting, Err: &ValidationError{Fields: fields}}
	}
	data = data.Normalized()

	// PricingCheck
	call, decision, err := w.pricingCheck(ctx, artistID, openCallID)
	if err != nil {
		return w.blockedOrDrafting(log, decision, err)
	}
	if !decision.CanSubmit {
		log.Info("submission blocked at cap")
		return Outcome{State: StateBlocked, Decision: decision, Err: ErrCapExceeded}
	}

	// Persisting
	sub := w.newSubmission(openCallID, call, artistID, data, decision)
	err = w.subs.CreateWithinCap(ctx, sub, w.policy.Cap())
	if errors.Is(err, store.ErrFreeSlotTaken) {
		// Another submission used the free slot after the pricing check.
		count := w.policy.Cap() - decision.Remaining - 1
		decision = w.policy.Evaluate(true, count, w.policy.BaseFee(call))
		log.Info("free slot taken concurrently, repriced as paid", "amount", decision.AmountDue.String())
		sub = w.newSubmission(openCallID, call, artistID, data, decision)
		err = w.subs.CreateWithinCap(ctx, sub, w.policy.Cap())
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCapReached):
			log.Info("submission lost cap race")
			return Outcome{State: StateBlocked, Decision: pricing.Decision{}, Err: ErrCapExceeded}
		case errors.Is(err, store.ErrCallClosed):
			return Outcome{State: StateBlocked, Decision: decision, Err: ErrCallClosed}
		case errors.Is(err, store.ErrNotFound):
			return Outcome{State: StateBlocked, Decision: decision, Err: ErrCallNotFound}
		}
		log.Error("submission insert failed", "error", err)
		return Outcome{State: StateDrafting, Decision: decision, Err: &PersistenceError{Op: "create submission", Err: err}}
	}
	log = log.With("submission_id", sub.ID)

	if decision.IsFree {
		log.Info("free submission created")
		w.publishCreated(ctx, sub)
		return Outcome{State: StateFreeComplete, Submission: sub, Decision: decision}
	}

	// AwaitingPayment
	intent, err := w.payments.Create(ctx, PaymentRequest{
		OpenCallID:     openCallID,
		SubmissionID:   sub.ID,
		ArtistID:       artistID,
		SubmissionData: data,
		Amount:         decision.AmountDue,
		Currency:       sub.Currency,
	})
	if err != nil {
		log.Warn("payment intent failed, removing submission", "error", err)
		orphaned := w.Cleanup(ctx, sub.ID) != nil
		return Outcome{
			State:    StatePaymentFailed,
			Decision: decision,
			Err:      &PaymentIntentError{SubmissionID: sub.ID, Orphaned: orphaned, Err: err},
		}
	}

	if intent.ID != "" {
		// The webhook can still resolve the row through intent metadata.
		if err := w.subs.SetPaymentIntent(ctx, sub.ID, intent.ID); err != nil {
			log.Warn("could not record payment intent id", "intent_id", intent.ID, "error", err)
		} else {
			sub.PaymentIntentID = &intent.ID
		}
	}

	log.Info("paid submission awaiting payment", "amount", decision.AmountDue.String())
	w.publishCreated(ctx, sub)
	return Outcome{State: StatePaidComplete, Submission: sub, Decision: decision, ClientSecret: intent.ClientSecret}
}

func (w *Workflow) newSubmission(openCallID uint, call opencalls.OpenCall, artistID uint, data submissions.Data, d pricing.Decision) *submissions.Submission {
	sub := &submissions.Submission{
		OpenCallID:    openCallID,
		ArtistID:      artistID,
		Data:          datatypes.NewJSONType(data),
		PaymentStatus: submissions.PaymentPending,
		AmountMinor:   int64(d.AmountDue),
		Currency:      w.policy.CurrencyFor(call),
		SubmittedAt:   w.clock().UTC(),
	}
	if d.IsFree {
		sub.PaymentStatus = submissions.PaymentFree
	}
	return sub
}

// logFor prefers the request-scoped logger carried by ctx.
func (w *Workflow) logFor(ctx context.Context) *slog.Logger {
	return logger.From(ctx, w.log)
}

// Cleanup is the compensating delete for a submission whose payment never
// started. It is idempotent and retried; a final failure is logged as critical
// because the row still counts against the artist's cap.
func (w *Workflow) Cleanup(ctx context.Context, submissionID uint) error {
	ctx = context.WithoutCancel(ctx)

	attempts := w.cleanupAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(w.cleanupBackoff * time.Duration(i))
		}
		if err = w.subs.Delete(ctx, submissionID); err == nil {
			return nil
		}
		w.logFor(ctx).Warn("submission cleanup attempt failed", "submission_id", submissionID, "attempt", i+1, "error", err)
	}

	w.logFor(ctx).Error("orphaned submission row: cleanup failed after retries",
		"critical", true,
		"submission_id", submissionID,
		"error", err,
	)
	return err
}

func (w *Workflow) pricingCheck(ctx context.Context, artistID, openCallID uint) (opencalls.OpenCall, pricing.Decision, error) {
	call, err := w.calls.Get(ctx, openCallID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return call, pricing.Decision{}, ErrCallNotFound
		}
		return call, pricing.Decision{}, &PersistenceError{Op: "load open call", Err: err}
	}
	if !call.AcceptingSubmissions(w.clock()) {
		return call, pricing.Decision{}, ErrCallClosed
	}

	hasPaid, err := w.subs.HasPriorPaidSubmission(ctx, artistID)
	if err != nil {
		return call, pricing.Decision{}, &PersistenceError{Op: "check prior submissions", Err: err}
	}
	count, err := w.subs.CountForCall(ctx, artistID, openCallID)
	if err != nil {
		return call, pricing.Decision{}, &PersistenceError{Op: "count submissions", Err: err}
	}

	return call, w.policy.Evaluate(hasPaid, count, w.policy.BaseFee(call)), nil
}

func (w *Workflow) blockedOrDrafting(log *slog.Logger, d pricing.Decision, err error) Outcome {
	var perr *PersistenceError
	if errors.As(err, &perr) {
		log.Error("pricing check failed", "error", err)
		return Outcome{State: StateDrafting, Decision: d, Err: err}
	}
	return Outcome{State: StateBlocked, Decision: d, Err: err}
}

type SubmissionCreated struct {
	SubmissionID  uint   `json:"submission_id"`
	OpenCallID    uint   `json:"open_call_id"`
	ArtistID      uint   `json:"artist_id"`
	PaymentStatus string `json:"payment_status"`
	AmountMinor   int64  `json:"amount_minor"`
	Currency      string `json:"currency"`
	SubmittedAt   string `json:"submitted_at"`
}

func (w *Workflow) publishCreated(ctx context.Context, sub *submissions.Submission) {
	if w.events == nil {
		return
	}
	ev := SubmissionCreated{
		SubmissionID:  sub.ID,
		OpenCallID:    sub.OpenCallID,
		ArtistID:      sub.ArtistID,
		PaymentStatus: string(sub.PaymentStatus),
		AmountMinor:   sub.AmountMinor,
		Currency:      sub.Currency,
		SubmittedAt:   sub.SubmittedAt.Format(time.RFC3339),
	}
	if err := w.events.Publish(ctx, "submission.created", ev); err != nil {
		w.logFor(ctx).Warn("publish submission.created failed", "submission_id", sub.ID, "error", err)
	}
}
