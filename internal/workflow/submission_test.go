package workflow

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"mypalette/internal/domain/access"
	"mypalette/internal/domain/opencalls"
	"mypalette/internal/domain/pricing"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/domain/users"
	"mypalette/internal/infra/logger"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func liveCall(id uint) opencalls.OpenCall {
	return opencalls.OpenCall{
		ID:            id,
		Title:         "Nocturnes",
		Status:        opencalls.StatusLive,
		Deadline:      fixedNow.Add(72 * time.Hour),
		SubmissionFee: 2500,
		Currency:      "usd",
		NumWinners:    2,
	}
}

func validData() submissions.Data {
	return submissions.Data{
		Title:       "Lantern Field",
		Description: "Gouache night study",
		Medium:      "Gouache",
		ImageURLs:   []string{"https://cdn.example.com/lantern.jpg"},
	}
}

func artist(id uint) access.Session {
	return access.ClaimsSession{UserID: id, UserRole: users.RoleArtist}
}

type harness struct {
	wf       *Workflow
	store    *memStore
	payments *fakePayments
	events   *fakeEvents
	logs     *bytes.Buffer
}

func newHarness(calls ...opencalls.OpenCall) *harness {
	h := &harness{
		store:    newMemStore(calls...),
		payments: &fakePayments{},
		events:   &fakeEvents{},
		logs:     &bytes.Buffer{},
	}
	h.wf = New(Deps{
		Policy:      pricing.DefaultPolicy(),
		Calls:       h.store,
		Submissions: h.store,
		Payments:    h.payments,
		Events:      h.events,
		Log:         slog.New(slog.NewTextHandler(h.logs, nil)),
	})
	h.wf.clock = func() time.Time { return fixedNow }
	h.wf.cleanupBackoff = 0
	return h
}

func TestFirstSubmissionIsFree(t *testing.T) {
	h := newHarness(liveCall(1))

	out := h.wf.Submit(context.Background(), artist(10), 1, validData())
	if !out.OK() || out.State != StateFreeComplete {
		t.Fatalf("expected free completion, got %+v", out)
	}
	row, ok := h.store.row(out.Submission.ID)
	if !ok {
		t.Fatal("expected row to be committed")
	}
	if row.PaymentStatus != submissions.PaymentFree || row.IsSelected || row.AmountMinor != 0 {
		t.Fatalf("unexpected row %+v", row)
	}
	if len(h.payments.requests) != 0 {
		t.Fatal("payment collaborator must not be called for free submissions")
	}
	if len(h.events.keys) != 1 || h.events.keys[0] != "submission.created" {
		t.Fatalf("expected submission.created event, got %v", h.events.keys)
	}
}

func TestCapBlocksSeventhAttemptBeforeInsert(t *testing.T) {
	h := newHarness(liveCall(1))
	ctx := context.Background()

	first := h.wf.Submit(ctx, artist(10), 1, validData())
	if first.State != StateFreeComplete {
		t.Fatalf("expected free first submission, got %+v", first)
	}
	for i := 0; i < 5; i++ {
		out := h.wf.Submit(ctx, artist(10), 1, validData())
		if out.State != StatePaidComplete || out.Decision.AmountDue != 200 {
			t.Fatalf("submission %d: expected paid 2.00, got %+v", i+2, out)
		}
		if out.ClientSecret != "pi_test_secret" {
			t.Fatalf("expected client secret, got %q", out.ClientSecret)
		}
	}

	d, err := h.wf.Eligibility(ctx, artist(10), 1)
	if err != nil || d.CanSubmit {
		t.Fatalf("expected canSubmit=false at 6, got %+v %v", d, err)
	}

	inserts := h.store.inserts
	out := h.wf.Submit(ctx, artist(10), 1, validData())
	if out.State != StateBlocked || !errors.Is(out.Err, ErrCapExceeded) {
		t.Fatalf("expected blocked cap outcome, got %+v", out)
	}
	if h.store.inserts != inserts {
		t.Fatal("no row may be written for a blocked attempt")
	}
	if len(h.payments.requests) != 5 {
		t.Fatalf("expected 5 payment intents, got %d", len(h.payments.requests))
	}
}

func TestPriorPaidArtistPaysBaseFee(t *testing.T) {
	h := newHarness(liveCall(1), liveCall(2))
	h.store.seed(10, 1, submissions.PaymentPaid)

	out := h.wf.Submit(context.Background(), artist(10), 2, validData())
	if out.State != StatePaidComplete || out.Decision.IsFree || out.Decision.AmountDue != 200 {
		t.Fatalf("expected 2.00 paid outcome, got %+v", out)
	}
	if len(h.payments.requests) != 1 {
		t.Fatalf("expected payment collaborator to be invoked once, got %d", len(h.payments.requests))
	}
	req := h.payments.requests[0]
	if req.Amount != 200 || req.OpenCallID != 2 || req.SubmissionID != out.Submission.ID || req.Currency != "usd" {
		t.Fatalf("unexpected payment request %+v", req)
	}
	row, _ := h.store.row(out.Submission.ID)
	if row.PaymentStatus != submissions.PaymentPending {
		t.Fatalf("paid submissions start pending, got %s", row.PaymentStatus)
	}
	if row.PaymentIntentID == nil || *row.PaymentIntentID != "pi_test" {
		t.Fatal("expected payment intent id to be recorded")
	}
}

func TestCallFeeSourceChargesAdvertisedFee(t *testing.T) {
	h := newHarness(liveCall(1))
	h.wf.policy.FeeSource = pricing.FeeSourceCall
	h.store.seed(10, 99, submissions.PaymentPaid)

	out := h.wf.Submit(context.Background(), artist(10), 1, validData())
	if out.Decision.AmountDue != 2500 || h.payments.requests[0].Amount != 2500 {
		t.Fatalf("expected the call's 25.00 fee, got %+v", out.Decision)
	}
}

func TestPaymentFailureDeletesRowAndFreesSlot(t *testing.T) {
	h := newHarness(liveCall(2))
	h.store.seed(10, 1, submissions.PaymentPaid)
	h.payments.err = errors.New("card_declined")
	ctx := context.Background()

	out := h.wf.Submit(ctx, artist(10), 2, validData())
	if out.State != StatePaymentFailed {
		t.Fatalf("expected payment failure, got %+v", out)
	}
	var perr *PaymentIntentError
	if !errors.As(out.Err, &perr) || perr.Orphaned {
		t.Fatalf("expected non-orphaned PaymentIntentError, got %v", out.Err)
	}
	if _, ok := h.store.row(perr.SubmissionID); ok {
		t.Fatal("failed attempt must be deleted")
	}

	if n, _ := h.store.CountForCall(ctx, 10, 2); n != 0 {
		t.Fatalf("failed attempt must not count against the cap, got %d", n)
	}

	h.payments.err = nil
	retry := h.wf.Submit(ctx, artist(10), 2, validData())
	if retry.State != StatePaidComplete {
		t.Fatalf("expected retry to succeed, got %+v", retry)
	}
	if n, _ := h.store.CountForCall(ctx, 10, 2); n != 1 {
		t.Fatalf("expected exactly one committed row, got %d", n)
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	h := newHarness(liveCall(1))
	h.store.seed(10, 1, submissions.PaymentPending)
	ctx := context.Background()

	if err := h.wf.Cleanup(ctx, 1); err != nil {
		t.Fatalf("first cleanup: %v", err)
	}
	if err := h.wf.Cleanup(ctx, 1); err != nil {
		t.Fatalf("second cleanup must be a no-op, got %v", err)
	}
	if _, ok := h.store.row(1); ok {
		t.Fatal("expected zero rows for the id")
	}
}

func TestCleanupFailureIsLoggedAsOrphan(t *testing.T) {
	h := newHarness(liveCall(2))
	h.store.seed(10, 1, submissions.PaymentPaid)
	h.payments.err = errors.New("stripe unavailable")
	h.store.deleteErr = errStoreDown

	out := h.wf.Submit(context.Background(), artist(10), 2, validData())
	var perr *PaymentIntentError
	if !errors.As(out.Err, &perr) || !perr.Orphaned {
		t.Fatalf("expected orphaned PaymentIntentError, got %v", out.Err)
	}
	if h.store.deleteHits != 3 {
		t.Fatalf("expected 3 cleanup attempts, got %d", h.store.deleteHits)
	}
	logs := h.logs.String()
	if !strings.Contains(logs, "orphaned submission row") || !strings.Contains(logs, "critical=true") {
		t.Fatalf("expected critical orphan log, got:\n%s", logs)
	}
}

func TestValidationFailureHasNoSideEffects(t *testing.T) {
	h := newHarness(liveCall(1))
	data := validData()
	data.Medium = " "
	data.ImageURLs = nil

	out := h.wf.Submit(context.Background(), artist(10), 1, data)
	if out.State != StateDrafting {
		t.Fatalf("expected to stay in drafting, got %s", out.State)
	}
	var verr *ValidationError
	if !errors.As(out.Err, &verr) || len(verr.Fields) != 2 {
		t.Fatalf("expected two field errors, got %v", out.Err)
	}
	if h.store.inserts != 0 || len(h.payments.requests) != 0 {
		t.Fatal("validation failures must not touch the store or payments")
	}
}

func TestMalformedImageURLIsAValidationError(t *testing.T) {
	h := newHarness(liveCall(1))
	data := validData()
	data.ImageURLs = []string{"javascript:alert(1)"}

	out := h.wf.Submit(context.Background(), artist(10), 1, data)
	var verr *ValidationError
	if out.State != StateDrafting || !errors.As(out.Err, &verr) || verr.Fields[0].Field != "image_urls" {
		t.Fatalf("expected image_urls validation error, got %+v", out)
	}
	if h.store.inserts != 0 {
		t.Fatal("nothing may be inserted for an invalid draft")
	}
}

func TestClosedAndMissingCallsAreBlocked(t *testing.T) {
	closed := liveCall(1)
	closed.Status = opencalls.StatusClosed
	expired := liveCall(2)
	expired.Deadline = fixedNow.Add(-time.Minute)
	h := newHarness(closed, expired)
	ctx := context.Background()

	for _, id := range []uint{1, 2} {
		out := h.wf.Submit(ctx, artist(10), id, validData())
		if out.State != StateBlocked || !errors.Is(out.Err, ErrCallClosed) {
			t.Fatalf("call %d: expected closed block, got %+v", id, out)
		}
	}
	out := h.wf.Submit(ctx, artist(10), 42, validData())
	if !errors.Is(out.Err, ErrCallNotFound) {
		t.Fatalf("expected not found, got %v", out.Err)
	}
}

func TestCapRaceLostInsideTransaction(t *testing.T) {
	h := newHarness(liveCall(1))
	// Another session commits the sixth row between pricing check and insert.
	h.wf.subs = &racingStore{memStore: h.store, artistID: 10, callID: 1}
	for i := 0; i < 5; i++ {
		h.store.seed(10, 1, submissions.PaymentPaid)
	}

	out := h.wf.Submit(context.Background(), artist(10), 1, validData())
	if out.State != StateBlocked || !errors.Is(out.Err, ErrCapExceeded) {
		t.Fatalf("expected cap block from the insert, got %+v", out)
	}
	if len(h.payments.requests) != 0 {
		t.Fatal("no payment may start when the insert is rejected")
	}
}

type racingStore struct {
	*memStore
	artistID, callID uint
}

func (r *racingStore) CreateWithinCap(ctx context.Context, sub *submissions.Submission, limit int) error {
	r.seed(r.artistID, r.callID, submissions.PaymentPaid)
	return r.memStore.CreateWithinCap(ctx, sub, limit)
}

// freeSlotRacer lets another tab commit the artist's free submission on a
// different call between the pricing check and the insert.
type freeSlotRacer struct {
	*memStore
	artistID, otherCallID uint
	raced                 bool
}

func (r *freeSlotRacer) CreateWithinCap(ctx context.Context, sub *submissions.Submission, limit int) error {
	if !r.raced {
		r.raced = true
		r.seed(r.artistID, r.otherCallID, submissions.PaymentFree)
	}
	return r.memStore.CreateWithinCap(ctx, sub, limit)
}

func TestLostFreeSlotRaceIsRepricedAsPaid(t *testing.T) {
	h := newHarness(liveCall(1), liveCall(2))
	racer := &freeSlotRacer{memStore: h.store, artistID: 10, otherCallID: 2}
	h.wf.subs = racer

	out := h.wf.Submit(context.Background(), artist(10), 1, validData())
	if out.State != StatePaidComplete || out.Decision.IsFree || out.Decision.AmountDue != 200 {
		t.Fatalf("expected paid outcome after losing the free slot, got %+v", out)
	}
	row, ok := h.store.row(out.Submission.ID)
	if !ok || row.PaymentStatus != submissions.PaymentPending || row.AmountMinor != 200 {
		t.Fatalf("expected pending 2.00 row, got %+v", row)
	}
	if len(h.payments.requests) != 1 || h.payments.requests[0].Amount != 200 {
		t.Fatalf("expected one payment request for 2.00, got %+v", h.payments.requests)
	}

	free := 0
	for _, r := range h.store.rows {
		if r.ArtistID == 10 && r.PaymentStatus == submissions.PaymentFree {
			free++
		}
	}
	if free != 1 {
		t.Fatalf("expected exactly one free row platform-wide, got %d", free)
	}
}

func TestSubmitLogsThroughRequestLogger(t *testing.T) {
	h := newHarness(liveCall(1))
	var reqLogs bytes.Buffer
	ctx := logger.With(context.Background(), slog.New(slog.NewTextHandler(&reqLogs, nil)).With("request_id", "req-9"))

	h.wf.Submit(ctx, artist(10), 1, validData())

	if !strings.Contains(reqLogs.String(), "free submission created") || !strings.Contains(reqLogs.String(), "request_id=req-9") {
		t.Fatalf("expected workflow lines on the request logger, got:\n%s", reqLogs.String())
	}
	if h.logs.Len() != 0 {
		t.Fatalf("fallback logger should stay quiet, got:\n%s", h.logs.String())
	}
}

func TestPersistenceErrorKeepsDraft(t *testing.T) {
	h := newHarness(liveCall(1))
	h.store.createErr = errStoreDown

	out := h.wf.Submit(context.Background(), artist(10), 1, validData())
	var perr *PersistenceError
	if out.State != StateDrafting || !errors.As(out.Err, &perr) {
		t.Fatalf("expected persistence error in drafting, got %+v", out)
	}
	if !errors.Is(out.Err, errStoreDown) {
		t.Fatal("persistence error must wrap the store error")
	}
}

func TestUnauthenticatedSubmit(t *testing.T) {
	h := newHarness(liveCall(1))
	out := h.wf.Submit(context.Background(), access.Anonymous, 1, validData())
	if !errors.Is(out.Err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", out.Err)
	}
	if _, err := h.wf.Eligibility(context.Background(), access.Anonymous, 1); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated eligibility, got %v", err)
	}
}

func TestNewDefaultsLogger(t *testing.T) {
	wf := New(Deps{Policy: pricing.DefaultPolicy()})
	if wf.log == nil {
		t.Fatal("expected default logger")
	}
}

func TestWebhookFailedRowsDoNotHoldSlots(t *testing.T) {
	h := newHarness(liveCall(1))
	for i := 0; i < 5; i++ {
		h.store.seed(10, 1, submissions.PaymentPaid)
	}
	h.store.seed(10, 1, submissions.PaymentFailed)

	d, err := h.wf.Eligibility(context.Background(), artist(10), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !d.CanSubmit || d.Remaining != 0 {
		t.Fatalf("expected one slot left, got %+v", d)
	}

	out := h.wf.Submit(context.Background(), artist(10), 1, validData())
	if !out.OK() {
		t.Fatalf("expected submission to go through, got %+v", out)
	}
	if out = h.wf.Submit(context.Background(), artist(10), 1, validData()); !errors.Is(out.Err, ErrCapExceeded) {
		t.Fatalf("expected cap after the sixth live row, got %+v", out)
	}
}
