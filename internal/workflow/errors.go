package workflow

import (
	"errors"
	"fmt"
	"strings"

	"mypalette/internal/domain/submissions"
)

var (
	ErrUnauthenticated = errors.New("no signed-in artist")
	ErrCapExceeded     = errors.New("maximum submissions reached for this open call")
	ErrCallClosed      = errors.New("open call is not accepting submissions")
	ErrCallNotFound    = errors.New("open call not found")
)

// ValidationError lists missing form fields. Nothing was written.
type ValidationError struct {
	Fields []submissions.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid submission: " + strings.Join(parts, "; ")
}

// PersistenceError wraps a store failure. No row was committed, so the form
// can simply be resubmitted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// PaymentIntentError means the payment provider failed after the row was
// written. Orphaned is set when the compensating delete also failed.
type PaymentIntentError struct {
	SubmissionID uint
	Orphaned     bool
	Err          error
}

func (e *PaymentIntentError) Error() string {
	if e.Orphaned {
		return fmt.Sprintf("payment intent for submission %d failed and cleanup did not complete: %v", e.SubmissionID, e.Err)
	}
	return fmt.Sprintf("payment intent for submission %d failed: %v", e.SubmissionID, e.Err)
}

func (e *PaymentIntentError) Unwrap() error { return e.Err }
