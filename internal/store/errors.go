package store

import "errors"

var (
	ErrNotFound    = errors.New("record not found")
	ErrCapReached  = errors.New("submission cap reached for open call")
	ErrCallClosed  = errors.New("open call is not accepting submissions")
	ErrStaleUpdate = errors.New("payment status transition not allowed")

	// ErrFreeSlotTaken means another row used the artist's free submission
	// after the caller priced this one as free.
	ErrFreeSlotTaken = errors.New("free submission already used")
)
