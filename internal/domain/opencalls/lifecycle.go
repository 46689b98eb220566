package opencalls

import (
	"errors"
	"time"
)

var ErrInvalidTransition = errors.New("invalid open call status transition")

// CanTransition allows pending -> live -> closed only.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusLive
	case StatusLive:
		return to == StatusClosed
	default:
		return false
	}
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusLive, StatusClosed:
		return Status(s), true
	}
	return "", false
}

// AcceptingSubmissions is true only for a live call whose deadline has not passed.
func (c OpenCall) AcceptingSubmissions(now time.Time) bool {
	return c.Status == StatusLive && now.Before(c.Deadline)
}
