package model

import "errors"

// Caller-facing error kinds. Storage layers never return these directly;
// the service layer translates into them.
var (
	ErrNotFound         = errors.New("event not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrCapacityExceeded = errors.New("not enough seats available")
	ErrDuplicateBooking = errors.New("holder has already booked this event")
	ErrBusy             = errors.New("event is busy, retry later")
	ErrStorage          = errors.New("storage failure")
)

// ValidationError carries the reason an argument was rejected.
// It matches ErrInvalidArgument with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}
