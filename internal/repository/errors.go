package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyBooked is returned when the (holder, event) uniqueness
	// constraint rejects an insert.
	ErrAlreadyBooked = errors.New("holder already booked this event")

	// ErrLockTimeout is returned when the event row lock could not be
	// acquired before lock_timeout or the context deadline.
	ErrLockTimeout = errors.New("timed out waiting for event lock")

	// ErrConflict is returned when a transaction lost a race it cannot
	// resolve by itself: serialization failure, deadlock, or an exhausted
	// optimistic retry budget.
	ErrConflict = errors.New("concurrent update conflict")
)

// Postgres SQLSTATE codes the repository translates.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeInvalidText          = "22P02"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

// isInvalidID reports a malformed UUID. Such an id can never match a row.
func isInvalidID(err error) bool {
	return pgCode(err) == codeInvalidText
}

func isLockTimeout(err error) bool {
	switch pgCode(err) {
	case codeLockNotAvailable, codeQueryCanceled:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

func isConflict(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// classify maps transient lock and transaction failures to repository
// sentinels and leaves everything else untouched.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case isLockTimeout(err):
		return ErrLockTimeout
	case isConflict(err):
		return ErrConflict
	}
	return err
}
