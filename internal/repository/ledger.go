package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Strategy selects how Ledger serializes bookings against one event.
type Strategy string

const (
	// Pessimistic locks the event row with SELECT ... FOR UPDATE.
	Pessimistic Strategy = "pessimistic"
	// Optimistic reads without locking and commits only if the event's
	// version is unchanged, retrying the whole cycle otherwise.
	Optimistic Strategy = "optimistic"
)

// errVersionMismatch signals a lost optimistic race; it never leaves the package.
var errVersionMismatch = errors.New("event version changed")

// Ledger is the reservation guard and write side of the capacity ledger.
type Ledger struct {
	db          *pgxpool.Pool
	strategy    Strategy
	lockTimeout time.Duration
	maxRetries  int
}

type LedgerOption func(*Ledger)

// WithStrategy picks the concurrency strategy. Unknown values are ignored.
func WithStrategy(s Strategy) LedgerOption {
	return func(l *Ledger) {
		if s == Pessimistic || s == Optimistic {
			l.strategy = s
		}
	}
}

// WithLockTimeout bounds how long a booking waits for the event row lock.
// Zero waits until the context is done.
func WithLockTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		if d >= 0 {
			l.lockTimeout = d
		}
	}
}

// WithMaxRetries bounds optimistic read-decide-write attempts.
func WithMaxRetries(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// NewLedger constructs a Ledger. Defaults: pessimistic, 3s lock timeout, 5 retries.
func NewLedger(db *pgxpool.Pool, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		db:          db,
		strategy:    Pessimistic,
		lockTimeout: 3 * time.Second,
		maxRetries:  5,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithExclusiveEvent runs fn inside a transaction that holds exclusive
// booking rights on eventID. fn receives the event and the seats taken as
// seen after the right was acquired. The transaction commits when fn
// returns nil and rolls back otherwise.
//
// Naive read-then-write is broken:
//
//	A: SELECT SUM(seats) -> 9        B: SELECT SUM(seats) -> 9
//	A: 9 < 10, INSERT                B: 9 < 10, INSERT
//	result: 11 seats on a 10-seat event
//
// Under the pessimistic strategy the event row is locked with FOR UPDATE
// before the sum is read, so B blocks until A commits or rolls back. The
// sum is then read by a separate statement: in READ COMMITTED each
// statement takes a fresh snapshot, so B sees A's reservation.
func (l *Ledger) WithExclusiveEvent(ctx context.Context, eventID string, fn func(ctx context.Context, snap model.Snapshot) error) error {
	if l.strategy == Optimistic {
		return l.withVersionCheck(ctx, eventID, fn)
	}
	return l.withRowLock(ctx, eventID, fn)
}

func (l *Ledger) withRowLock(ctx context.Context, eventID string, fn func(ctx context.Context, snap model.Snapshot) error) (err error) {
	const op = "repository.Ledger.withRowLock"

	tx, err := l.begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx)
		}
	}()

	event, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1 FOR UPDATE`,
		eventID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: lock event row: %w", op, classify(err))
	}

	taken, err := seatsTaken(ctx, tx, eventID)
	if err != nil {
		return fmt.Errorf("%s: sum seats: %w", op, classify(err))
	}

	if err = fn(withTxContext(ctx, tx), model.Snapshot{Event: event, SeatsTaken: taken}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, classify(err))
	}
	return nil
}

func (l *Ledger) withVersionCheck(ctx context.Context, eventID string, fn func(ctx context.Context, snap model.Snapshot) error) error {
	for attempt := 1; attempt <= l.maxRetries; attempt++ {
		err := l.tryVersioned(ctx, eventID, fn)
		if !errors.Is(err, errVersionMismatch) {
			return err
		}
		if ctx.Err() != nil {
			return ErrLockTimeout
		}
	}
	return ErrConflict
}

func (l *Ledger) tryVersioned(ctx context.Context, eventID string, fn func(ctx context.Context, snap model.Snapshot) error) (err error) {
	const op = "repository.Ledger.tryVersioned"

	tx, err := l.begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			rollback(ctx, tx)
		}
	}()

	// One statement, one snapshot: version and sum are mutually consistent.
	var taken int
	event, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+`,
		        COALESCE((SELECT SUM(r.seats) FROM reservations r WHERE r.event_id = e.id), 0)
		 FROM events e WHERE e.id = $1`,
		eventID,
	), &taken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%s: read event: %w", op, classify(err))
	}

	if err = fn(withTxContext(ctx, tx), model.Snapshot{Event: event, SeatsTaken: taken}); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE events SET version = version + 1 WHERE id = $1 AND version = $2`,
		eventID, event.Version,
	)
	if err != nil {
		return fmt.Errorf("%s: bump version: %w", op, classify(err))
	}
	if tag.RowsAffected() == 0 {
		err = errVersionMismatch
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, classify(err))
	}
	return nil
}

// begin opens a READ COMMITTED transaction with lock_timeout applied.
func (l *Ledger) begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", classify(err))
	}
	if l.lockTimeout > 0 {
		_, err = tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`,
			fmt.Sprintf("%dms", l.lockTimeout.Milliseconds()))
		if err != nil {
			rollback(ctx, tx)
			return nil, fmt.Errorf("set lock_timeout: %w", classify(err))
		}
	}
	return tx, nil
}

// HasReservation reports whether holderID already holds a reservation on
// eventID. Inside WithExclusiveEvent it reads through the guard's
// transaction.
func (l *Ledger) HasReservation(ctx context.Context, eventID, holderID string) (bool, error) {
	const op = "repository.Ledger.HasReservation"

	var exists bool
	err := conn(ctx, l.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservations WHERE event_id = $1 AND holder_id = $2)`,
		eventID, holderID,
	).Scan(&exists)
	if err != nil {
		if isInvalidID(err) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("%s: %w", op, classify(err))
	}
	return exists, nil
}

// InsertReservation appends a reservation inside the transaction opened by
// WithExclusiveEvent. The (holder_id, event_id) unique constraint is the
// last line of defence against double booking.
func (l *Ledger) InsertReservation(ctx context.Context, res model.Reservation) error {
	const op = "repository.Ledger.InsertReservation"

	tx := txFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("%s: called outside WithExclusiveEvent", op)
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO reservations (id, event_id, holder_id, seats, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		res.ID, res.EventID, res.HolderID, res.Seats, res.CreatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrAlreadyBooked
		case pgCode(err) == codeForeignKeyViolation:
			return ErrNotFound
		}
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}
