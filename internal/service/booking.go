package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/clock"
	"github.com/Shivanand-hulikatti/event-booking/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/event-booking/internal/metrics"
	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/Shivanand-hulikatti/event-booking/internal/repository"
	"github.com/google/uuid"
)

// Ledger is the reservation guard plus the write it protects.
type Ledger interface {
	// WithExclusiveEvent runs fn with exclusive booking rights on eventID.
	// Everything fn writes through InsertReservation commits atomically
	// when fn returns nil and is discarded otherwise.
	WithExclusiveEvent(ctx context.Context, eventID string, fn func(ctx context.Context, snap model.Snapshot) error) error
	HasReservation(ctx context.Context, eventID, holderID string) (bool, error)
	InsertReservation(ctx context.Context, res model.Reservation) error
}

// BookingObserver receives one call per Book attempt.
type BookingObserver interface {
	ObserveBooking(outcome string, seats int, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveBooking(string, int, time.Duration) {}

// BookingService turns booking requests into committed reservations.
type BookingService struct {
	log      *slog.Logger
	ledger   Ledger
	clock    clock.Clock
	observer BookingObserver
}

// NewBookingService constructs a BookingService. observer may be nil.
func NewBookingService(log *slog.Logger, ledger Ledger, clk clock.Clock, observer BookingObserver) *BookingService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &BookingService{log: log, ledger: ledger, clock: clk, observer: observer}
}

// Book reserves req.Seats seats of req.EventID for req.HolderID.
//
// The duplicate check, the capacity check and the insert run inside the
// guard that acquired the event, against the snapshot it produced; checking
// before locking, or re-reading outside the guard, would reopen the oversell
// window. A holder who already booked the event gets ErrDuplicateBooking
// even when the event is now full, so retrying a request that succeeded
// always yields the same answer. On any error nothing is written.
func (s *BookingService) Book(ctx context.Context, req model.BookRequest) (res model.Reservation, err error) {
	const op = "service.BookingService.Book"

	req.EventID = strings.TrimSpace(req.EventID)
	req.HolderID = strings.TrimSpace(req.HolderID)

	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", req.EventID),
		slog.String("holder_id", req.HolderID),
		slog.Int("seats", req.Seats),
	)

	start := time.Now()
	defer func() {
		outcome := Outcome(err)
		s.observer.ObserveBooking(outcome, req.Seats, time.Since(start))
		switch outcome {
		case metrics.OutcomeBooked:
			log.Info("seats booked", slog.String("reservation_id", res.ID))
		case metrics.OutcomeStorage:
			log.Error("booking failed", sl.Err(err))
		default:
			log.Debug("booking rejected", slog.String("outcome", outcome))
		}
	}()

	if err := validateStruct(req); err != nil {
		return model.Reservation{}, err
	}

	err = s.ledger.WithExclusiveEvent(ctx, req.EventID, func(txCtx context.Context, snap model.Snapshot) error {
		booked, err := s.ledger.HasReservation(txCtx, req.EventID, req.HolderID)
		if err != nil {
			return err
		}
		if booked {
			return repository.ErrAlreadyBooked
		}
		if req.Seats > snap.Available() {
			return model.ErrCapacityExceeded
		}

		r := model.Reservation{
			ID:        uuid.New().String(),
			EventID:   req.EventID,
			HolderID:  req.HolderID,
			Seats:     req.Seats,
			CreatedAt: s.clock.Now(),
		}
		if err := s.ledger.InsertReservation(txCtx, r); err != nil {
			return err
		}

		event := snap.Event
		event.SeatsTaken = snap.SeatsTaken + r.Seats
		r.Event = &event
		res = r
		return nil
	})
	if err != nil {
		return model.Reservation{}, translate(err)
	}
	return res, nil
}

// translate maps ledger signals onto the caller-facing error kinds.
func translate(err error) error {
	switch {
	case errors.Is(err, model.ErrCapacityExceeded):
		return model.ErrCapacityExceeded
	case errors.Is(err, repository.ErrNotFound):
		return model.ErrNotFound
	case errors.Is(err, repository.ErrAlreadyBooked):
		return model.ErrDuplicateBooking
	case errors.Is(err, repository.ErrLockTimeout),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", model.ErrBusy, err)
	}
	return fmt.Errorf("%w: %w", model.ErrStorage, err)
}

// Outcome classifies a Book result for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeBooked
	case errors.Is(err, model.ErrInvalidArgument):
		return metrics.OutcomeInvalid
	case errors.Is(err, model.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, model.ErrCapacityExceeded):
		return metrics.OutcomeCapacityExceeded
	case errors.Is(err, model.ErrDuplicateBooking):
		return metrics.OutcomeDuplicate
	case errors.Is(err, model.ErrBusy):
		return metrics.OutcomeBusy
	}
	return metrics.OutcomeStorage
}
