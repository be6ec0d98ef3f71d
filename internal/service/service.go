// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the capacity ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-booking/internal/clock"
	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/Shivanand-hulikatti/event-booking/internal/repository"
)

// EventStore is the event side of the ledger used by read paths.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (model.Event, error)
	List(ctx context.Context) ([]repository.AnnotatedEvent, error)
	ListByOwner(ctx context.Context, ownerID string) ([]repository.AnnotatedEvent, error)
	GetByID(ctx context.Context, id string) (model.Event, error)
	SeatsTaken(ctx context.Context, eventID string) (int, error)
}

// ReservationStore lists committed reservations.
type ReservationStore interface {
	ListByEvent(ctx context.Context, eventID string) ([]model.Reservation, error)
	ListByHolder(ctx context.Context, holderID string) ([]repository.HolderReservation, error)
}

// EventService serves event creation and every read-only query. It never
// takes the reservation guard; reads may race harmlessly with bookings.
type EventService struct {
	events       EventStore
	reservations ReservationStore
	clock        clock.Clock
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, reservations ReservationStore, clk clock.Clock) *EventService {
	return &EventService{events: events, reservations: reservations, clock: clk}
}

// CreateEvent validates the request and delegates to the store.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	if err := validateStruct(req); err != nil {
		return model.Event{}, err
	}
	if req.StartsAt.Before(s.clock.Now()) {
		return model.Event{}, &model.ValidationError{Field: "datetime", Reason: "event cannot be in the past"}
	}

	event, err := s.events.Create(ctx, req)
	if err != nil {
		return model.Event{}, storageErr("create event", err)
	}
	return event, nil
}

// ListEvents returns all events with their seats taken.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	annotated, err := s.events.List(ctx)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	return s.summarizeAll(ctx, annotated)
}

// MyEvents returns the events owned by ownerID.
func (s *EventService) MyEvents(ctx context.Context, ownerID string) ([]model.Event, error) {
	annotated, err := s.events.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storageErr("list owner events", err)
	}
	return s.summarizeAll(ctx, annotated)
}

// GetEvent returns a single event by ID with a freshly computed seats taken.
func (s *EventService) GetEvent(ctx context.Context, id string) (model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return model.Event{}, &model.ValidationError{Field: "id", Reason: "is required"}
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Event{}, model.ErrNotFound
		}
		return model.Event{}, storageErr("get event", err)
	}
	return s.summarize(ctx, event, nil)
}

// SeatsTaken returns the committed seats for eventID. Callers that already
// aggregated the total in the same query pass it as precomputed; otherwise
// it is computed with a single aggregate read.
func (s *EventService) SeatsTaken(ctx context.Context, eventID string, precomputed *int) (int, error) {
	if precomputed != nil {
		return *precomputed, nil
	}
	taken, err := s.events.SeatsTaken(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, model.ErrNotFound
		}
		return 0, storageErr("seats taken", err)
	}
	return taken, nil
}

// ListReservations returns all reservations for an event.
func (s *EventService) ListReservations(ctx context.Context, eventID string) ([]model.Reservation, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	res, err := s.reservations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, storageErr("list reservations", err)
	}
	return res, nil
}

// MyBookings returns the holder's reservations, each with its event summary.
func (s *EventService) MyBookings(ctx context.Context, holderID string) ([]model.Reservation, error) {
	rows, err := s.reservations.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, storageErr("list holder reservations", err)
	}

	out := make([]model.Reservation, 0, len(rows))
	for _, row := range rows {
		taken := row.Event.SeatsTaken
		event, err := s.summarize(ctx, row.Event.Event, &taken)
		if err != nil {
			return nil, err
		}
		res := row.Reservation
		res.Event = &event
		out = append(out, res)
	}
	return out, nil
}

func (s *EventService) summarizeAll(ctx context.Context, annotated []repository.AnnotatedEvent) ([]model.Event, error) {
	out := make([]model.Event, 0, len(annotated))
	for _, a := range annotated {
		taken := a.SeatsTaken
		event, err := s.summarize(ctx, a.Event, &taken)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *EventService) summarize(ctx context.Context, event model.Event, precomputed *int) (model.Event, error) {
	taken, err := s.SeatsTaken(ctx, event.ID, precomputed)
	if err != nil {
		return model.Event{}, err
	}
	event.SeatsTaken = taken
	return event, nil
}

// storageErr hides the store's error shape behind model.ErrStorage while
// keeping the cause in the chain for logs.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorage, err)
}
