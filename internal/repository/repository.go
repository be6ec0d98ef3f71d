// Package repository implements the capacity ledger on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AnnotatedEvent is an event read together with its seats-taken aggregate.
type AnnotatedEvent struct {
	Event      model.Event
	SeatsTaken int
}

// HolderReservation is a reservation joined with its annotated event.
type HolderReservation struct {
	Reservation model.Reservation
	Event       AnnotatedEvent
}

const eventColumns = `e.id, e.title, e.description, e.starts_at, e.capacity, e.owner_id, e.version, e.created_at`

// seatTotals aggregates committed seats per event in one pass.
const seatTotals = `LEFT JOIN (
	SELECT event_id, SUM(seats) AS total FROM reservations GROUP BY event_id
) t ON t.event_id = e.id`

func scanEvent(row pgx.Row, dest ...any) (model.Event, error) {
	var e model.Event
	base := []any{&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.Capacity, &e.OwnerID, &e.Version, &e.CreatedAt}
	err := row.Scan(append(base, dest...)...)
	return e, err
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (model.Event, error) {
	event := model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt.UTC(),
		Capacity:    req.Capacity,
		OwnerID:     req.OwnerID,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO events (id, title, description, starts_at, capacity, owner_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Title, event.Description, event.StartsAt, event.Capacity, event.OwnerID, event.CreatedAt,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events with their seats-taken, newest first.
func (r *EventRepository) List(ctx context.Context) ([]AnnotatedEvent, error) {
	return r.listAnnotated(ctx,
		`SELECT `+eventColumns+`, COALESCE(t.total, 0)
		 FROM events e `+seatTotals+`
		 ORDER BY e.created_at DESC, e.id`,
	)
}

// ListByOwner returns the events owned by ownerID with their seats-taken.
func (r *EventRepository) ListByOwner(ctx context.Context, ownerID string) ([]AnnotatedEvent, error) {
	return r.listAnnotated(ctx,
		`SELECT `+eventColumns+`, COALESCE(t.total, 0)
		 FROM events e `+seatTotals+`
		 WHERE e.owner_id = $1
		 ORDER BY e.created_at DESC, e.id`,
		ownerID,
	)
}

func (r *EventRepository) listAnnotated(ctx context.Context, sql string, args ...any) ([]AnnotatedEvent, error) {
	rows, err := conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []AnnotatedEvent
	for rows.Next() {
		var total int
		e, err := scanEvent(rows, &total)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, AnnotatedEvent{Event: e, SeatsTaken: total})
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound. SeatsTaken is left zero.
func (r *EventRepository) GetByID(ctx context.Context, id string) (model.Event, error) {
	e, err := scanEvent(conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// SeatsTaken sums committed seats for one event in a single statement,
// so a concurrent commit is seen entirely or not at all.
func (r *EventRepository) SeatsTaken(ctx context.Context, eventID string) (int, error) {
	total, err := seatsTaken(ctx, conn(ctx, r.db), eventID)
	if err != nil {
		if isInvalidID(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("sum seats: %w", err)
	}
	return total, nil
}

func seatsTaken(ctx context.Context, q querier, eventID string) (int, error) {
	var total int
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(seats), 0) FROM reservations WHERE event_id = $1`,
		eventID,
	).Scan(&total)
	return total, err
}

// ReservationRepository handles read access to reservations.
type ReservationRepository struct {
	db *pgxpool.Pool
}

// NewReservationRepository constructs a ReservationRepository.
func NewReservationRepository(db *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ListByEvent returns all reservations for a given event, oldest first.
func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Reservation, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT id, event_id, holder_id, seats, created_at
		 FROM reservations
		 WHERE event_id = $1
		 ORDER BY created_at ASC, id`,
		eventID,
	)
	if err != nil {
		if isInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.EventID, &res.HolderID, &res.Seats, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListByHolder returns the holder's reservations joined with their events.
func (r *ReservationRepository) ListByHolder(ctx context.Context, holderID string) ([]HolderReservation, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		`SELECT `+eventColumns+`, COALESCE(t.total, 0),
		        res.id, res.event_id, res.holder_id, res.seats, res.created_at
		 FROM reservations res
		 JOIN events e ON e.id = res.event_id
		 `+seatTotals+`
		 WHERE res.holder_id = $1
		 ORDER BY res.created_at DESC, res.id`,
		holderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list holder reservations: %w", err)
	}
	defer rows.Close()

	var out []HolderReservation
	for rows.Next() {
		var (
			total int
			res   model.Reservation
		)
		e, err := scanEvent(rows, &total, &res.ID, &res.EventID, &res.HolderID, &res.Seats, &res.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan holder reservation: %w", err)
		}
		out = append(out, HolderReservation{
			Reservation: res,
			Event:       AnnotatedEvent{Event: e, SeatsTaken: total},
		})
	}
	return out, rows.Err()
}
