// Package memory is an in-process capacity ledger with the same contract as
// the PostgreSQL repository. It backs STORE=memory and the concurrency tests.
package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/Shivanand-hulikatti/event-booking/internal/repository"
	"github.com/google/uuid"
)

type txKey struct{}

// txn stages the reservations written inside one WithExclusiveEvent call.
type txn struct {
	eventID string
	staged  []model.Reservation
}

type holderEvent struct {
	holderID string
	eventID  string
}

// Store keeps events and reservations in memory. Each event has its own
// one-slot semaphore acting as the row lock.
type Store struct {
	mu           sync.RWMutex
	events       map[string]model.Event
	order        []string
	locks        map[string]chan struct{}
	reservations []model.Reservation
	booked       map[holderEvent]struct{}

	lockTimeout time.Duration
}

type Option func(*Store)

// WithLockTimeout bounds lock waits in addition to the context deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.lockTimeout = d
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		events: make(map[string]model.Event),
		locks:  make(map[string]chan struct{}),
		booked: make(map[holderEvent]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new event with a generated UUID.
func (s *Store) Create(_ context.Context, req model.CreateEventRequest) (model.Event, error) {
	event := model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt.UTC(),
		Capacity:    req.Capacity,
		OwnerID:     req.OwnerID,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event
	s.order = append(s.order, event.ID)
	s.locks[event.ID] = make(chan struct{}, 1)
	return event, nil
}

func (s *Store) List(_ context.Context) ([]repository.AnnotatedEvent, error) {
	return s.annotated(func(model.Event) bool { return true }), nil
}

func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]repository.AnnotatedEvent, error) {
	return s.annotated(func(e model.Event) bool { return e.OwnerID == ownerID }), nil
}

// annotated returns matching events newest first, each with its seat total.
func (s *Store) annotated(match func(model.Event) bool) []repository.AnnotatedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := s.totalsLocked()
	var out []repository.AnnotatedEvent
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.events[s.order[i]]
		if !match(e) {
			continue
		}
		out = append(out, repository.AnnotatedEvent{Event: e, SeatsTaken: totals[e.ID]})
	}
	return out
}

func (s *Store) GetByID(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (s *Store) SeatsTaken(_ context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seatsLocked(eventID), nil
}

func (s *Store) ListByEvent(_ context.Context, eventID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Reservation
	for _, r := range s.reservations {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ListByHolder(_ context.Context, holderID string) ([]repository.HolderReservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := s.totalsLocked()
	var out []repository.HolderReservation
	for _, r := range slices.Backward(s.reservations) {
		if r.HolderID != holderID {
			continue
		}
		e := s.events[r.EventID]
		out = append(out, repository.HolderReservation{
			Reservation: r,
			Event:       repository.AnnotatedEvent{Event: e, SeatsTaken: totals[e.ID]},
		})
	}
	return out, nil
}

// WithExclusiveEvent holds the event's semaphore while fn runs. Reservations
// inserted by fn become visible only if fn returns nil.
func (s *Store) WithExclusiveEvent(ctx context.Context, eventID string, fn func(ctx context.Context, snap model.Snapshot) error) error {
	s.mu.RLock()
	lock, ok := s.locks[eventID]
	s.mu.RUnlock()
	if !ok {
		return repository.ErrNotFound
	}

	if err := s.acquire(ctx, lock); err != nil {
		return err
	}
	defer func() { <-lock }()

	s.mu.RLock()
	snap := model.Snapshot{Event: s.events[eventID], SeatsTaken: s.seatsLocked(eventID)}
	s.mu.RUnlock()

	tx := &txn{eventID: eventID}
	if err := fn(context.WithValue(ctx, txKey{}, tx), snap); err != nil {
		return err
	}
	return s.commit(tx)
}

func (s *Store) acquire(ctx context.Context, lock chan struct{}) error {
	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		t := time.NewTimer(s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return repository.ErrLockTimeout
	case <-timeout:
		return repository.ErrLockTimeout
	}
}

// HasReservation reports whether holderID holds a committed reservation on
// eventID, or has one staged in the surrounding transaction.
func (s *Store) HasReservation(ctx context.Context, eventID, holderID string) (bool, error) {
	if tx, _ := ctx.Value(txKey{}).(*txn); tx != nil && tx.eventID == eventID {
		for _, staged := range tx.staged {
			if staged.HolderID == holderID {
				return true, nil
			}
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.booked[holderEvent{holderID: holderID, eventID: eventID}]
	return exists, nil
}

// InsertReservation stages res in the surrounding transaction.
func (s *Store) InsertReservation(ctx context.Context, res model.Reservation) error {
	tx, _ := ctx.Value(txKey{}).(*txn)
	if tx == nil {
		return errors.New("memory: InsertReservation called outside WithExclusiveEvent")
	}
	if res.EventID != tx.eventID {
		return errors.New("memory: reservation targets an event that is not locked")
	}

	key := holderEvent{holderID: res.HolderID, eventID: res.EventID}
	for _, staged := range tx.staged {
		if staged.HolderID == res.HolderID {
			return repository.ErrAlreadyBooked
		}
	}

	s.mu.RLock()
	_, exists := s.booked[key]
	s.mu.RUnlock()
	if exists {
		return repository.ErrAlreadyBooked
	}

	tx.staged = append(tx.staged, res)
	return nil
}

func (s *Store) commit(tx *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range tx.staged {
		if _, exists := s.booked[holderEvent{holderID: r.HolderID, eventID: r.EventID}]; exists {
			return repository.ErrAlreadyBooked
		}
	}
	for _, r := range tx.staged {
		s.booked[holderEvent{holderID: r.HolderID, eventID: r.EventID}] = struct{}{}
		s.reservations = append(s.reservations, r)
	}
	return nil
}

func (s *Store) seatsLocked(eventID string) int {
	total := 0
	for _, r := range s.reservations {
		if r.EventID == eventID {
			total += r.Seats
		}
	}
	return total
}

func (s *Store) totalsLocked() map[string]int {
	totals := make(map[string]int, len(s.events))
	for _, r := range s.reservations {
		totals[r.EventID] += r.Seats
	}
	return totals
}
