// Package model defines the core domain types for the event booking system.
package model

import "time"

// Event is a bookable event with a fixed seat capacity.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"datetime"`
	Capacity    int       `json:"max_seats"`
	OwnerID     string    `json:"owner_id"`
	SeatsTaken  int       `json:"seats_taken"`
	CreatedAt   time.Time `json:"created_at"`

	// Version is bumped by every booking under the optimistic strategy.
	Version int64 `json:"-"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.SeatsTaken
}

// Reservation is a committed claim of Seats seats of an event by a holder.
type Reservation struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	HolderID  string    `json:"holder_id"`
	Seats     int       `json:"seats_booked"`
	CreatedAt time.Time `json:"created_at"`

	// Event is the summary of the booked event, filled by reads that join it.
	Event *Event `json:"event,omitempty"`
}

// Snapshot is the consistent view of an event handed out by the reservation guard.
type Snapshot struct {
	Event      Event
	SeatsTaken int
}

// Available returns the seats left at snapshot time.
func (s Snapshot) Available() int {
	e := s.Event
	e.SeatsTaken = s.SeatsTaken
	return e.Remaining()
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string    `json:"title" validate:"required,max=128"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"datetime" validate:"required"`
	Capacity    int       `json:"max_seats" validate:"min=1,max=100000"`
	OwnerID     string    `json:"-" validate:"required,max=255"`
}

// BookRequest is a request for seats of one event by one holder.
type BookRequest struct {
	EventID  string `json:"event_id" validate:"required"`
	HolderID string `json:"holder_id" validate:"required,max=255"`
	Seats    int    `json:"seats_booked" validate:"min=1"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
