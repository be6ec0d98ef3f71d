// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/go-chi/chi/v5"
)

// EventQueries is the read and create side the handlers depend on.
type EventQueries interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	ListReservations(ctx context.Context, eventID string) ([]model.Reservation, error)
	MyEvents(ctx context.Context, ownerID string) ([]model.Event, error)
	MyBookings(ctx context.Context, holderID string) ([]model.Reservation, error)
}

// Booker books seats.
type Booker interface {
	Book(ctx context.Context, req model.BookRequest) (model.Reservation, error)
}

// EventHandler holds all HTTP handlers for the event booking API.
type EventHandler struct {
	log     *slog.Logger
	events  EventQueries
	booking Booker
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(log *slog.Logger, events EventQueries, booking Booker) *EventHandler {
	return &EventHandler{log: log, events: events, booking: booking}
}

// Routes mounts the event API on r. Every route needs an authenticated
// holder, so r must already run Authenticator.
func (h *EventHandler) Routes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Post("/{id}/book", h.Book)
		r.Get("/{id}/reservations", h.ListReservations)
	})
	r.Route("/my", func(r chi.Router) {
		r.Get("/events", h.MyEvents)
		r.Get("/bookings", h.MyBookings)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// createEventBody is the wire shape of POST /events.
type createEventBody struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"datetime"`
	Capacity    int       `json:"max_seats"`
}

// CreateEvent handles POST /events. The caller becomes the owner.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	holderID, ok := h.holder(w, r)
	if !ok {
		return
	}

	var body createEventBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), model.CreateEventRequest{
		Title:       body.Title,
		Description: body.Description,
		StartsAt:    body.StartsAt,
		Capacity:    body.Capacity,
		OwnerID:     holderID,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// bookBody is the wire shape of POST /events/{id}/book. Seats defaults to 1
// when omitted, and an empty body is accepted.
type bookBody struct {
	Seats *int `json:"seats_booked"`
}

// Book handles POST /events/{id}/book for the authenticated holder.
func (h *EventHandler) Book(w http.ResponseWriter, r *http.Request) {
	holderID, ok := h.holder(w, r)
	if !ok {
		return
	}

	var body bookBody
	if err := decodeJSON(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body: "+err.Error())
		return
	}
	seats := 1
	if body.Seats != nil {
		seats = *body.Seats
	}

	res, err := h.booking.Book(r.Context(), model.BookRequest{
		EventID:  chi.URLParam(r, "id"),
		HolderID: holderID,
		Seats:    seats,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// ListReservations handles GET /events/{id}/reservations.
func (h *EventHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	res, err := h.events.ListReservations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	if res == nil {
		res = []model.Reservation{}
	}

	writeJSON(w, http.StatusOK, res)
}

// MyEvents handles GET /my/events.
func (h *EventHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	holderID, ok := h.holder(w, r)
	if !ok {
		return
	}

	events, err := h.events.MyEvents(r.Context(), holderID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// MyBookings handles GET /my/bookings.
func (h *EventHandler) MyBookings(w http.ResponseWriter, r *http.Request) {
	holderID, ok := h.holder(w, r)
	if !ok {
		return
	}

	res, err := h.events.MyBookings(r.Context(), holderID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if res == nil {
		res = []model.Reservation{}
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *EventHandler) holder(w http.ResponseWriter, r *http.Request) (string, bool) {
	holderID, ok := HolderFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	return holderID, ok
}

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound answers unknown routes with the JSON error envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

// MethodNotAllowed answers known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
