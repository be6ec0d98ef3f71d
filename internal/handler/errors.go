package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/event-booking/internal/lib/logger/sl"
	"github.com/Shivanand-hulikatti/event-booking/internal/model"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidArgument    = "invalid_argument"
	codeNotFound           = "not_found"
	codeCapacityExceeded   = "capacity_exceeded"
	codeDuplicateBooking   = "duplicate_booking"
	codeBusy               = "busy"
	codeUnauthorized       = "unauthorized"
	codeMethodNotAllowed   = "method_not_allowed"
	codeInternalError      = "internal_error"
)

// retryAfterSeconds is sent with 503 responses to a busy booking.
const retryAfterSeconds = "1"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

// writeServiceError maps a service error onto a status code and error code.
// Storage failures are logged here and never echoed to the client.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, codeInvalidArgument, verr.Error())
	case errors.Is(err, model.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, codeInvalidArgument, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "event not found")
	case errors.Is(err, model.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, codeCapacityExceeded, "not enough seats available")
	case errors.Is(err, model.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, codeDuplicateBooking, "you have already booked this event")
	case errors.Is(err, model.ErrBusy):
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, codeBusy, "event is busy, try again")
	default:
		log.Error("request failed", sl.Err(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
