package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRemaining(t *testing.T) {
	e := Event{Capacity: 10, SeatsTaken: 7}
	assert.Equal(t, 3, e.Remaining())

	e.SeatsTaken = 10
	assert.Equal(t, 0, e.Remaining())
}

func TestSnapshotAvailable(t *testing.T) {
	// The snapshot's own total wins over whatever the event copy carries.
	s := Snapshot{Event: Event{Capacity: 5, SeatsTaken: 4}, SeatsTaken: 2}
	assert.Equal(t, 3, s.Available())
}

func TestJSONFieldNames(t *testing.T) {
	startsAt := time.Date(2030, 1, 2, 18, 0, 0, 0, time.UTC)

	b, err := json.Marshal(Event{ID: "e1", StartsAt: startsAt, Capacity: 10})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"datetime":"2030-01-02T18:00:00Z"`)
	assert.NotContains(t, string(b), "starts_at")
	assert.NotContains(t, string(b), "version")

	b, err = json.Marshal(Reservation{ID: "r1", EventID: "e1", HolderID: "alice", Seats: 2})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"event_id":"e1"`)
	assert.Contains(t, string(b), `"seats_booked":2`)
}

func TestValidationErrorIsInvalidArgument(t *testing.T) {
	var err error = &ValidationError{Field: "seats", Reason: "must be at least 1"}

	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "seats: must be at least 1", err.Error())
	assert.Equal(t, "bad", (&ValidationError{Reason: "bad"}).Error())
}
