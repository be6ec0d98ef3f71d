package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/Shivanand-hulikatti/event-booking/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t)
	events := NewEventRepository(pool)
	reservations := NewReservationRepository(pool)

	t.Run("create and get", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		startsAt := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Microsecond)
		created, err := events.Create(ctx, model.CreateEventRequest{
			Title:       "Meetup",
			Description: "Go and Postgres",
			StartsAt:    startsAt,
			Capacity:    25,
			OwnerID:     "owner-1",
		})
		require.NoError(t, err)

		got, err := events.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Meetup", got.Title)
		assert.Equal(t, 25, got.Capacity)
		assert.Equal(t, "owner-1", got.OwnerID)
		assert.True(t, startsAt.Equal(got.StartsAt))

		_, err = events.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("aggregates", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		a := testutil.InsertEvent(t, ctx, pool, "A", 10)
		b := testutil.InsertEvent(t, ctx, pool, "B", 10)
		testutil.InsertReservation(t, ctx, pool, a, "alice", 3)
		testutil.InsertReservation(t, ctx, pool, a, "bob", 2)
		testutil.InsertReservation(t, ctx, pool, b, "alice", 1)

		taken, err := events.SeatsTaken(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, 5, taken)

		all, err := events.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		totals := map[string]int{}
		for _, e := range all {
			totals[e.Event.ID] = e.SeatsTaken
		}
		assert.Equal(t, map[string]int{a: 5, b: 1}, totals)

		owned, err := events.ListByOwner(ctx, "owner")
		require.NoError(t, err)
		assert.Len(t, owned, 2)

		byEvent, err := reservations.ListByEvent(ctx, a)
		require.NoError(t, err)
		assert.Len(t, byEvent, 2)

		mine, err := reservations.ListByHolder(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		for _, r := range mine {
			assert.Equal(t, "alice", r.Reservation.HolderID)
			assert.Equal(t, totals[r.Event.Event.ID], r.Event.SeatsTaken)
		}
	})
}
