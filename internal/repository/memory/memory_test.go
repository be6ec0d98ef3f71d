package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-booking/internal/model"
	"github.com/Shivanand-hulikatti/event-booking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(t *testing.T, s *Store, owner string, capacity int) model.Event {
	t.Helper()
	e, err := s.Create(context.Background(), model.CreateEventRequest{
		Title:    "Meetup",
		StartsAt: time.Now().Add(time.Hour),
		Capacity: capacity,
		OwnerID:  owner,
	})
	require.NoError(t, err)
	return e
}

func book(ctx context.Context, s *Store, eventID, holder string, seats int) error {
	return s.WithExclusiveEvent(ctx, eventID, func(txCtx context.Context, _ model.Snapshot) error {
		return s.InsertReservation(txCtx, model.Reservation{
			ID: holder + "-" + eventID, EventID: eventID, HolderID: holder, Seats: seats, CreatedAt: time.Now(),
		})
	})
}

func TestStore_HasReservation(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := newEvent(t, s, "owner", 5)
	require.NoError(t, book(ctx, s, e.ID, "bob", 1))

	booked, err := s.HasReservation(ctx, e.ID, "bob")
	require.NoError(t, err)
	assert.True(t, booked)

	err = s.WithExclusiveEvent(ctx, e.ID, func(txCtx context.Context, _ model.Snapshot) error {
		booked, err := s.HasReservation(txCtx, e.ID, "alice")
		require.NoError(t, err)
		assert.False(t, booked)

		require.NoError(t, s.InsertReservation(txCtx, model.Reservation{
			ID: "r-alice", EventID: e.ID, HolderID: "alice", Seats: 1, CreatedAt: time.Now(),
		}))
		booked, err = s.HasReservation(txCtx, e.ID, "alice")
		require.NoError(t, err)
		assert.True(t, booked, "staged rows are visible to their own transaction")
		return errors.New("discard")
	})
	require.Error(t, err)

	booked, err = s.HasReservation(ctx, e.ID, "alice")
	require.NoError(t, err)
	assert.False(t, booked)
}

func TestStore_WithExclusiveEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown event", func(t *testing.T) {
		s := New()
		err := s.WithExclusiveEvent(ctx, "missing", func(context.Context, model.Snapshot) error {
			t.Fatal("fn must not run")
			return nil
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("snapshot reflects prior commits", func(t *testing.T) {
		s := New()
		e := newEvent(t, s, "owner", 10)
		require.NoError(t, book(ctx, s, e.ID, "a", 4))

		err := s.WithExclusiveEvent(ctx, e.ID, func(_ context.Context, snap model.Snapshot) error {
			assert.Equal(t, 4, snap.SeatsTaken)
			assert.Equal(t, 10, snap.Event.Capacity)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("error from fn discards staged writes", func(t *testing.T) {
		s := New()
		e := newEvent(t, s, "owner", 10)
		boom := errors.New("boom")

		err := s.WithExclusiveEvent(ctx, e.ID, func(txCtx context.Context, _ model.Snapshot) error {
			require.NoError(t, s.InsertReservation(txCtx, model.Reservation{ID: "r1", EventID: e.ID, HolderID: "a", Seats: 2}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		taken, err := s.SeatsTaken(ctx, e.ID)
		require.NoError(t, err)
		assert.Zero(t, taken)

		// the holder can still book: nothing leaked into the uniqueness index
		require.NoError(t, book(ctx, s, e.ID, "a", 1))
	})

	t.Run("duplicate holder rejected", func(t *testing.T) {
		s := New()
		e := newEvent(t, s, "owner", 10)
		require.NoError(t, book(ctx, s, e.ID, "a", 1))
		assert.ErrorIs(t, book(ctx, s, e.ID, "a", 1), repository.ErrAlreadyBooked)
	})

	t.Run("lock wait honours context deadline", func(t *testing.T) {
		s := New()
		e := newEvent(t, s, "owner", 10)

		held := make(chan struct{})
		release := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithExclusiveEvent(ctx, e.ID, func(context.Context, model.Snapshot) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := book(waitCtx, s, e.ID, "b", 1)
		assert.ErrorIs(t, err, repository.ErrLockTimeout)

		close(release)
		wg.Wait()
	})

	t.Run("lock timeout option", func(t *testing.T) {
		s := New(WithLockTimeout(10 * time.Millisecond))
		e := newEvent(t, s, "owner", 10)

		held := make(chan struct{})
		release := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = s.WithExclusiveEvent(ctx, e.ID, func(context.Context, model.Snapshot) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held

		assert.ErrorIs(t, book(ctx, s, e.ID, "b", 1), repository.ErrLockTimeout)
		close(release)
		<-done
	})

	t.Run("insert outside guard fails", func(t *testing.T) {
		s := New()
		err := s.InsertReservation(ctx, model.Reservation{ID: "x"})
		assert.Error(t, err)
	})
}

func TestStore_Reads(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := newEvent(t, s, "alice", 10)
	second := newEvent(t, s, "bob", 5)
	require.NoError(t, book(ctx, s, first.ID, "carol", 3))
	require.NoError(t, book(ctx, s, second.ID, "carol", 2))
	require.NoError(t, book(ctx, s, first.ID, "dave", 1))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].Event.ID, "newest first")
	assert.Equal(t, 2, all[0].SeatsTaken)
	assert.Equal(t, 4, all[1].SeatsTaken)

	mine, err := s.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].Event.ID)

	byEvent, err := s.ListByEvent(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	carol, err := s.ListByHolder(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, carol, 2)
	assert.Equal(t, second.ID, carol[0].Reservation.EventID)
	assert.Equal(t, 4, carol[1].Event.SeatsTaken)

	_, err = s.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
