package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/model"
)

func TestSeatsAvailable(t *testing.T) {
	occupied := map[string]string{"A1": "u1", "A2": "u2"}

	tests := []struct {
		name      string
		requested []string
		exclude   string
		want      bool
	}{
		{"free seats", []string{"B1", "B2"}, "", true},
		{"held by other", []string{"A1"}, "", false},
		{"mixed", []string{"B1", "A2"}, "", false},
		{"held by excluded user", []string{"A1"}, "u1", true},
		{"excluded user does not cover others", []string{"A1", "A2"}, "u1", false},
		{"empty request", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeatsAvailable(occupied, tt.requested, tt.exclude))
		})
	}
	assert.True(t, SeatsAvailable(nil, []string{"A1"}, ""))
}

func TestNormalizeSeats(t *testing.T) {
	got, err := normalizeSeats([]string{"A1", " B2 ", "A1", "c10"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2", "c10"}, got)

	_, err = normalizeSeats([]string{})
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = normalizeSeats([]string{"A 1"})
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestPartitionBookings(t *testing.T) {
	window := 10 * time.Minute
	mk := func(id uint64, age time.Duration, paid bool) model.BookingDetail {
		return model.BookingDetail{Booking: model.Booking{ID: id, IsPaid: paid, CreatedAt: t0.Add(-age)}}
	}
	in := []model.BookingDetail{
		mk(1, time.Minute, false),
		mk(2, window, false),
		mk(3, window+time.Second, true),
		mk(4, window-time.Nanosecond, false),
		mk(5, time.Hour, false),
	}

	valid, stale := PartitionBookings(in, t0, window)
	ids := func(bs []model.BookingDetail) []uint64 {
		var out []uint64
		for _, b := range bs {
			out = append(out, b.ID)
		}
		return out
	}
	assert.Equal(t, []uint64{1, 3, 4}, ids(valid))
	assert.Equal(t, []uint64{2, 5}, ids(stale))

	valid, stale = PartitionBookings(nil, t0, window)
	assert.NotNil(t, valid)
	assert.Empty(t, valid)
	assert.Empty(t, stale)
}

func TestListUserBookings_SweepsStale(t *testing.T) {
	h := newHarness(t, map[string]string{"A1": "u9"})
	ctx := context.Background()

	old, err := h.book(t, "u1", "A2", "A3")
	require.NoError(t, err)
	h.clock.Advance(6 * time.Minute)
	fresh, err := h.book(t, "u1", "B1")
	require.NoError(t, err)
	paid, err := h.book(t, "u1", "C1")
	require.NoError(t, err)
	_, err = h.svc.MarkPaid(ctx, paid.ID)
	require.NoError(t, err)

	h.clock.Advance(5 * time.Minute)
	list, err := h.svc.ListUserBookings(ctx, "u1")
	require.NoError(t, err)

	var ids []uint64
	for _, b := range list {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []uint64{paid.ID, fresh.ID}, ids)

	_, exists := h.store.booking(old.ID)
	assert.False(t, exists)
	assert.Equal(t, map[string]string{"A1": "u9", "B1": "u1", "C1": "u1"}, h.store.occupancy(h.showID))
	assert.Equal(t, 1, h.store.releaseCount())

	list, err = h.svc.ListUserBookings(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 1, h.store.releaseCount())
}

func TestListAllBookings(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.book(t, "u1", "A1")
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	b2, err := h.book(t, "u2", "A2")
	require.NoError(t, err)

	list, err := h.svc.ListAllBookings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b2.ID, list[0].ID, "newest first")

	h.clock.Advance(10 * time.Minute)
	list, err = h.svc.ListAllBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, h.store.occupancy(h.showID))
}

func TestListUserBookings_Errors(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.ListUserBookings(context.Background(), "")
	require.ErrorIs(t, err, model.ErrValidation)

	boom := errors.New("db down")
	h.store.listErr = boom
	_, err = h.svc.ListUserBookings(context.Background(), "u1")
	require.ErrorIs(t, err, boom)
}

func TestReleaseIfStale(t *testing.T) {
	ctx := context.Background()

	t.Run("releases once", func(t *testing.T) {
		h := newHarness(t, nil)
		b, err := h.book(t, "u1", "A1")
		require.NoError(t, err)
		h.clock.Advance(10 * time.Minute)

		released, err := h.svc.ReleaseIfStale(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, released)
		assert.Empty(t, h.store.occupancy(h.showID))

		released, err = h.svc.ReleaseIfStale(ctx, b.ID)
		require.ErrorIs(t, err, model.ErrBookingNotFound)
		assert.False(t, released)
		assert.Equal(t, 1, h.store.releaseCount())
	})

	t.Run("keeps pending inside window", func(t *testing.T) {
		h := newHarness(t, nil)
		b, err := h.book(t, "u1", "A1")
		require.NoError(t, err)
		h.clock.Advance(9 * time.Minute)

		released, err := h.svc.ReleaseIfStale(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, released)
		assert.Equal(t, map[string]string{"A1": "u1"}, h.store.occupancy(h.showID))
	})

	t.Run("keeps paid", func(t *testing.T) {
		h := newHarness(t, nil)
		b, err := h.book(t, "u1", "A1")
		require.NoError(t, err)
		_, err = h.svc.MarkPaid(ctx, b.ID)
		require.NoError(t, err)
		h.clock.Advance(time.Hour)

		released, err := h.svc.ReleaseIfStale(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, released)
		_, exists := h.store.booking(b.ID)
		assert.True(t, exists)
	})

	t.Run("payment after release is not found", func(t *testing.T) {
		h := newHarness(t, nil)
		b, err := h.book(t, "u1", "A1")
		require.NoError(t, err)
		h.clock.Advance(10 * time.Minute)
		_, err = h.svc.ReleaseIfStale(ctx, b.ID)
		require.NoError(t, err)

		_, err = h.svc.MarkPaid(ctx, b.ID)
		require.ErrorIs(t, err, model.ErrBookingNotFound)
	})
}
