package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// IsStale reports whether b is pending and was created at or before
// now - window.
func IsStale(b model.Booking, now time.Time, window time.Duration) bool {
	return !b.IsPaid && !b.CreatedAt.After(now.Add(-window))
}

// PartitionBookings splits bookings into those still valid at now (paid,
// or pending inside the window) and stale ones.  Order is preserved.
func PartitionBookings(bookings []model.BookingDetail, now time.Time, window time.Duration) (valid, stale []model.BookingDetail) {
	valid = make([]model.BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		if IsStale(b.Booking, now, window) {
			stale = append(stale, b)
			continue
		}
		valid = append(valid, b)
	}
	return valid, stale
}

// ListUserBookings returns the valid bookings of userID, newest first.
// Stale bookings found on the way are released in the background.
func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	if userID == "" {
		return nil, validationErr("user is required")
	}
	return s.listValid(ctx, userID)
}

// ListAllBookings is ListUserBookings across every user.
func (s *BookingService) ListAllBookings(ctx context.Context) ([]model.BookingDetail, error) {
	return s.listValid(ctx, "")
}

func (s *BookingService) listValid(ctx context.Context, userID string) ([]model.BookingDetail, error) {
	all, err := s.repo.ListBookings(ctx, userID)
	if err != nil {
		return nil, err
	}
	valid, stale := PartitionBookings(all, s.clock.Now(), s.expiry)
	if len(stale) > 0 {
		ids := make([]uint64, len(stale))
		for i, b := range stale {
			ids[i] = b.ID
		}
		s.async(func() { s.sweep(ids) })
	}
	return valid, nil
}

func (s *BookingService) sweep(ids []uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, id := range ids {
		if _, err := s.ReleaseIfStale(ctx, id); err != nil && !errors.Is(err, model.ErrBookingNotFound) {
			s.log.WithError(err).WithField("booking_id", id).Warn("release stale booking failed")
		}
	}
}

// ReleaseIfStale deletes a booking and frees its seats if it is still
// unpaid past the expiry window.  The decision is re-made on the locked
// row inside the show's critical section, so a booking paid or released
// concurrently is left alone.  It reports whether this call released it.
func (s *BookingService) ReleaseIfStale(ctx context.Context, bookingID uint64) (bool, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if b.IsPaid {
		return false, nil
	}
	released := false
	err = s.withShowLock(ctx, b.ShowID, func(ctx context.Context) error {
		if _, err := s.repo.GetShowForUpdate(ctx, b.ShowID); err != nil {
			return err
		}
		cur, err := s.repo.GetBookingForUpdate(ctx, bookingID)
		if errors.Is(err, model.ErrBookingNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !IsStale(cur, s.clock.Now(), s.expiry) {
			return nil
		}
		n, err := s.repo.ReleaseBooking(ctx, cur)
		if err != nil {
			return err
		}
		released = true
		s.log.WithField("booking_id", cur.ID).WithField("show_id", cur.ShowID).
			WithField("seats", n).Info("expired booking released")
		return nil
	})
	return released, err
}
