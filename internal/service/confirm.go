package service

import (
	"context"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/queue"
)

// MarkPaid records that a booking's payment went through.  Repeated calls
// are harmless: only the call that flips the flag reports true and
// publishes a BookingPaidEvent.  A booking that no longer exists yields
// model.ErrBookingNotFound.
func (s *BookingService) MarkPaid(ctx context.Context, bookingID uint64) (bool, error) {
	var (
		b       model.Booking
		flipped bool
		paidAt  = s.clock.Now()
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if cur.IsPaid {
			return nil
		}
		ok, err := s.repo.MarkPaid(ctx, bookingID, paidAt)
		if err != nil {
			return err
		}
		b, flipped = cur, ok
		return nil
	})
	if err != nil || !flipped {
		return false, err
	}

	log := s.log.WithField("booking_id", bookingID)
	log.Info("booking paid")
	ev := queue.BookingPaidEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		Seats:       b.BookedSeats,
		AmountCents: b.AmountCents,
		PaidAt:      paidAt.Format(time.RFC3339),
	}
	if show, err := s.repo.GetShow(ctx, b.ShowID); err == nil {
		if movie, err := s.repo.GetMovie(ctx, show.MovieID); err == nil {
			ev.MovieTitle = movie.Title
		}
	}
	if err := s.publisher.PublishBookingPaid(ctx, ev); err != nil {
		log.WithError(err).Warn("publish booking paid failed")
	}
	return true, nil
}
