package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/payment"
)

// CreateBookingInput carries a booking request.  Origin is the scheme and
// host of the client application; checkout redirects point back to it.
type CreateBookingInput struct {
	UserID string
	ShowID uint64
	Seats  []string
	Origin string
}

// CreateBooking claims seats for a user and opens a checkout session for
// them.  Seats are checked and claimed inside the show's critical section;
// the session is created after it is left.  If no session can be created
// the booking is removed again and model.ErrPaymentUnavailable is
// returned.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (model.Booking, error) {
	if in.UserID == "" {
		return model.Booking{}, validationErr("user is required")
	}
	seats, err := normalizeSeats(in.Seats)
	if err != nil {
		return model.Booking{}, err
	}
	show, err := s.repo.GetShow(ctx, in.ShowID)
	if err != nil {
		return model.Booking{}, err
	}
	movie, err := s.repo.GetMovie(ctx, show.MovieID)
	if err != nil {
		return model.Booking{}, err
	}

	var b model.Booking
	err = s.withShowLock(ctx, in.ShowID, func(ctx context.Context) error {
		locked, err := s.repo.GetShowForUpdate(ctx, in.ShowID)
		if err != nil {
			return err
		}
		if locked.PriceCents == 0 {
			return validationErr("show has no price")
		}
		if !SeatsAvailable(locked.OccupiedSeats, seats, "") {
			return model.ErrSeatsUnavailable
		}
		b = model.Booking{
			UserID:      in.UserID,
			ShowID:      in.ShowID,
			BookedSeats: seats,
			AmountCents: locked.PriceCents * uint64(len(seats)),
			CreatedAt:   s.clock.Now(),
		}
		if err := s.repo.CreateBooking(ctx, &b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return s.repo.ClaimSeats(ctx, in.ShowID, b.ID, in.UserID, seats)
	})
	if err != nil {
		return model.Booking{}, err
	}

	log := s.log.WithField("booking_id", b.ID).WithField("show_id", b.ShowID)
	link, err := s.openSession(ctx, b, movie.Title, in.Origin)
	if err != nil {
		log.WithError(err).Error("payment session failed; rolling back booking")
		s.compensate(ctx, b)
		return model.Booking{}, fmt.Errorf("%w: %v", model.ErrPaymentUnavailable, err)
	}
	if err := s.repo.SetPaymentLink(ctx, b.ID, link); err != nil {
		log.WithError(err).Error("store payment link failed; rolling back booking")
		s.compensate(ctx, b)
		return model.Booking{}, fmt.Errorf("store payment link: %w", err)
	}
	b.PaymentLink = link
	s.schedulePaymentCheck(ctx, b.ID)

	log.WithField("seats", strings.Join(seats, ",")).Info("booking created")
	return b, nil
}

// RegeneratePaymentLink issues a fresh checkout session for a pending
// booking of userID and stores its URL.  Nothing changes when the booking
// is rejected.
func (s *BookingService) RegeneratePaymentLink(ctx context.Context, userID string, bookingID uint64, origin string) (string, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.UserID != userID {
		return "", model.ErrNotBookingOwner
	}
	if b.IsPaid {
		return "", model.ErrAlreadyPaid
	}
	if IsStale(b, s.clock.Now(), s.expiry) {
		return "", model.ErrBookingExpired
	}
	if !s.CheckSeatsAvailability(ctx, b.ShowID, b.BookedSeats, b.ID) {
		return "", model.ErrSeatsUnavailable
	}
	show, err := s.repo.GetShow(ctx, b.ShowID)
	if err != nil {
		return "", err
	}
	movie, err := s.repo.GetMovie(ctx, show.MovieID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(movie.Title) == "" {
		return "", validationErr("movie has no title")
	}
	if b.AmountCents == 0 {
		return "", validationErr("booking amount must be positive")
	}

	link, err := s.openSession(ctx, b, movie.Title, origin)
	if err != nil {
		s.log.WithError(err).WithField("booking_id", b.ID).Error("payment session failed")
		return "", fmt.Errorf("%w: %v", model.ErrPaymentUnavailable, err)
	}
	if err := s.repo.SetPaymentLink(ctx, b.ID, link); err != nil {
		return "", fmt.Errorf("store payment link: %w", err)
	}
	s.schedulePaymentCheck(ctx, b.ID)
	return link, nil
}

func (s *BookingService) openSession(ctx context.Context, b model.Booking, title, origin string) (string, error) {
	origin = strings.TrimRight(origin, "/")
	sess, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		AmountCents:   int64(b.AmountCents),
		Currency:      s.currency,
		Description:   title,
		SuccessURL:    origin + "/loading/my-bookings",
		CancelURL:     origin + "/my-bookings",
		CorrelationID: strconv.FormatUint(b.ID, 10),
		ExpiresAt:     s.clock.Now().Add(s.sessionTTL),
	})
	if err != nil {
		return "", err
	}
	if sess.URL == "" {
		return "", errors.New("checkout session has no url")
	}
	return sess.URL, nil
}

// compensate removes a booking whose payment session could not be set up.
// It runs detached from the request context so a cancelled request still
// frees the seats.
func (s *BookingService) compensate(ctx context.Context, b model.Booking) {
	ctx = context.WithoutCancel(ctx)
	err := s.withShowLock(ctx, b.ShowID, func(ctx context.Context) error {
		cur, err := s.repo.GetBookingForUpdate(ctx, b.ID)
		if err != nil {
			return err
		}
		if cur.IsPaid {
			return nil
		}
		_, err = s.repo.ReleaseBooking(ctx, cur)
		return err
	})
	if err != nil && !errors.Is(err, model.ErrBookingNotFound) {
		s.log.WithError(err).WithField("booking_id", b.ID).Error("roll back booking failed")
	}
}

func (s *BookingService) schedulePaymentCheck(ctx context.Context, bookingID uint64) {
	if err := s.scheduler.SchedulePaymentCheck(ctx, bookingID, s.checkDelay); err != nil {
		s.log.WithError(err).WithField("booking_id", bookingID).Warn("schedule payment check failed")
	}
}
