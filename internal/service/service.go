// Package service implements the booking flow: seat availability, booking
// creation against a payment session, link regeneration, payment
// confirmation and the release of bookings left unpaid past the expiry
// window.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/clock"
	"github.com/iliyamo/movie-booking/internal/lock"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/payment"
	"github.com/iliyamo/movie-booking/internal/queue"
)

// Repository is the persistence the booking flow needs.  Methods called
// from inside WithTx's fn join that transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetShow(ctx context.Context, id uint64) (model.Show, error)
	GetShowForUpdate(ctx context.Context, id uint64) (model.Show, error)
	GetMovie(ctx context.Context, id string) (model.Movie, error)
	ClaimSeats(ctx context.Context, showID, bookingID uint64, userID string, seats []string) error

	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	GetBookingForUpdate(ctx context.Context, id uint64) (model.Booking, error)
	ListBookings(ctx context.Context, userID string) ([]model.BookingDetail, error)
	SetPaymentLink(ctx context.Context, id uint64, link string) error
	MarkPaid(ctx context.Context, id uint64, at time.Time) (bool, error)
	ReleaseBooking(ctx context.Context, b model.Booking) (int, error)
}

// PaymentGateway opens checkout sessions.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
}

// TaskScheduler submits the deferred "check payment later" task.
type TaskScheduler interface {
	SchedulePaymentCheck(ctx context.Context, bookingID uint64, delay time.Duration) error
}

// EventPublisher announces bookings that became paid.
type EventPublisher interface {
	PublishBookingPaid(ctx context.Context, ev queue.BookingPaidEvent) error
}

type nopScheduler struct{}

func (nopScheduler) SchedulePaymentCheck(context.Context, uint64, time.Duration) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishBookingPaid(context.Context, queue.BookingPaidEvent) error { return nil }

// BookingService coordinates the booking lifecycle.
type BookingService struct {
	repo      Repository
	locker    lock.Locker
	gateway   PaymentGateway
	scheduler TaskScheduler
	publisher EventPublisher
	clock     clock.Clock
	log       logrus.FieldLogger

	expiry     time.Duration
	checkDelay time.Duration
	currency   string
	sessionTTL time.Duration
	async      func(func())
}

// Option customizes a BookingService.
type Option func(*BookingService)

// WithExpiry sets how long a pending booking keeps its seats.
func WithExpiry(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithPaymentCheckDelay sets when the deferred payment check fires.
func WithPaymentCheckDelay(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.checkDelay = d
		}
	}
}

// WithCurrency sets the ISO currency code of checkout sessions.
func WithCurrency(c string) Option {
	return func(s *BookingService) {
		if c != "" {
			s.currency = c
		}
	}
}

// WithSessionTTL sets how long a checkout session stays open.
func WithSessionTTL(d time.Duration) Option {
	return func(s *BookingService) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithScheduler sets the deferred payment check scheduler.
func WithScheduler(ts TaskScheduler) Option {
	return func(s *BookingService) {
		if ts != nil {
			s.scheduler = ts
		}
	}
}

// WithPublisher sets the publisher of booking-paid events.
func WithPublisher(p EventPublisher) Option {
	return func(s *BookingService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *BookingService) {
		if log != nil {
			s.log = log
		}
	}
}

// WithAsync replaces how background sweeps are started.  Tests pass a
// function that runs the sweep inline.
func WithAsync(run func(func())) Option {
	return func(s *BookingService) {
		if run != nil {
			s.async = run
		}
	}
}

// NewBookingService returns a service with a ten minute expiry window, a
// payment check at the end of that window and thirty minute USD checkout
// sessions unless overridden by opts.
func NewBookingService(repo Repository, locker lock.Locker, gateway PaymentGateway, clk clock.Clock, opts ...Option) *BookingService {
	s := &BookingService{
		repo:       repo,
		locker:     locker,
		gateway:    gateway,
		scheduler:  nopScheduler{},
		publisher:  nopPublisher{},
		clock:      clk,
		log:        logrus.StandardLogger(),
		expiry:     10 * time.Minute,
		currency:   "usd",
		sessionTTL: 30 * time.Minute,
		async:      func(fn func()) { go fn() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.checkDelay <= 0 {
		s.checkDelay = s.expiry
	}
	return s
}

// withShowLock runs fn inside the per-show critical section: the
// distributed show lock plus a database transaction.  fn is expected to
// re-read the show with GetShowForUpdate before touching its occupancy.
func (s *BookingService) withShowLock(ctx context.Context, showID uint64, fn func(ctx context.Context) error) error {
	unlock, err := s.locker.Lock(ctx, lock.ShowKey(showID))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return model.ErrShowBusy
		}
		return fmt.Errorf("lock show %d: %w", showID, err)
	}
	defer unlock()
	return s.repo.WithTx(ctx, fn)
}
