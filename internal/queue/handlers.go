package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/model"
)

// BookingLog appends one line per paid booking to booking.log in dir.
type BookingLog struct {
	dir string
	mu  sync.Mutex
}

// NewBookingLog returns a BookingLog writing under dir.
func NewBookingLog(dir string) *BookingLog {
	return &BookingLog{dir: dir}
}

// Handle decodes a BookingPaidEvent and writes it in a single-line,
// human-friendly format.
func (l *BookingLog) Handle(_ context.Context, body []byte) error {
	var ev BookingPaidEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] Booking paid | booking_id=%d | user_id=%s | show_id=%d | movie=%q | total=%d cents | seats=[%s]\n",
		ev.PaidAt, ev.BookingID, ev.UserID, ev.ShowID, ev.MovieTitle, ev.AmountCents, strings.Join(ev.Seats, ","))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// PaymentChecker releases a booking that is still unpaid after its window.
type PaymentChecker interface {
	ReleaseIfStale(ctx context.Context, bookingID uint64) (bool, error)
}

// PaymentCheckHandler returns a Handler that runs the deferred payment
// check.  A booking that no longer exists needs no action.
func PaymentCheckHandler(checker PaymentChecker, log logrus.FieldLogger) Handler {
	return func(ctx context.Context, body []byte) error {
		var task PaymentCheckTask
		if err := json.Unmarshal(body, &task); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if task.BookingID == 0 {
			return errors.New("payment check without booking id")
		}
		released, err := checker.ReleaseIfStale(ctx, task.BookingID)
		if err != nil && !errors.Is(err, model.ErrBookingNotFound) {
			return err
		}
		if released {
			log.WithField("booking_id", task.BookingID).Info("released unpaid booking")
		}
		return nil
	}
}
