package service

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/iliyamo/movie-booking/internal/model"
)

var seatLabelRe = regexp.MustCompile(`^[A-Za-z0-9]{1,8}$`)

// SeatsAvailable reports whether every requested seat is either free or
// held by excludeUserID.  An empty excludeUserID excludes nobody.
func SeatsAvailable(occupied map[string]string, requested []string, excludeUserID string) bool {
	for _, seat := range requested {
		holder, taken := occupied[seat]
		if !taken {
			continue
		}
		if excludeUserID == "" || holder != excludeUserID {
			return false
		}
	}
	return true
}

// normalizeSeats validates seat labels and drops duplicates, keeping the
// first occurrence of each.
func normalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, validationErr("at least one seat is required")
	}
	seen := make(map[string]struct{}, len(seats))
	out := make([]string, 0, len(seats))
	for _, raw := range seats {
		seat := strings.TrimSpace(raw)
		if !seatLabelRe.MatchString(seat) {
			return nil, validationErr("invalid seat label %q", raw)
		}
		if _, dup := seen[seat]; dup {
			continue
		}
		seen[seat] = struct{}{}
		out = append(out, seat)
	}
	return out, nil
}

// CheckSeatsAvailability reports whether seats of showID can be booked.
// Seats held by the user of excludeBookingID count as available, so a
// booking can be re-validated against its own claims.  A missing show or
// any lookup failure yields false.
func (s *BookingService) CheckSeatsAvailability(ctx context.Context, showID uint64, seats []string, excludeBookingID uint64) bool {
	show, err := s.repo.GetShow(ctx, showID)
	if err != nil {
		if !errors.Is(err, model.ErrShowNotFound) {
			s.log.WithError(err).WithField("show_id", showID).Warn("availability lookup failed")
		}
		return false
	}
	exclude := ""
	if excludeBookingID != 0 {
		b, err := s.repo.GetBooking(ctx, excludeBookingID)
		switch {
		case err == nil:
			exclude = b.UserID
		case errors.Is(err, model.ErrBookingNotFound):
		default:
			s.log.WithError(err).WithField("booking_id", excludeBookingID).Warn("availability lookup failed")
			return false
		}
	}
	return SeatsAvailable(show.OccupiedSeats, seats, exclude)
}

// OccupiedSeats returns the held seat labels of a show in sorted order.
func (s *BookingService) OccupiedSeats(ctx context.Context, showID uint64) ([]string, error) {
	show, err := s.repo.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(show.OccupiedSeats))
	for seat := range show.OccupiedSeats {
		out = append(out, seat)
	}
	sort.Strings(out)
	return out, nil
}
