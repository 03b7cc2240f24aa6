package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/service"
)

// BookingService is the booking flow the handlers drive.
type BookingService interface {
	CreateBooking(ctx context.Context, in service.CreateBookingInput) (model.Booking, error)
	RegeneratePaymentLink(ctx context.Context, userID string, bookingID uint64, origin string) (string, error)
	ListUserBookings(ctx context.Context, userID string) ([]model.BookingDetail, error)
	ListAllBookings(ctx context.Context) ([]model.BookingDetail, error)
	OccupiedSeats(ctx context.Context, showID uint64) ([]string, error)
	MarkPaid(ctx context.Context, bookingID uint64) (bool, error)
}

// Catalog is the show schedule the public and admin handlers expose.
type Catalog interface {
	AddShows(ctx context.Context, in service.AddShowsInput) ([]model.Show, error)
	NowShowing(ctx context.Context) ([]model.Movie, error)
	MovieShowTimes(ctx context.Context, movieID string) (model.Movie, map[string][]model.ShowTime, error)
	UpcomingShows(ctx context.Context) ([]model.ShowWithMovie, error)
	Dashboard(ctx context.Context) (model.DashboardStats, error)
	DeleteMovieShows(ctx context.Context, movieID string) (int64, error)
}

// getUserID returns the authenticated user id set by the JWT middleware.
func getUserID(c echo.Context) (string, error) {
	if uid := middleware.UserID(c); uid != "" {
		return uid, nil
	}
	return "", errors.New("invalid user_id in context")
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// requestOrigin is where checkout redirects send the user back to: the
// Origin header, else the scheme and host of the Referer, else this
// server.
func requestOrigin(c echo.Context) string {
	r := c.Request()
	if o := r.Header.Get(echo.HeaderOrigin); o != "" && o != "null" {
		return o
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Scheme != "" && ref.Host != "" {
		return ref.Scheme + "://" + ref.Host
	}
	return c.Scheme() + "://" + r.Host
}

// writeError maps service and repository errors to status codes.
// Unexpected errors are logged and answered with a generic 500.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	switch {
	case errors.Is(err, model.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrSeatsUnavailable),
		errors.Is(err, model.ErrAlreadyPaid),
		errors.Is(err, model.ErrShowBusy):
		return c.JSON(http.StatusConflict, echo.Map{"error": rootMessage(err)})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "shows still have bookings"})
	case errors.Is(err, model.ErrShowNotFound),
		errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrMovieNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": rootMessage(err)})
	case errors.Is(err, model.ErrNotBookingOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, model.ErrBookingExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": model.ErrBookingExpired.Error()})
	case errors.Is(err, model.ErrPaymentUnavailable):
		log.WithError(err).Error("payment gateway failure")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": model.ErrPaymentUnavailable.Error()})
	}
	log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// rootMessage returns the message of the sentinel err wraps.
func rootMessage(err error) string {
	for _, s := range []error{
		model.ErrSeatsUnavailable, model.ErrAlreadyPaid, model.ErrShowBusy,
		model.ErrShowNotFound, model.ErrBookingNotFound, model.ErrMovieNotFound,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
