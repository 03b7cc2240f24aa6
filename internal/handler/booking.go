package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/service"
)

// BookingHandler serves the authenticated booking endpoints.
type BookingHandler struct {
	Bookings BookingService
	Log      logrus.FieldLogger
}

// NewBookingHandler constructs a BookingHandler.  bookings must be non-nil.
func NewBookingHandler(bookings BookingService, log logrus.FieldLogger) *BookingHandler {
	if bookings == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Log: log}
}

type createBookingRequest struct {
	ShowID        uint64   `json:"show_id" validate:"required"`
	SelectedSeats []string `json:"selected_seats" validate:"required,min=1,dive,required,alphanum,max=8"`
}

// Create handles POST /v1/bookings.  It claims the selected seats and
// answers 201 with the pending booking and the checkout URL the client
// should redirect to.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "show_id and selected_seats are required"})
	}
	b, err := h.Bookings.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		UserID: userID,
		ShowID: body.ShowID,
		Seats:  body.SelectedSeats,
		Origin: requestOrigin(c),
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b, "url": b.PaymentLink})
}

// RegenerateLink handles POST /v1/bookings/:id/payment-link.
func (h *BookingHandler) RegenerateLink(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	link, err := h.Bookings.RegeneratePaymentLink(c.Request().Context(), userID, id, requestOrigin(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"url": link})
}

// ListMine handles GET /v1/me/bookings.  Only bookings that are paid or
// still inside their payment window are returned, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.Bookings.ListUserBookings(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": nonNil(bookings)})
}

// OccupiedSeats handles GET /v1/bookings/seats/:showId.
func (h *BookingHandler) OccupiedSeats(c echo.Context) error {
	showID, ok := parseID(c, "showId")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	seats, err := h.Bookings.OccupiedSeats(c.Request().Context(), showID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"occupied_seats": seats})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
