package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/payment"
)

// maxWebhookBody caps the payload read from the gateway.
const maxWebhookBody = 64 << 10

// WebhookParser verifies and decodes a payment gateway delivery.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (payment.WebhookEvent, error)
}

// WebhookHandler receives payment confirmations.
type WebhookHandler struct {
	Parser   WebhookParser
	Bookings BookingService
	Log      logrus.FieldLogger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(parser WebhookParser, bookings BookingService, log logrus.FieldLogger) *WebhookHandler {
	if parser == nil || bookings == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{Parser: parser, Bookings: bookings, Log: log}
}

// Stripe handles POST /v1/payments/webhook.  Deliveries with a bad
// signature get 400.  Paid checkout sessions mark their booking paid; all
// other events, and confirmations for bookings that no longer exist, are
// acknowledged with 200 so the gateway stops redelivering them.  Only a
// failure to record the payment answers 500, which makes the gateway retry.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	ev, err := h.Parser.ParseWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
		}
		h.Log.WithError(err).Warn("webhook: undecodable event")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}
	log := h.Log.WithField("event_id", ev.ID).WithField("event_type", ev.Type)
	if ev.CorrelationID == "" || !ev.Paid {
		log.Debug("webhook: event ignored")
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}
	bookingID, err := strconv.ParseUint(ev.CorrelationID, 10, 64)
	if err != nil {
		log.WithField("correlation_id", ev.CorrelationID).Warn("webhook: malformed booking id")
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}
	log = log.WithField("booking_id", bookingID)
	if _, err := h.Bookings.MarkPaid(c.Request().Context(), bookingID); err != nil {
		if errors.Is(err, model.ErrBookingNotFound) {
			log.Warn("webhook: payment for a booking that no longer exists")
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		log.WithError(err).Error("webhook: mark paid failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
