// Package payment bridges bookings to a hosted checkout provider.  A
// checkout session is created per booking with the booking id as its
// correlation id, and the provider's signed webhook tells us when it was
// paid.
package payment

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidSignature is returned when a webhook payload does not carry a
// valid signature for the configured endpoint secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// SessionRequest describes a checkout session for one booking.
type SessionRequest struct {
	AmountCents   int64
	Currency      string
	Description   string
	SuccessURL    string
	CancelURL     string
	CorrelationID string
	ExpiresAt     time.Time
}

// Session is a created checkout session.
type Session struct {
	ID  string
	URL string
}

// WebhookEvent is the part of a provider event the booking flow cares
// about.  CorrelationID is empty for events that do not concern a
// checkout session.
type WebhookEvent struct {
	ID            string
	Type          string
	CorrelationID string
	Paid          bool
}

// Gateway creates checkout sessions and verifies webhook deliveries.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}
