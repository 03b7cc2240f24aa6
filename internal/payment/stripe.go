package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// Metadata key under which the booking id travels with a session.
const correlationKey = "booking_id"

// Checkout session events that confirm payment.  An async payment method
// completes the session first and reports success later.
const (
	eventSessionCompleted      = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// StripeGateway implements Gateway with Stripe Checkout.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// StripeOption customizes a StripeGateway.
type StripeOption func(*stripeOptions)

type stripeOptions struct {
	backends *stripe.Backends
}

// WithBackends points the client at custom backends, e.g. a local test
// server.
func WithBackends(b *stripe.Backends) StripeOption {
	return func(o *stripeOptions) { o.backends = b }
}

// NewStripeGateway builds a gateway for the given API key and webhook
// endpoint secret.
func NewStripeGateway(secretKey, webhookSecret string, opts ...StripeOption) *StripeGateway {
	var o stripeOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &StripeGateway{
		api:           client.New(secretKey, o.backends),
		webhookSecret: webhookSecret,
	}
}

// CreateSession creates a one-item payment-mode checkout session.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
				UnitAmount: stripe.Int64(req.AmountCents),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	params.Context = ctx
	params.AddMetadata(correlationKey, req.CorrelationID)

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the
// booking id and payment state of checkout session events.  Other event
// types come back with an empty CorrelationID.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := WebhookEvent{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != eventSessionCompleted && out.Type != eventAsyncPaymentSucceeded {
		return out, nil
	}
	if ev.Data == nil {
		return out, fmt.Errorf("event %s has no data", ev.ID)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		return out, fmt.Errorf("decode checkout session: %w", err)
	}
	out.CorrelationID = s.Metadata[correlationKey]
	out.Paid = s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid
	return out, nil
}
