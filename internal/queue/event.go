// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumers that move them.
package queue

// Queue names.  PaymentCheckWaitQueue has no consumer: messages sit there
// until their per-message TTL lapses and are then dead-lettered into
// PaymentCheckQueue.
const (
	BookingPaidQueue      = "booking.paid"
	PaymentCheckQueue     = "booking.payment-check"
	PaymentCheckWaitQueue = "booking.payment-check.wait"
)

// BookingPaidEvent is published the first time a booking is confirmed paid.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type BookingPaidEvent struct {
	BookingID   uint64   `json:"booking_id"`
	UserID      string   `json:"user_id"`
	ShowID      uint64   `json:"show_id"`
	MovieTitle  string   `json:"movie_title,omitempty"`
	Seats       []string `json:"seats"`
	AmountCents uint64   `json:"amount_cents"`
	PaidAt      string   `json:"paid_at"`
}

// PaymentCheckTask asks the worker to look at a booking once its payment
// window has passed and release it if it is still unpaid.
type PaymentCheckTask struct {
	BookingID   uint64 `json:"booking_id"`
	ScheduledAt string `json:"scheduled_at"`
}
