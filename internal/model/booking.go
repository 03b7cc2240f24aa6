package model

import "time"

// Booking records a user's claim on one or more seats of a show.  A booking
// starts pending (IsPaid=false), becomes paid when the payment gateway
// confirms the checkout session, and is deleted together with its seat
// claims when it stays pending past the expiry window.
//
// Fields:
//
//	ID          – primary key identifier, also the payment correlation id.
//	UserID      – identity-provider id of the booking user.
//	ShowID      – show being booked.
//	BookedSeats – seat labels in the order the user picked them.
//	AmountCents – price × seat count at creation time.
//	IsPaid      – whether payment has been confirmed.
//	PaymentLink – latest checkout URL handed to the user.
//	CreatedAt   – creation timestamp; the expiry window starts here.
type Booking struct {
	ID          uint64     `json:"id"`
	UserID      string     `json:"user_id"`
	ShowID      uint64     `json:"show_id"`
	BookedSeats []string   `json:"booked_seats"`
	AmountCents uint64     `json:"amount_cents"`
	IsPaid      bool       `json:"is_paid"`
	PaymentLink string     `json:"payment_link,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BookingDetail is a booking joined with the show and movie data that
// booking listings display.
type BookingDetail struct {
	Booking
	ShowStartsAt time.Time `json:"show_starts_at"`
	MovieID      string    `json:"movie_id"`
	MovieTitle   string    `json:"movie_title"`
	PosterPath   string    `json:"poster_path"`
	Runtime      uint32    `json:"runtime"`
}

// DashboardStats aggregates paid bookings for the admin dashboard.
type DashboardStats struct {
	TotalBookings int             `json:"total_bookings"`
	TotalRevenue  uint64          `json:"total_revenue_cents"`
	TotalUsers    int             `json:"total_users"`
	ActiveShows   []ShowWithMovie `json:"active_shows"`
}
