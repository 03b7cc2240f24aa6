package model

import "errors"

// Sentinel errors shared by the repository, service and handler layers.
// Callers wrap them with context and compare with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrSeatsUnavailable   = errors.New("selected seats are not available")
	ErrShowBusy           = errors.New("show is busy, try again")
	ErrShowNotFound       = errors.New("show not found")
	ErrMovieNotFound      = errors.New("movie not found")
	ErrBookingNotFound    = errors.New("booking not found")
	ErrNotBookingOwner    = errors.New("booking belongs to another user")
	ErrAlreadyPaid        = errors.New("booking is already paid")
	ErrBookingExpired     = errors.New("booking has expired")
	ErrPaymentUnavailable = errors.New("payment service unavailable")
)
