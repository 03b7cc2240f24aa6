package model

import "time"

// Show represents a scheduled screening of a cached movie.  The seat
// occupancy map is assembled from the show_occupied_seats table and maps a
// seat label (e.g. "A1") to the id of the user currently holding it.
//
// Fields:
//
//	ID            – primary key identifier.
//	MovieID       – external catalog id of the movie being screened.
//	StartsAt      – when the show begins (UTC).
//	PriceCents    – price of a single seat in cents.
//	OccupiedSeats – seat label → holding user id.
//	CreatedAt     – creation timestamp.
type Show struct {
	ID            uint64            `json:"id"`             // shows.id
	MovieID       string            `json:"movie_id"`       // shows.movie_id
	StartsAt      time.Time         `json:"starts_at"`      // shows.starts_at
	PriceCents    uint64            `json:"price_cents"`    // shows.price_cents
	OccupiedSeats map[string]string `json:"occupied_seats"` // show_occupied_seats rows
	CreatedAt     time.Time         `json:"created_at"`     // shows.created_at
}

// ShowWithMovie pairs a show with the cached metadata of its movie.  It is
// used by admin listings and the dashboard.
type ShowWithMovie struct {
	Show
	Movie Movie `json:"movie"`
}

// ShowTime is a single upcoming screening of a movie on a given date.
type ShowTime struct {
	Time   time.Time `json:"time"`
	ShowID uint64    `json:"show_id"`
}
