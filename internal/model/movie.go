package model

import "time"

// Movie is a cached mirror of an external catalog entry.  Rows are inserted
// once, keyed by the catalog id, and never updated afterwards.
type Movie struct {
	ID               string    `json:"id"`                // movies.id (external catalog id)
	Title            string    `json:"title"`             // movies.title
	Overview         string    `json:"overview"`          // movies.overview
	PosterPath       string    `json:"poster_path"`       // movies.poster_path
	BackdropPath     string    `json:"backdrop_path"`     // movies.backdrop_path
	Genres           []string  `json:"genres"`            // movies.genres (JSON array)
	ReleaseDate      string    `json:"release_date"`      // movies.release_date (YYYY-MM-DD)
	OriginalLanguage string    `json:"original_language"` // movies.original_language
	Tagline          string    `json:"tagline"`           // movies.tagline
	VoteAverage      float64   `json:"vote_average"`      // movies.vote_average
	Runtime          uint32    `json:"runtime"`           // movies.runtime in minutes
	CreatedAt        time.Time `json:"created_at"`        // movies.created_at
}
