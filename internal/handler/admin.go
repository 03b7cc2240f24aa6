package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/service"
)

// AdminHandler serves the ADMIN-only schedule and reporting endpoints.
// Invalidate, when set, is called after the schedule changes so cached
// catalog responses are dropped.
type AdminHandler struct {
	Catalog    Catalog
	Bookings   BookingService
	Invalidate func(ctx context.Context)
	Log        logrus.FieldLogger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(catalog Catalog, bookings BookingService, invalidate func(ctx context.Context), log logrus.FieldLogger) *AdminHandler {
	if catalog == nil || bookings == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Catalog: catalog, Bookings: bookings, Invalidate: invalidate, Log: log}
}

// IsAdmin handles GET /v1/admin/is-admin.  Reaching it means the role
// check passed.
func (h *AdminHandler) IsAdmin(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"is_admin": true})
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	stats, err := h.Catalog.Dashboard(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Shows handles GET /v1/admin/shows.
func (h *AdminHandler) Shows(c echo.Context) error {
	shows, err := h.Catalog.UpcomingShows(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"shows": shows})
}

// AllBookings handles GET /v1/admin/bookings: every user's valid bookings.
func (h *AdminHandler) AllBookings(c echo.Context) error {
	bookings, err := h.Bookings.ListAllBookings(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": nonNil(bookings)})
}

type movieRequest struct {
	ID               string   `json:"id" validate:"required,max=64"`
	Title            string   `json:"title" validate:"required,max=255"`
	Overview         string   `json:"overview"`
	PosterPath       string   `json:"poster_path" validate:"max=255"`
	BackdropPath     string   `json:"backdrop_path" validate:"max=255"`
	Genres           []string `json:"genres"`
	ReleaseDate      string   `json:"release_date" validate:"max=10"`
	OriginalLanguage string   `json:"original_language" validate:"max=16"`
	Tagline          string   `json:"tagline" validate:"max=255"`
	VoteAverage      float64  `json:"vote_average" validate:"gte=0,lte=10"`
	Runtime          uint32   `json:"runtime"`
}

type showSlotRequest struct {
	Date string   `json:"date"`
	Time []string `json:"time"`
}

type addShowsRequest struct {
	Movie      movieRequest      `json:"movie" validate:"required"`
	ShowsInput []showSlotRequest `json:"shows_input" validate:"required,min=1"`
	ShowPrice  uint64            `json:"show_price" validate:"required,gt=0"`
}

// AddShows handles POST /v1/admin/shows.  The movie is cached on first
// use; malformed date or time entries are skipped.
func (h *AdminHandler) AddShows(c echo.Context) error {
	var body addShowsRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie, shows_input and show_price are required"})
	}
	m := body.Movie
	in := service.AddShowsInput{
		Movie: model.Movie{
			ID:               strings.TrimSpace(m.ID),
			Title:            m.Title,
			Overview:         m.Overview,
			PosterPath:       m.PosterPath,
			BackdropPath:     m.BackdropPath,
			Genres:           m.Genres,
			ReleaseDate:      m.ReleaseDate,
			OriginalLanguage: m.OriginalLanguage,
			Tagline:          m.Tagline,
			VoteAverage:      m.VoteAverage,
			Runtime:          m.Runtime,
		},
		PriceCents: body.ShowPrice,
	}
	for _, s := range body.ShowsInput {
		in.Slots = append(in.Slots, service.ShowSlot{Date: s.Date, Times: s.Time})
	}
	shows, err := h.Catalog.AddShows(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.invalidate(c)
	return c.JSON(http.StatusCreated, echo.Map{"shows": shows})
}

// DeleteMovieShows handles DELETE /v1/admin/movies/:movieId/shows.
func (h *AdminHandler) DeleteMovieShows(c echo.Context) error {
	movieID := strings.TrimSpace(c.Param("movieId"))
	if movieID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	n, err := h.Catalog.DeleteMovieShows(c.Request().Context(), movieID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

func (h *AdminHandler) invalidate(c echo.Context) {
	if h.Invalidate != nil {
		h.Invalidate(context.WithoutCancel(c.Request().Context()))
	}
}
