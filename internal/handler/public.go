package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// PublicHandler serves the unauthenticated catalog.  Responses carry no
// booking data so they can be cached.
type PublicHandler struct {
	Catalog Catalog
	Log     logrus.FieldLogger
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(catalog Catalog, log logrus.FieldLogger) *PublicHandler {
	if catalog == nil {
		panic("nil catalog passed to NewPublicHandler")
	}
	return &PublicHandler{Catalog: catalog, Log: log}
}

// NowShowing handles GET /v1/shows: movies with at least one upcoming show.
func (h *PublicHandler) NowShowing(c echo.Context) error {
	movies, err := h.Catalog.NowShowing(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": movies})
}

// MovieShows handles GET /v1/shows/:movieId.  Upcoming show times are
// grouped by date:
//
//	{"movie": {...}, "date_time": {"2026-10-19": [{"time": ..., "show_id": 3}]}}
func (h *PublicHandler) MovieShows(c echo.Context) error {
	movieID := strings.TrimSpace(c.Param("movieId"))
	if movieID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	movie, byDate, err := h.Catalog.MovieShowTimes(c.Request().Context(), movieID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movie": movie, "date_time": byDate})
}
