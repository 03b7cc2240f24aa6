package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/model"
)

// Favorites is the per-user favorite movie list.
type Favorites interface {
	ToggleFavorite(ctx context.Context, userID, movieID string) (bool, error)
	FavoriteMovies(ctx context.Context, userID string) ([]model.Movie, error)
}

// FavoriteHandler serves the signed-in user's favorite movies.
type FavoriteHandler struct {
	Favorites Favorites
	Log       logrus.FieldLogger
}

// NewFavoriteHandler constructs a FavoriteHandler.
func NewFavoriteHandler(favs Favorites, log logrus.FieldLogger) *FavoriteHandler {
	if favs == nil {
		panic("nil favorites passed to NewFavoriteHandler")
	}
	return &FavoriteHandler{Favorites: favs, Log: log}
}

// Toggle handles POST /v1/me/favorites/:movieId.  The movie is added when
// it is not a favorite yet and removed otherwise; favorite reports the
// state afterwards.
func (h *FavoriteHandler) Toggle(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	movieID := strings.TrimSpace(c.Param("movieId"))
	if movieID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	on, err := h.Favorites.ToggleFavorite(c.Request().Context(), uid, movieID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movie_id": movieID, "favorite": on})
}

// List handles GET /v1/me/favorites.
func (h *FavoriteHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	movies, err := h.Favorites.FavoriteMovies(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": nonNil(movies)})
}
