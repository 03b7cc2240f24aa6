package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/middleware"
)

// RegisterAdmin registers the schedule management and reporting endpoints
// under /v1/admin.  Every route requires the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.GET("/is-admin", h.IsAdmin)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/shows", h.Shows)
	g.GET("/bookings", h.AllBookings)

	// Changing the schedule invalidates the cached catalog responses.
	g.POST("/shows", h.AddShows)
	g.DELETE("/movies/:movieId/shows", h.DeleteMovieShows)
}
