package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/middleware"
)

// RegisterBookings registers the booking and favorite endpoints under /v1.
// All routes require a valid JWT with the USER or ADMIN role, and limiter
// throttles them per user.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, favs *handler.FavoriteHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleUser, middleware.RoleAdmin),
		limiter,
	)
	g.POST("/bookings", h.Create)
	g.POST("/bookings/:id/payment-link", h.RegenerateLink)
	g.GET("/me/bookings", h.ListMine)

	g.GET("/me/favorites", favs.List)
	g.POST("/me/favorites/:movieId", favs.Toggle)
}
