package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers and monitoring systems.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated catalog endpoints.  The
// movie listings go through cache, which is the Redis response cache (or a
// pass-through when caching is off).  Seat occupancy changes with every
// booking, so it is registered outside the cached group.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, b *handler.BookingHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/shows", cache)
	g.GET("", p.NowShowing)
	g.GET("/:movieId", p.MovieShows)

	e.GET("/v1/bookings/seats/:showId", b.OccupiedSeats)
}

// RegisterWebhook registers the payment gateway callback.  It carries no
// JWT; the handler authenticates the delivery by its signature.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/payments/webhook", w.Stripe)
}
