package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user's id, or "" when the request did
// not pass through JWTAuth.
func UserID(c echo.Context) string {
	s, _ := c.Get(ContextUserID).(string)
	return s
}

// Role returns the authenticated user's role claim, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(ContextRole).(string)
	return s
}
