package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rackcentre/incident-logger/internal/core/domain"
)

// RequireAdmin rejects any request whose resolved user does not hold the
// admin role. It must run after Auth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, _ := c.Get(UserContextKey).(*domain.User)
			if user == nil || !user.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}
