package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rackcentre/incident-logger/internal/api/middleware"
	"github.com/rackcentre/incident-logger/internal/core/domain"
)

// currentUser extracts the user resolved by the Auth middleware. A nil user
// means the route was wired without the middleware; fail closed.
func currentUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get(middleware.UserContextKey).(*domain.User)
	if user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return user, nil
}
