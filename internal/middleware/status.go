package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-seat-share/internal/model"
)

// RequireUserStatus returns a middleware that lets the request through only
// when the authenticated user's status is one of the given values.  It
// must run after JWTAuth.  A request without identity gets 401, a request
// with the wrong status gets 403.
func RequireUserStatus(statuses ...int) echo.MiddlewareFunc {
	allowed := make(map[int]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			if id.UserID == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if !allowed[id.UserStatus] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireActiveUser is RequireUserStatus(model.UserStatusActive).
func RequireActiveUser() echo.MiddlewareFunc {
	return RequireUserStatus(model.UserStatusActive)
}
