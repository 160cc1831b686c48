package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/cafe-seat-share/internal/utils"
)

// TokenVerifier validates a raw access token.  utils.TokenIssuer satisfies it.
type TokenVerifier interface {
	Verify(raw string) (*utils.Claims, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's user id and status into the request context.  Handlers
// read them back with IdentityFrom.  Missing, malformed and expired tokens
// are all answered with 401; the body says which.
func JWTAuth(v TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := bearerToken(auth)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": utils.ErrTokenMissing.Error()})
			}

			claims, err := v.Verify(raw)
			if err != nil {
				msg := utils.ErrTokenMalformed.Error()
				if errors.Is(err, utils.ErrTokenExpired) {
					msg = utils.ErrTokenExpired.Error()
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}

			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextUserStatus, claims.UserStatus)
			return next(c)
		}
	}
}

// bearerToken strips the scheme from an Authorization header value.  The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}
