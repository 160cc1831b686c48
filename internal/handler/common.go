package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-seat-share/internal/service"
)

// requestTimeout bounds every store round trip started by a handler.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// writeError maps a service error to its HTTP status.  notFound is the
// message used for ErrNotFoundOrDenied.
func writeError(c echo.Context, err error, notFound string) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, service.ErrNotAuthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFoundOrDenied):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFound})
	default:
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
