package middleware

// identity.go defines the context keys JWTAuth fills and the helpers that
// read them back.  Handlers and the rate limiter both go through
// IdentityFrom so the type switch lives in one place.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-seat-share/internal/model"
)

// Context keys set by JWTAuth.
const (
	ContextUserID     = "user_id"
	ContextUserStatus = "user_status"
)

// IdentityFrom returns the caller stored by JWTAuth.  The zero Identity
// means nobody is authenticated.
func IdentityFrom(c echo.Context) model.Identity {
	var id model.Identity
	switch v := c.Get(ContextUserID).(type) {
	case uint64:
		id.UserID = v
	case int64:
		if v > 0 {
			id.UserID = uint64(v)
		}
	case float64:
		if v > 0 {
			id.UserID = uint64(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			id.UserID = n
		}
	}
	if s, ok := c.Get(ContextUserStatus).(int); ok {
		id.UserStatus = s
	}
	return id
}

// userID renders the caller for rate limit keys; "anon" when nobody is
// authenticated.
func userID(c echo.Context) string {
	if id := IdentityFrom(c); id.UserID != 0 {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
