package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cafe-seat-share/internal/middleware"
	"github.com/iliyamo/cafe-seat-share/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

// loginReq accepts the provider code under "vendor" and, for older
// clients, under the misspelt "vender".
type loginReq struct {
	Vendor   *int   `json:"vendor"`
	Vender   *int   `json:"vender"`
	UniqueID string `json:"uniqueId"`
}

func (r loginReq) vendor() int {
	switch {
	case r.Vendor != nil:
		return *r.Vendor
	case r.Vender != nil:
		return *r.Vender
	}
	return 0
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID         uint64 `json:"id"`
	Vendor     int    `json:"vendor"`
	UniqueID   string `json:"uniqueId"`
	UserStatus int    `json:"userStatus"`
}

type loginResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Login signs the caller in, registering them on first sight.  The token
// is returned in the Authorization header and in the body.  A new user
// gets 201, a returning one 200.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.vendor(), req.UniqueID)
	if err != nil {
		return writeError(c, err, "user not found")
	}

	c.Response().Header().Set(echo.HeaderAuthorization, "Bearer "+res.Token.Token)
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, loginResp{
		User: userPart{
			ID:         res.User.ID,
			Vendor:     res.User.Vendor,
			UniqueID:   res.User.UniqueID,
			UserStatus: res.User.UserStatus,
		},
		Access: tokenPart{Token: res.Token.Token, Expires: res.Token.Exp},
	})
}

// DeleteUser removes the caller's account.  ?hard=true drops the row,
// otherwise the user is tombstoned and restored by the next login.
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	hard, _ := strconv.ParseBool(c.QueryParam("hard"))

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.DeleteUser(ctx, middleware.IdentityFrom(c), hard); err != nil {
		return writeError(c, err, "user not found")
	}
	return c.NoContent(http.StatusNoContent)
}
