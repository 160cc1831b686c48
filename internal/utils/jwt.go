package utils // package utils provides the server clock and token helpers

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Token verification failures.  The middleware maps all of them to 401 but
// keeps the distinction in its error body and in tests.
var (
	ErrTokenMissing   = errors.New("missing bearer token")
	ErrTokenMalformed = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
)

// AccessToken represents a signed JWT along with its expiry.  The token is
// sent back to the client in the Authorization header after login.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the payload carried by an access token.  Only the user id and
// status travel in the token; everything else is looked up when needed.
type Claims struct {
	UserID     uint64 `json:"id"`
	UserStatus int    `json:"userStatus"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 access tokens with one secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer for the given secret and token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.  The subject claim duplicates the id as
// a string so generic JWT tooling can read it.
func (i *TokenIssuer) Issue(userID uint64, userStatus int) (AccessToken, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		UserID:     userID,
		UserStatus: userStatus,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify parses raw and returns its claims.  Expired tokens yield
// ErrTokenExpired; any other parse or signature problem yields
// ErrTokenMalformed.
func (i *TokenIssuer) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !tok.Valid || claims.UserID == 0 {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
