package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/cafe-seat-share/internal/model"
	"github.com/iliyamo/cafe-seat-share/internal/repository"
	"github.com/iliyamo/cafe-seat-share/internal/utils"
)

// UserStore persists users keyed by (vendor, uniqueID).
type UserStore interface {
	FindOrCreate(ctx context.Context, vendor int, uniqueID string, now time.Time) (model.User, bool, error)
	Delete(ctx context.Context, id uint64, hard bool, now time.Time) error
}

// TokenIssuer signs access tokens for a user.
type TokenIssuer interface {
	Issue(userID uint64, userStatus int) (utils.AccessToken, error)
}

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	User    model.User
	Token   utils.AccessToken
	Created bool
}

// AuthService bootstraps identities.  Login and signup are the same
// operation: an unknown (vendor, uniqueID) pair is registered on the spot.
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	clock  Clock
	log    *slog.Logger
}

func NewAuthService(users UserStore, tokens TokenIssuer, clock Clock, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, tokens: tokens, clock: clock, log: logger.With("component", "auth_service")}
}

// Login finds or creates the user and issues a token carrying its id and
// status.  A missing vendor or uniqueID is a validation failure.
func (s *AuthService) Login(ctx context.Context, vendor int, uniqueID string) (LoginResult, error) {
	uniqueID = strings.TrimSpace(uniqueID)
	var missing []string
	if vendor == 0 {
		missing = append(missing, "vendor")
	}
	if uniqueID == "" {
		missing = append(missing, "uniqueId")
	}
	if len(missing) > 0 {
		return LoginResult{}, &ValidationError{Fields: missing}
	}

	u, created, err := s.users.FindOrCreate(ctx, vendor, uniqueID, s.clock.Now())
	if err != nil {
		s.log.ErrorContext(ctx, "find or create user failed", "vendor", vendor, "err", err)
		return LoginResult{}, storeErr("find or create user", err)
	}
	tok, err := s.tokens.Issue(u.ID, u.UserStatus)
	if err != nil {
		return LoginResult{}, err
	}
	if created {
		s.log.InfoContext(ctx, "user registered", "user_id", u.ID, "vendor", vendor)
	}
	return LoginResult{User: u, Token: tok, Created: created}, nil
}

// DeleteUser removes the caller's account.  Soft deletion keeps the row so
// the next login restores it; hard deletion drops it.
func (s *AuthService) DeleteUser(ctx context.Context, caller model.Identity, hard bool) error {
	if caller.UserID == 0 {
		return ErrNotAuthenticated
	}
	if err := s.users.Delete(ctx, caller.UserID, hard, s.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFoundOrDenied
		}
		s.log.ErrorContext(ctx, "delete user failed", "user_id", caller.UserID, "err", err)
		return storeErr("delete user", err)
	}
	s.log.InfoContext(ctx, "user deleted", "user_id", caller.UserID, "hard", hard)
	return nil
}
