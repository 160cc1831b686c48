package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-seat-share/internal/config"
	"github.com/iliyamo/cafe-seat-share/internal/handler"
	"github.com/iliyamo/cafe-seat-share/internal/middleware"
)

// Options carries what the route tables need besides the handlers.  A nil
// Redis client disables caching and rate limiting.
type Options struct {
	Verifier    middleware.TokenVerifier
	Redis       *redis.Client
	Cache       config.CacheConfig
	RateLimit   config.RateLimitConfig
	DebugRoutes bool
}

// RegisterRoutes registers routes that do not require authentication and
// are not part of the API surface.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the identity bootstrap under /v1/auth.  Login is
// open; the debug user delete requires a token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opts Options) {
	limiter := middleware.NewTokenBucket(opts.RateLimit, opts.Redis)

	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limiter)
	if opts.DebugRoutes {
		g.DELETE("/user", a.DeleteUser, middleware.JWTAuth(opts.Verifier), limiter)
	}
}

// RegisterSeats registers the seat API.  Public reads go through the Redis
// cache; writes require an active user and purge the cache on success.
// /v1/seats/current is per caller and therefore never cached.
func RegisterSeats(e *echo.Echo, h *handler.SeatHandler, opts Options) {
	limiter := middleware.NewTokenBucket(opts.RateLimit, opts.Redis)
	cache := middleware.NewRedisCache(opts.Cache, opts.Redis)
	purge := middleware.NewCachePurger(opts.Cache, opts.Redis)
	jwt := middleware.JWTAuth(opts.Verifier)
	active := middleware.RequireActiveUser()

	public := []echo.MiddlewareFunc{limiter, cache}
	gated := []echo.MiddlewareFunc{jwt, active, limiter}
	writes := []echo.MiddlewareFunc{jwt, active, limiter, purge}

	e.GET("/v1/seats", h.List, public...)
	e.GET("/v1/seats/current", h.Current, gated...)
	e.GET("/v1/seats/:id", h.Get, public...)

	e.POST("/v1/seats", h.Create, writes...)
	e.PUT("/v1/seats/:id", h.Update, writes...)
	e.PATCH("/v1/seats/:id", h.Update, writes...)
	e.DELETE("/v1/seats/:id", h.Delete, writes...)
	e.POST("/v1/seats/:id/take", h.Take, writes...)
	if opts.DebugRoutes {
		e.POST("/v1/seats/:id/restore", h.Restore, writes...)
	}
}
