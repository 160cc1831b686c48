package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-seat-share/internal/config"
)

// bucketScript refills the bucket for the time elapsed since the last refill
// and then takes one token.  Returns {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local last = tonumber(redis.call('HGET', KEYS[1], 'last_refill_ms'))
if tokens == nil or last == nil then
	tokens = capacity
	last = now
end

local steps = math.floor(math.max(0, now - last) / interval)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	last = last + steps * interval
end

local allowed = 0
local wait = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	wait = math.max(0, interval - (now - last))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last)
redis.call('PEXPIRE', KEYS[1], ttl_ms)
return { allowed, tokens, wait }
`)

var errBucketReply = errors.New("ratelimit: unexpected script reply")

type bucketResult struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (bucketResult, error) {
	vals, err := bucketScript.Run(ctx, rdb, []string{key},
		time.Now().UnixMilli(),
		cfg.Capacity,
		cfg.RefillTokens,
		cfg.RefillInterval.Milliseconds(),
		cfg.TTL.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return bucketResult{}, err
	}
	if len(vals) != 3 {
		return bucketResult{}, errBucketReply
	}
	return bucketResult{
		allowed:   vals[0] == 1,
		remaining: vals[1],
		retry:     time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket limits requests per key with a Redis token bucket.  When
// Redis cannot be reached the request goes through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	limit := strconv.Itoa(cfg.Capacity)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			res, err := take(c.Request().Context(), rdb, cfg, key)
			if err != nil {
				if cfg.Debug {
					slog.Warn("ratelimit: bucket unavailable", "key", key, "err", err)
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res.allowed {
				return next(c)
			}

			secs := int((res.retry + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				slog.Info("ratelimit: blocked", "key", key, "retry_after", res.retry)
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// buildRateKey joins the parts named by the key strategy.  The strategy is
// any "_" separated combination of ip, user and route; anything else keys
// by all three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	parts := []string{cfg.Prefix}
	for _, p := range strategyParts(cfg.KeyStrategy) {
		switch p {
		case "ip":
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			parts = append(parts, "ip", ip)
		case "user":
			parts = append(parts, "user", userID(c))
		case "route":
			parts = append(parts, "route", c.Request().Method+" "+c.Path())
		}
	}
	return strings.Join(parts, ":")
}

func strategyParts(s string) []string {
	all := []string{"ip", "user", "route"}
	fields := strings.Split(strings.ToLower(s), "_")
	for _, f := range fields {
		if f != "ip" && f != "user" && f != "route" {
			return all
		}
	}
	return fields
}
