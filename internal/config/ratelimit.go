package config

import "time"

// RateLimitConfig drives the Redis token bucket.  Capacity tokens are
// available at once and RefillTokens are added every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func parseRateLimitConfig(r *reader) RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        r.bool("RATE_LIMIT_ENABLED", true),
		Capacity:       r.int("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   r.int("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: r.dur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            r.dur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    r.str("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         r.str("RATE_LIMIT_PREFIX", "rl"),
		Debug:          r.bool("RATE_LIMIT_DEBUG", false),
	}
	if b := r.int("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if every := r.dur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	return def.normalized()
}

// normalized clamps nonsensical values and keeps the bucket alive for at
// least five refill intervals.
func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
