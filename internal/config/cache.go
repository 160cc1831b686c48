package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  KeyStrategy
// determines which parts of the request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// Seat listings go stale the moment someone claims a seat, so the default
// TTL is short and writes purge the prefix as well.
func parseCacheConfig(r *reader) CacheConfig {
	return CacheConfig{
		Enabled:      r.bool("CACHE_ENABLED", true),
		Methods:      parseMethods(r.str("CACHE_METHODS", "GET")),
		TTL:          r.dur("CACHE_TTL", 5*time.Second),
		KeyStrategy:  r.str("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       r.str("CACHE_PREFIX", "cache:seats"),
		MaxBodyBytes: r.int("CACHE_MAX_BODY_BYTES", 1048576),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
