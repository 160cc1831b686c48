package config

// Redis backs the seat read cache and the rate limiter.  If it cannot be
// reached at startup both features are disabled and the API keeps serving.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is read from:
//
//	REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//	REDIS_ADDR – host:port shorthand, used when host/port are not both set
//	REDIS_PASSWORD – optional password
//	REDIS_DB – database number (default 0)
//	REDIS_TLS – enable TLS when "true" or "1"
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

func parseRedisConfig(r *reader) RedisConfig {
	addr := r.str("REDIS_ADDR", "localhost:6379")
	host, port := r.str("REDIS_HOST", ""), r.str("REDIS_PORT", "")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Addr:     addr,
		Password: r.str("REDIS_PASSWORD", ""),
		DB:       r.int("REDIS_DB", 0),
		TLS:      r.bool("REDIS_TLS", false),
	}
}

// NewRedisClient connects and pings with a short timeout.  It returns nil
// when the server is unreachable; callers degrade gracefully.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
