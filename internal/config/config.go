package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"log" // log is used to report configuration errors and halt execution
	"os"  // os provides access to environment variables
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Lookup reads one variable.  os.LookupEnv satisfies it; tests pass a map.
type Lookup func(key string) (string, bool)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	StoreDriver string // "mysql" or "memory"

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret string        // secret used to sign JWTs
	JWTExpire time.Duration // access token lifetime

	UTCOffset     time.Duration // server offset used for "today"
	LeaveLeadMin  int           // minutes a seat must still have before leave_at
	DebugRoutes   bool          // expose restore and user delete endpoints
	EventsEnabled bool          // publish seat events to RabbitMQ
	AMQPURL       string
	EventQueue    string
	SeatLogDir    string

	Cache     CacheConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
}

// Load reads an optional .env file, then the environment.  A missing or
// invalid required variable ends the process with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}
	cfg, err := Parse(os.LookupEnv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse builds a Config from env.  All missing required variables are
// reported together.
func Parse(env Lookup) (Config, error) {
	r := &reader{env: env}
	cfg := Config{
		Env:           r.str("APP_ENV", "dev"),
		Port:          r.str("APP_PORT", "8080"),
		StoreDriver:   strings.ToLower(r.str("STORE_DRIVER", DriverMySQL)),
		JWTSecret:     r.must("JWT_SECRET"),
		JWTExpire:     r.dur("JWT_EXPIRE", 24*time.Hour),
		UTCOffset:     time.Duration(r.int("SERVER_UTC_OFFSET_MIN", 540)) * time.Minute,
		LeaveLeadMin:  r.int("SEAT_LEAVE_LEAD_MIN", 10),
		DebugRoutes:   r.bool("DEBUG_ROUTES", false),
		EventsEnabled: r.bool("EVENTS_ENABLED", false),
		AMQPURL:       r.str("RABBITMQ_URL", r.str("AMQP_URL", "")),
		EventQueue:    r.str("SEAT_EVENT_QUEUE", ""),
		SeatLogDir:    r.str("SEAT_LOG_DIR", "logs"),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = r.must("DB_USER")
		cfg.DBPass = r.str("DB_PASS", "") // empty allowed
		cfg.DBHost = r.must("DB_HOST")
		cfg.DBPort = r.must("DB_PORT")
		cfg.DBName = r.must("DB_NAME")
	case DriverMemory:
	default:
		r.errs = append(r.errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}
	if cfg.LeaveLeadMin < 0 {
		r.errs = append(r.errs, fmt.Errorf("SEAT_LEAVE_LEAD_MIN must not be negative"))
	}
	cfg.Cache = parseCacheConfig(r)
	cfg.RateLimit = parseRateLimitConfig(r)
	cfg.Redis = parseRedisConfig(r)
	return cfg, errors.Join(r.errs...)
}

// reader collects errors while reading typed values so Parse can report
// every problem in one go.
type reader struct {
	env  Lookup
	errs []error
}

func (r *reader) lookup(key string) (string, bool) {
	v, ok := r.env(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// must retrieves the value of a required variable.
func (r *reader) must(key string) string {
	v, ok := r.lookup(key)
	if !ok {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, v))
		return def
	}
	return n
}

func (r *reader) dur(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid duration for %s: %q", key, v))
		return def
	}
	return d
}

func (r *reader) bool(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	r.errs = append(r.errs, fmt.Errorf("invalid bool for %s: %q", key, v))
	return def
}
