package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/cafe-seat-share/internal/config"
	"github.com/iliyamo/cafe-seat-share/internal/database"
	"github.com/iliyamo/cafe-seat-share/internal/handler"
	"github.com/iliyamo/cafe-seat-share/internal/queue"
	"github.com/iliyamo/cafe-seat-share/internal/repository"
	"github.com/iliyamo/cafe-seat-share/internal/router"
	"github.com/iliyamo/cafe-seat-share/internal/service"
	"github.com/iliyamo/cafe-seat-share/internal/utils"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	seatStore, userStore, closeStore := openStores(cfg, logger)
	defer closeStore()

	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewAMQPPublisher(cfg.AMQPURL, cfg.EventQueue)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unreachable; cache and rate limiting disabled", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	clock := utils.NewOffsetClock(cfg.UTCOffset)
	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpire)
	seats := service.NewSeatService(seatStore, clock, events, service.SeatPolicy{LeaveLeadMinutes: cfg.LeaveLeadMin}, logger)
	auth := service.NewAuthService(userStore, issuer, clock, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(logger))

	opts := router.Options{
		Verifier:    issuer,
		Redis:       rdb,
		Cache:       cfg.Cache,
		RateLimit:   cfg.RateLimit,
		DebugRoutes: cfg.DebugRoutes,
	}
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth), opts)
	router.RegisterSeats(e, handler.NewSeatHandler(seats), opts)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver, "debug_routes", cfg.DebugRoutes)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}

func newLogger(env string) *slog.Logger {
	level := slog.LevelInfo
	if env == "dev" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// openStores picks the seat and user stores for STORE_DRIVER.  The MySQL
// schema is applied on start.
func openStores(cfg config.Config, logger *slog.Logger) (service.SeatStore, service.UserStore, func()) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemorySeatRepo(), repository.NewMemoryUserRepo(), func() {}
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	return repository.NewSeatRepo(db), repository.NewUserRepo(db), func() { _ = db.Close() }
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				logger.Error("request", append(attrs, "err", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}
