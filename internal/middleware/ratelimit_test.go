package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cafe-seat-share/internal/config"
)

func testRateConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	_, rdb := newRedisForTest(t)
	e := echo.New()
	e.GET("/v1/seats", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(testRateConfig(), rdb))

	for i := 0; i < 2; i++ {
		rec := doRequest(e, http.MethodGet, "/v1/seats")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("limit header = %q", rec.Header().Get("X-RateLimit-Limit"))
		}
	}
	rec := doRequest(e, http.MethodGet, "/v1/seats")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("headers = %v", rec.Header())
	}
}

func TestTokenBucketKeysByRoute(t *testing.T) {
	_, rdb := newRedisForTest(t)
	cfg := testRateConfig()
	cfg.Capacity = 1
	e := echo.New()
	mw := NewTokenBucket(cfg, rdb)
	e.GET("/a", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	e.GET("/b", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)

	if doRequest(e, http.MethodGet, "/a").Code != http.StatusOK || doRequest(e, http.MethodGet, "/b").Code != http.StatusOK {
		t.Fatal("separate routes should have separate buckets")
	}
	if doRequest(e, http.MethodGet, "/a").Code != http.StatusTooManyRequests {
		t.Fatal("second hit on /a should be limited")
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	e := echo.New()
	e.GET("/v1/seats", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(testRateConfig(), rdb))
	for i := 0; i < 3; i++ {
		if rec := doRequest(e, http.MethodGet, "/v1/seats"); rec.Code != http.StatusOK {
			t.Fatalf("request %d with redis down: status %d", i, rec.Code)
		}
	}
}

func TestBuildRateKeyUsesCaller(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/seats/1/take", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/seats/:id/take")
	c.Set(ContextUserID, uint64(5))

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	want := "rl:ip:10.0.0.1:user:5:route:POST /v1/seats/:id/take"
	if got := buildRateKey(cfg, c); got != want {
		t.Fatalf("key = %q, want %q", got, want)
	}
}
