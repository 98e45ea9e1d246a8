package httpmiddleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestTokenBucket(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "ip")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "other-ip")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "ip")
	assert.True(t, ok, "one token refills per second at 60/min")
}

func TestRedisWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	now := time.Date(2024, 1, 1, 12, 0, 10, 0, time.UTC)
	l := NewRedisWindow(client, 2)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "ip")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, err = l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok, "a new minute opens a new window")
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("down") }

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func TestRateLimitMiddleware(t *testing.T) {
	for name, tc := range map[string]struct {
		limiter Limiter
		want    int
	}{
		"denied":       {denyAll{}, http.StatusTooManyRequests},
		"fails open":   {brokenLimiter{}, http.StatusOK},
		"token bucket": {NewTokenBucket(5, 5), http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimit(tc.limiter, discard))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

type recordingObserver struct {
	route string
	code  int
}

func (o *recordingObserver) ObserveRequest(route, _ string, code int, _ float64) {
	o.route, o.code = route, code
}

func TestObserveAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	obs := &recordingObserver{}

	r := gin.New()
	r.Use(RequestID(), Observe(log, obs, "/healthz"))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/items/42", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "/items/:id", obs.route)
	assert.Equal(t, http.StatusNotFound, obs.code)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	obs.route = ""
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Empty(t, obs.route)
	assert.Empty(t, buf.String())
}
