package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendtrack/internal/config"
	"attendtrack/internal/model"
	"attendtrack/internal/users"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func memoryConfig() config.App {
	return config.App{
		StoreBackend:     "memory",
		QueueBackend:     "memory",
		RateLimitBackend: "memory",
		BcryptCost:       4,
		GoodThreshold:    80,
		WarningThreshold: 50,
	}
}

func TestBuildMemory(t *testing.T) {
	a, err := Build(context.Background(), memoryConfig(), quiet)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.Contains(t, a.Checks(), "store")
	assert.NotContains(t, a.Checks(), "redis")

	ctx := context.Background()
	u, err := a.Users.CreateUser(ctx, users.Profile{Username: "ada", RollNumber: "R1", Password: "secret-pw"})
	require.NoError(t, err)
	c, err := a.Courses.CreateCourse(ctx, model.NewCourse("CS1", "Intro", "", 10))
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := a.Ledger.MarkAttendance(ctx, c.ID, u.ID, time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC), model.StatusPresent)
		require.NoError(t, err)
	}
	sum, err := a.Ledger.Summary(ctx, c.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StandingWarning, sum.Standing, "configured thresholds apply")
}

func TestBuildWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.QueueBackend = "redis"
	cfg.RedisAddr = mr.Addr()
	cfg.CacheTTL = time.Minute

	a, err := Build(context.Background(), cfg, quiet)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Redis)
	checks := a.Checks()
	require.Contains(t, checks, "redis")
	assert.NoError(t, checks["redis"](context.Background()))

	mr.Close()
	assert.Error(t, checks["redis"](context.Background()))
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "cassandra"
	_, err := Build(context.Background(), cfg, quiet)
	assert.ErrorContains(t, err, "cassandra")
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(config.App{Env: "prod"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	NewLogger(config.App{Env: "dev", LogLevel: "warn"}, &buf).Info("hidden")
	assert.Empty(t, buf.String())
}
