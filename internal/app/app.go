// Package app assembles the stores, queues and services shared by the api
// and worker processes from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/cache"
	"attendtrack/internal/config"
	"attendtrack/internal/courses"
	"attendtrack/internal/metrics"
	"attendtrack/internal/model"
	"attendtrack/internal/queue"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
)

// EventsKey is the redis list both processes use for domain events.
const EventsKey = "attendtrack:events"

// App is the wired object graph.
type App struct {
	Config   config.App
	Log      *slog.Logger
	Store    store.Store
	Redis    *store.Redis
	Queue    queue.Queue
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Hasher   auth.BcryptHasher
	Users    *users.Service
	Courses  *courses.Service
	Ledger   *attendance.Service

	closers []func() error
}

// NewLogger writes JSON in production and text elsewhere.
func NewLogger(cfg config.App, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	var handler slog.Handler
	if cfg.Production() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Build opens the configured backends and wires the services. Close releases
// whatever was opened, including on a failed Build.
func Build(ctx context.Context, cfg config.App, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	switch cfg.StoreBackend {
	case "memory":
		a.Store = store.NewMemory()
		a.Log.Warn("using in-memory store; data is lost on restart")
	case "postgres":
		pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		a.Store = pg
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.UsesRedis() {
		a.Redis = store.NewRedis(store.RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		a.closers = append(a.closers, a.Redis.Close)
		if !a.Redis.Healthy(ctx) {
			a.Log.Warn("redis not reachable at startup", "addr", cfg.RedisAddr)
		}
	}

	switch cfg.QueueBackend {
	case "memory":
		a.Queue = queue.NewInMemory(64)
	case "redis":
		a.Queue = queue.NewRedisQueue(a.Redis.Client, EventsKey)
	default:
		return fmt.Errorf("unknown queue backend %q", cfg.QueueBackend)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	a.Hasher = auth.NewBcryptHasher(cfg.BcryptCost)
	a.Users = users.NewService(a.Store, a.Hasher, a.Log)
	a.Courses = courses.NewService(a.Store, a.Users, a.Log)

	opts := []attendance.Option{
		attendance.WithLogger(a.Log),
		attendance.WithObserver(a.Metrics),
		attendance.WithThresholds(model.Thresholds{Good: cfg.GoodThreshold, Warning: cfg.WarningThreshold}),
	}
	if a.Redis != nil && cfg.CacheTTL > 0 {
		opts = append(opts, attendance.WithCache(cache.NewSummaries(a.Redis.Client, cfg.CacheTTL)))
	}
	a.Ledger = attendance.NewService(a.Store, a.Courses, a.Users, opts...)
	return nil
}

// Checks returns the dependency probes served on /healthz.
func (a *App) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{"store": a.Store.Ping}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			if !a.Redis.Healthy(ctx) {
				return errors.New("redis ping failed")
			}
			return nil
		}
	}
	return checks
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
