package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendtrack/internal/api"
	"attendtrack/internal/app"
	"attendtrack/internal/auth"
	"attendtrack/internal/config"
	"attendtrack/internal/httpmiddleware"
)

func main() {
	cfg := config.Load()
	log := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(log)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close backends", "error", err)
		}
	}()

	checks := make(map[string]api.HealthCheck)
	for name, fn := range a.Checks() {
		checks[name] = fn
	}
	srv := api.NewServer(api.Deps{
		Users:    a.Users,
		Courses:  a.Courses,
		Ledger:   a.Ledger,
		Verifier: a.Hasher,
		Signer:   auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL),
		Events:   a.Queue,
		Checks:   checks,
		Metrics:  promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		Log:      log,
	})

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(a.Redis.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Observe(log, a.Metrics, "/healthz", "/metrics"))
	r.Use(api.CORS(cfg.CORSOrigins))
	r.Use(api.SecurityHeaders())
	r.Use(httpmiddleware.RateLimit(limiter, log))
	srv.Register(r)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.HTTPPort, "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}
	log.Info("server exited")
	return nil
}
