// Package api exposes the attendance services over HTTP with gin.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/courses"
	"attendtrack/internal/httpmiddleware"
	"attendtrack/internal/queue"
	"attendtrack/internal/users"
)

// Publisher sends domain events; queue.Queue satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// CredentialVerifier checks a plaintext password against a stored hash.
type CredentialVerifier interface {
	Verify(hash, plaintext string) error
}

// HealthCheck reports a dependency failure as an error.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators a Server routes to.
type Deps struct {
	Users    *users.Service
	Courses  *courses.Service
	Ledger   *attendance.Service
	Verifier CredentialVerifier
	Signer   *auth.Signer
	Events   Publisher
	Checks   map[string]HealthCheck
	Metrics  http.Handler
	Log      *slog.Logger
}

// Server holds the handlers.
type Server struct {
	Deps
	log *slog.Logger
}

// NewServer wires handlers to their services.
func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{Deps: d, log: log.With("component", "api")}
}

// Register mounts every route on r. Reads are public; writes other than
// registration and login need a bearer access token.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/healthz", s.health)
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics))
	}

	v1 := r.Group("/v1")
	v1.POST("/users", s.createUser)
	v1.POST("/auth/login", s.login)
	v1.GET("/users/:id", s.getUser)
	v1.GET("/users/by-username/:username", s.getUserByUsername)
	v1.GET("/users/:id/courses", s.coursesForStudent)
	v1.GET("/users/:id/overview", s.overview)
	v1.GET("/users/:id/attendance", s.attendanceBetween)
	v1.GET("/courses/:id", s.getCourse)
	v1.GET("/courses/:id/schedules", s.listSchedules)
	v1.GET("/courses/:id/attendance/:userId", s.attendanceForCourse)
	v1.GET("/courses/:id/attendance/:userId/summary", s.summary)
	v1.GET("/courses/:id/attendance/:userId/calculator", s.calculator)
	v1.GET("/courses/:id/attendance/:userId/marked", s.isMarked)

	authed := v1.Group("", auth.RequireUser(s.Signer))
	authed.PUT("/users/:id", s.updateUser)
	authed.POST("/courses", s.createCourse)
	authed.PUT("/courses/:id", s.updateCourse)
	authed.DELETE("/courses/:id", s.deleteCourse)
	authed.POST("/courses/:id/students/:userId", s.enroll)
	authed.DELETE("/courses/:id/students/:userId", s.unenroll)
	authed.POST("/courses/:id/schedules", s.addSchedule)
	authed.DELETE("/schedules/:id", s.removeSchedule)
	authed.PUT("/courses/:id/attendance/:userId", s.markAttendance)
}

func (s *Server) health(c *gin.Context) {
	status := http.StatusOK
	report := gin.H{}
	for name, check := range s.Checks {
		if err := check(c.Request.Context()); err != nil {
			s.log.WarnContext(c.Request.Context(), "health check failed", "dependency", name, "error", err)
			report[name] = false
			status = http.StatusServiceUnavailable
			continue
		}
		report[name] = true
	}
	if status == http.StatusOK {
		report["status"] = "ok"
	} else {
		report["status"] = "degraded"
	}
	c.JSON(status, report)
}

// CORS allows browser clients from the given origins. With no origins, or
// "*", any origin is allowed but credentials are not.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{httpmiddleware.RequestIDHeader},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// SecurityHeaders sets the usual hardening headers; HSTS only in release mode.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
