package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/terra-clan/learning-engine/internal/auth"
	"github.com/terra-clan/learning-engine/internal/config"
	"github.com/terra-clan/learning-engine/internal/health"
	"github.com/terra-clan/learning-engine/internal/models"
	"github.com/terra-clan/learning-engine/internal/presence"
	"github.com/terra-clan/learning-engine/internal/progress"
)

// Catalog resolves course content trees
type Catalog interface {
	Get(id string) *models.Course
	List() []*models.Course
}

// Deps are the services the HTTP API fronts
type Deps struct {
	Tracker  *progress.Tracker
	Presence *presence.Service
	Catalog  Catalog
	Health   *health.Registry
	Issuer   *auth.Issuer

	// StreamInterval is how often the websocket stream pushes live counts.
	// Clients are told to heartbeat at the same rate.
	StreamInterval  time.Duration
	// MonitorInterval is the poll rate advertised to admin monitors
	MonitorInterval time.Duration
}

// Server represents the HTTP API server
type Server struct {
	config          config.ServerConfig
	router          *chi.Mux
	tracker         *progress.Tracker
	presence        *presence.Service
	catalog         Catalog
	health          *health.Registry
	authMiddleware  *AuthMiddleware
	validate        *validator.Validate
	streamInterval  time.Duration
	monitorInterval time.Duration
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	streamInterval := deps.StreamInterval
	if streamInterval <= 0 {
		streamInterval = presence.DefaultHeartbeatInterval
	}
	monitorInterval := deps.MonitorInterval
	if monitorInterval <= 0 {
		monitorInterval = presence.DefaultMonitorInterval
	}
	checks := deps.Health
	if checks == nil {
		checks = health.NewRegistry(0)
	}

	s := &Server{
		config:          cfg,
		tracker:         deps.Tracker,
		presence:        deps.Presence,
		catalog:         deps.Catalog,
		health:          checks,
		authMiddleware:  NewAuthMiddleware(deps.Issuer),
		validate:        newValidator(),
		streamInterval:  streamInterval,
		monitorInterval: monitorInterval,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	perm := s.authMiddleware.RequirePermission

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		timeout := middleware.Timeout(60 * time.Second)

		r.With(timeout, perm("courses:read")).Get("/courses", s.handleListCourses)
		r.With(timeout, perm("presence:counts")).Get("/presence/settings", s.handlePresenceSettings)

		r.Route("/courses/{courseId}", func(r chi.Router) {
			r.Use(s.requireCourse)

			// Websocket stream lives outside the request timeout
			r.With(perm("presence:counts")).Get("/presence/stream", s.handlePresenceStream)

			r.Group(func(r chi.Router) {
				r.Use(timeout)

				r.With(perm("courses:read")).Get("/", s.handleGetCourse)
				r.With(perm("progress:read")).Get("/levels", s.handleListLevels)
				r.With(perm("progress:write")).Post("/enroll", s.handleEnroll)
				r.With(perm("enrollments:read")).Get("/enrollments", s.handleListEnrollments)

				r.With(perm("progress:read")).Get("/progress", s.handleGetProgress)
				r.With(perm("progress:write")).Post("/progress/video", s.handleSubmitVideo)
				r.With(perm("progress:write")).Post("/progress/quiz", s.handleSubmitQuiz)
				r.With(perm("progress:write")).Post("/progress/tasks", s.handleSubmitTask)
				r.With(perm("progress:write")).Post("/progress/reading", s.handleMarkReading)
				r.With(perm("progress:write")).Post("/progress/topics/{topicId}/complete", s.handleCompleteTopic)

				r.With(perm("presence:write")).Post("/presence/heartbeat", s.handleHeartbeat)
				r.With(perm("presence:write")).Post("/presence/offline", s.handleGoOffline)
				r.With(perm("presence:counts")).Get("/presence/counts", s.handleLiveCounts)
				r.With(perm("presence:read")).Get("/presence/students", s.handleActiveStudents)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
