package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/learning-engine/internal/api"
	"github.com/terra-clan/learning-engine/internal/auth"
	"github.com/terra-clan/learning-engine/internal/catalog"
	"github.com/terra-clan/learning-engine/internal/cleanup"
	"github.com/terra-clan/learning-engine/internal/config"
	"github.com/terra-clan/learning-engine/internal/health"
	"github.com/terra-clan/learning-engine/internal/presence"
	"github.com/terra-clan/learning-engine/internal/progress"
	"github.com/terra-clan/learning-engine/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("starting learning-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"progress_backend", cfg.Progress.Backend,
		"presence_backend", cfg.Presence.Backend,
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	checks := health.NewRegistry(5 * time.Second)

	// Run database migrations for every backend that lives in Postgres
	if cfg.UsesPostgres() {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, cfg.Database.MigrationsDir); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	repo, err := openProgressRepository(initCtx, cfg)
	if err != nil {
		slog.Error("failed to create progress repository", "error", err)
		os.Exit(1)
	}
	checks.Register("progress", repo)

	store, err := openPresenceStore(cfg)
	if err != nil {
		slog.Error("failed to create presence store", "error", err)
		os.Exit(1)
	}
	checks.Register("presence", store)

	// Load course content
	courses := catalog.NewLoader()
	if err := courses.LoadFromDir(cfg.Courses.Dir); err != nil {
		slog.Warn("failed to load courses from dir", "dir", cfg.Courses.Dir, "error", err)
	}
	slog.Info("courses loaded", "count", len(courses.List()))

	tracker := progress.NewTracker(repo, courses)
	presenceSvc := presence.NewService(store, cfg.Presence.StalenessWindow)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start presence sweeper
	cleanup.NewCleaner(presenceSvc, cfg.Presence.SweepInterval).Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, api.Deps{
		Tracker:         tracker,
		Presence:        presenceSvc,
		Catalog:         courses,
		Health:          checks,
		Issuer:          auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		StreamInterval:  cfg.Presence.HeartbeatInterval,
		MonitorInterval: cfg.Presence.MonitorInterval,
	})
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the presence stream holds its connection open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if err := store.Close(); err != nil {
		slog.Error("presence store close error", "error", err)
	}
	if err := repo.Close(); err != nil {
		slog.Error("progress repository close error", "error", err)
	}

	slog.Info("learning-engine stopped")
}

func openProgressRepository(ctx context.Context, cfg *config.Config) (progress.Repository, error) {
	if cfg.Progress.Backend == config.BackendMemory {
		slog.Warn("using in-memory progress repository; progress is lost on restart")
		return progress.NewMemoryRepository(), nil
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		return nil, err
	}
	slog.Info("database connected successfully")
	return repo, nil
}

func openPresenceStore(cfg *config.Config) (presence.Store, error) {
	switch cfg.Presence.Backend {
	case config.BackendMemory:
		return presence.NewMemoryStore(), nil
	case config.BackendPostgres:
		return presence.NewPostgresStore(cfg.Database.DSN)
	default:
		// key TTL backs up the sweeper
		return presence.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, 2*cfg.Presence.StalenessWindow)
	}
}
