// Planner - personal work planning and time tracking server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/mkrasov/planner/internal/api"
	"github.com/mkrasov/planner/internal/clock"
	"github.com/mkrasov/planner/internal/config"
	"github.com/mkrasov/planner/internal/middleware"
	"github.com/mkrasov/planner/internal/notify"
	"github.com/mkrasov/planner/internal/session"
	"github.com/mkrasov/planner/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	clk := clock.System{}

	// Initialize services.
	sessions := session.NewService(repo, clk)

	dispatcher, err := notify.NewDaemonDispatcher(cfg.Notify.Addr, cfg.Notify.SpoolDir, cfg.Notify.DispatchTimeout, clk)
	if err != nil {
		slog.Error("Failed to initialize notification dispatcher", "error", err)
		os.Exit(1)
	}

	worker := notify.NewWorker(
		repo,
		dispatcher,
		notify.NewResolver(repo),
		notify.NewDedupCache(clk),
		clk,
		notify.WorkerConfig{
			PollInterval:   cfg.Notify.PollInterval,
			LookbackWindow: cfg.Notify.LookbackWindow,
		},
	)

	// Initialize handlers.
	sessionHandler := api.NewSessionHandler(sessions)
	healthHandler := api.NewHealthHandler(repo)
	timerFeed := api.NewTimerFeedHandler(sessions, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	healthHandler.RegisterHealth(r)
	sessionHandler.RegisterRoutes(r)
	r.Get("/ws/timer", timerFeed.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout; the timer feed holds connections open
		IdleTimeout:  120 * time.Second,
	}

	// Start the notification worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker.Start(ctx)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
