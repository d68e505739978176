// Tea Study Buddy - tea tasting journal with an AI chat assistant
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
	"github.com/teabuddy/server/internal/api"
	"github.com/teabuddy/server/internal/assistant"
	"github.com/teabuddy/server/internal/chat"
	"github.com/teabuddy/server/internal/config"
	"github.com/teabuddy/server/internal/middleware"
	"github.com/teabuddy/server/internal/store"
	"github.com/teabuddy/server/web"
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
	slog.Info("Database connected", "path", cfg.DBPath)

	gateway, err := assistant.NewOpenAIGateway(assistant.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		AssistantID: cfg.OpenAI.AssistantID,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize assistant gateway", "error", err)
		os.Exit(1)
	}
	slog.Info("Assistant gateway initialized")

	chatSvc := chat.NewService(repo, gateway, chat.Options{
		PollInterval: cfg.Chat.PollInterval,
		RunTimeout:   cfg.Chat.RunTimeout,
	})

	// Initialize handlers.
	chatHandler := api.NewChatHandler(chatSvc)
	sessionHandler := api.NewSessionHandler(repo, gateway)
	threadHandler := api.NewThreadHandler(repo, chatSvc)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)
	threadHandler.RegisterRoutes(r)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Write timeout must outlive the chat run poll loop; a turn holds the
	// connection open until the remote run reaches a terminal status.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Chat.RunTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
