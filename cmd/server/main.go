package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/ndenisov/chatd/internal/auth"
	"github.com/ndenisov/chatd/internal/config"
	httpHandler "github.com/ndenisov/chatd/internal/delivery/http"
	"github.com/ndenisov/chatd/internal/delivery/ws"
	"github.com/ndenisov/chatd/internal/middleware"
	"github.com/ndenisov/chatd/internal/storage/sqlite"
	"github.com/ndenisov/chatd/internal/usecase"
)

func main() {
	// Load .env file (ignore error if not exists, e.g. in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(log)

	store, err := sqlite.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Error("open storage", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize dependencies
	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL)
	registry := ws.NewRegistry(log)
	users := usecase.NewUserService(store, tokens, log)
	chats := usecase.NewChatService(store, store, store, registry, log)
	handler := httpHandler.NewHandler(users, chats, registry, store, cfg.AllowedOrigins, cfg.MaxMessageSize, log)

	apiLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitAPI), cfg.RateLimitAPIBurst)
	wsLimiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitWS), cfg.RateLimitWSBurst)

	withAuth := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.RateLimitFunc(apiLimiter, middleware.RequireAuth(tokens, users, next))
	}

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handler.HandleRoot)

	mux.HandleFunc("POST /api/v1/users/{$}", middleware.RateLimitFunc(apiLimiter, handler.HandleRegister))
	mux.HandleFunc("POST /api/v1/token", middleware.RateLimitFunc(apiLimiter, handler.HandleLogin))
	mux.HandleFunc("GET /api/v1/users/me", withAuth(handler.HandleMe))

	mux.HandleFunc("POST /api/v1/chats/{$}", withAuth(handler.HandleCreateChat))
	mux.HandleFunc("POST /api/v1/chats/groups/{$}", withAuth(handler.HandleCreateGroup))
	mux.HandleFunc("POST /api/v1/chats/groups/{group_id}/members", withAuth(handler.HandleAddGroupMember))
	mux.HandleFunc("DELETE /api/v1/chats/groups/{group_id}/members/{user_id}", withAuth(handler.HandleRemoveGroupMember))
	mux.HandleFunc("GET /api/v1/chats/{chat_id}/history", withAuth(handler.HandleHistory))

	mux.HandleFunc("GET /ws/{user_id}", middleware.RateLimitFunc(wsLimiter, handler.HandleWebSocket))

	// Create server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.SecurityHeaders(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("chatd listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited gracefully")
}
