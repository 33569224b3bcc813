package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cardbot/internal/adapters/http/api"
	"cardbot/internal/adapters/mq/queue"
	"cardbot/internal/adapters/upstream"
	"cardbot/internal/app"
	"cardbot/internal/config"
	"cardbot/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Local development convenience; absent .env files are not an error.
	_ = godotenv.Load()

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Logger is not available yet, write directly.
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	q := queue.New(
		queue.WithConcurrency(cfg.Concurrency),
		queue.WithMaxPending(cfg.MaxPending),
		queue.WithRequestTimeout(cfg.RequestTimeout),
		queue.WithRateLimit(cfg.RateLimitCount, cfg.RateLimitWindow),
		queue.WithCleanupInterval(cfg.CleanupInterval),
	)
	defer func() {
		if err := q.Close(); err != nil {
			log.Error(ctx, "closing queue", logger.Error(err))
		}
	}()

	client := upstream.New(
		upstream.WithAPIKey(cfg.APIKey),
		upstream.WithTimeout(cfg.UpstreamTimeout),
	)
	log.Info(ctx, "upstream client ready", logger.Bool("api_key_set", cfg.APIKey != ""))

	svc, err := app.New(q, client,
		app.WithEndpoint(app.CommandCard, cfg.CardEndpoint),
		app.WithEndpoint(app.CommandArchetype, cfg.ArchetypeEndpoint),
		app.WithEndpoint(app.CommandCreature, cfg.CreatureEndpoint),
		app.WithEndpoint(app.CommandTierlist, cfg.TierlistEndpoint),
		app.WithLogger(log),
	)
	if err != nil {
		os.Stderr.WriteString("failed to build service: " + err.Error() + "\n")
		return
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(q, svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}
