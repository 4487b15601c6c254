package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/tkanok/slidewall/internal/cdn"
	"github.com/tkanok/slidewall/internal/config"
	"github.com/tkanok/slidewall/internal/database"
	"github.com/tkanok/slidewall/internal/hub"
	"github.com/tkanok/slidewall/internal/logging"
	"github.com/tkanok/slidewall/internal/publish"
	"github.com/tkanok/slidewall/internal/redis"
	"github.com/tkanok/slidewall/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, registry *hub.Hub, stopBridge func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if stopBridge != nil {
			stopBridge()
		}
		registry.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	registry := hub.New(clock, cfg.MaxDisplaysPerGroup)

	deps := server.Dependencies{
		Events:       database.NewEventRepo(pool),
		Groups:       database.NewGroupRepo(pool),
		Media:        database.NewMediaRepo(pool),
		Store:        cdn.New(cfg.CDNBaseURL, cfg.CDNAPIKey),
		Hub:          registry,
		PostgresPing: pool,
	}

	// Redis is optional: a single instance broadcasts locally without it.
	var (
		pubsub     *redis.PubSub
		stopBridge func()
	)
	if cfg.RedisURL != "" {
		redisClient := setupRedis(context.Background(), cfg)
		defer func() { _ = redisClient.Close() }()

		pubsub = redis.NewPubSub(redisClient)
		stopBridge = pubsub.StartBridge(context.Background(), registry)
		deps.RedisPing = redis.NewHealth(redisClient)
	}

	deps.Publisher = publish.New(registry, pubsub)

	srv, err := server.NewServer(cfg, deps)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, registry, stopBridge)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
