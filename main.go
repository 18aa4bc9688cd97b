package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"feedcache/internal/cache"
	"feedcache/internal/circuitbreaker"
	"feedcache/internal/common/logging"
	"feedcache/internal/config"
	"feedcache/internal/feed"
	"feedcache/internal/server"
	"feedcache/internal/stats"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.InitGlobalLogger()
	defer logging.MustSync()
	logger := logging.GetGlobalLogger()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", err)
		os.Exit(1)
	}

	remote, err := cache.DialRemote(&cache.RemoteConfig{
		Address:   cfg.RedisAddress,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDBNumber(),
		PoolSize:  cfg.RedisPoolSizeNumber(),
		KeyPrefix: cfg.CacheKeyPrefix,
		OpTimeout: cfg.RemoteTimeout(),
	})
	if err != nil {
		logger.Error("failed to connect to Redis", err)
		os.Exit(1)
	}
	defer remote.Close()

	local, err := cache.NewLocalStore(cfg.LocalCapacity(), cfg.SweepInterval())
	if err != nil {
		logger.Error("failed to create local cache tier", err)
		os.Exit(1)
	}
	local.StartSweep()

	registry := prometheus.NewRegistry()

	breaker := circuitbreaker.New("remote-cache", circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold(),
		Cooldown:         cfg.BreakerCooldownDuration(),
		MaxCooldown:      cfg.BreakerMaxCooldownDuration(),
	})

	tiered, err := cache.New(cache.Options{
		Local:   local,
		Remote:  remote,
		Breaker: breaker,
		Stats:   stats.NewWithRegistry(registry),
		Logger:  logger,
		WarmTTL: cfg.WarmTTL(),
	})
	if err != nil {
		logger.Error("failed to assemble tiered cache", err)
		os.Exit(1)
	}
	defer tiered.Close()

	source := feed.NewMemorySource()
	feedSvc, err := feed.NewService(tiered, source, cfg.FeedTTL(), logger)
	if err != nil {
		logger.Error("failed to create feed service", err)
		os.Exit(1)
	}

	handlers := server.NewHandlers(tiered, feedSvc, registry, logger)
	srv := server.New(handlers.Router(), cfg.Port)

	if err := srv.Start(); err != nil {
		logger.Error("server failed to start", err)
		os.Exit(1)
	}
	logger.Info("server started",
		logging.String("port", cfg.Port),
		logging.String("redis", cfg.RedisAddress),
	)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}
