package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/askerp/askerp-server/internal/alerts"
	"github.com/askerp/askerp-server/internal/briefing"
	"github.com/askerp/askerp-server/internal/cache"
	"github.com/askerp/askerp-server/internal/config"
	"github.com/askerp/askerp-server/internal/metrics"
	"github.com/askerp/askerp-server/internal/notify"
	"github.com/askerp/askerp-server/internal/platform/logger"
	"github.com/askerp/askerp-server/internal/prompt"
	"github.com/askerp/askerp-server/internal/providers"
	"github.com/askerp/askerp-server/internal/reports"
	"github.com/askerp/askerp-server/internal/scheduler"
	"github.com/askerp/askerp-server/internal/server"
	v1 "github.com/askerp/askerp-server/internal/server/v1"
	"github.com/askerp/askerp-server/internal/store/sqlite"
	"github.com/askerp/askerp-server/internal/tools"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logCfg := logger.DefaultConfig()
	if cfg.Server.Env == "production" {
		logCfg.Format = "json"
	}
	logger.Initialize(logCfg)
	defer logger.Sync()

	repo, err := sqlite.NewStorage(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer repo.Close()

	// Redis is optional. Without it the query and object caches degrade
	// to no-ops and every lookup misses.
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, caching disabled", zap.Error(err))
			rdb = nil
		}
		cancel()
	}

	queries := cache.NewQueryCache(rdb, repo.Settings())
	objects := cache.NewObjectCache(rdb)
	invalidator := cache.NewInvalidator(queries, objects)

	notifier := notify.New(repo.Notifications(), cfg.Notify.WebhookURL)
	providerClient := providers.NewClient()
	metricEngine := metrics.NewEngine(repo)
	prompts := prompt.NewService(repo, objects, metricEngine)
	alertEngine := alerts.NewEngine(repo, notifier)
	runner := tools.NewRunner(repo, queries, alertEngine)
	briefingGen := briefing.NewGenerator(repo, notifier)
	reportGen := reports.NewGenerator(repo, runner, notifier)

	sched := scheduler.New(cfg.Scheduler, alertEngine, briefingGen, reportGen, metricEngine)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	handler := v1.NewHandler(repo, providerClient, prompts, runner, alertEngine, queries, invalidator)
	srv := server.New(cfg, logger.Get(), repo, handler)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
