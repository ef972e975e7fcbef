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

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/erp-api/internal/app"
	"github.com/odyssey-erp/erp-api/internal/ar"
	"github.com/odyssey-erp/erp-api/internal/inventory"
	jobmetrics "github.com/odyssey-erp/erp-api/internal/jobs"
	"github.com/odyssey-erp/erp-api/internal/masterdata/products"
	"github.com/odyssey-erp/erp-api/internal/platform/db"
	"github.com/odyssey-erp/erp-api/internal/platform/lock"
	"github.com/odyssey-erp/erp-api/internal/shared"
	"github.com/odyssey-erp/erp-api/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	registry := prometheus.NewRegistry()
	runner := &jobs.Runner{
		Locker:  lock.New(redisClient),
		Logger:  logger,
		Metrics: jobmetrics.NewMetrics(registry),
	}

	auditTrail := shared.NewAuditTrail(shared.NewAuditLogger(pool), logger)
	maintenance := &jobs.Maintenance{
		Invoices:             ar.NewService(ar.NewRepository(pool), auditTrail, nil),
		Stock:                products.NewService(products.NewRepository(pool, inventory.NewLedger(nil)), auditTrail),
		Keys:                 shared.NewIdempotencyStore(pool),
		IdempotencyRetention: cfg.IdempotencyRetention,
	}

	now := time.Now().UTC()
	var cron []jobs.CronRegistration
	for _, entry := range []struct{ spec, taskType string }{
		{cfg.OverdueCron, jobs.TaskOverdueSweep},
		{cfg.LowStockCron, jobs.TaskLowStockReport},
		{cfg.IdempotencyCleanupCron, jobs.TaskIdempotencyCleanup},
	} {
		task, err := jobs.NewTask(entry.taskType, now)
		if err != nil {
			logger.Error("build task", slog.String("task", entry.taskType), slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: entry.spec, Task: task})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    maintenance.Handlers(runner),
		Cron:        cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("starting metrics server", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
