package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-his/meridian-his/internal/app"
	"github.com/meridian-his/meridian-his/internal/audit"
	jobmetrics "github.com/meridian-his/meridian-his/internal/jobs"
	"github.com/meridian-his/meridian-his/internal/platform/cache"
	"github.com/meridian-his/meridian-his/internal/platform/db"
	"github.com/meridian-his/meridian-his/internal/rbac"
	"github.com/meridian-his/meridian-his/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	jobMetrics := jobmetrics.NewMetrics(nil)

	auditRepo := audit.NewRepository(pool)

	notifier := rbac.NewRedisNotifier(redisClient, rbac.ReloadChannel)
	rbacStore := rbac.NewStore(nil)
	rbacService := rbac.NewService(rbac.NewRepository(pool), rbacStore, notifier, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: audit.TaskDecisionAudit, Handler: jobs.Instrument(jobMetrics, "decision_audit", audit.NewDecisionTaskHandler(auditRepo, logger))},
			{Type: jobs.TaskSnapshotRefresh, Handler: jobs.Instrument(jobMetrics, "snapshot_refresh", jobs.NewSnapshotRefreshHandler(rbacService, logger))},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/5 * * * *", Task: jobs.NewSnapshotRefreshTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
