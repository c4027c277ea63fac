package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-his/meridian-his/internal/app"
	"github.com/meridian-his/meridian-his/internal/audit"
	"github.com/meridian-his/meridian-his/internal/auth"
	"github.com/meridian-his/meridian-his/internal/directory"
	"github.com/meridian-his/meridian-his/internal/observability"
	"github.com/meridian-his/meridian-his/internal/patients"
	"github.com/meridian-his/meridian-his/internal/platform/cache"
	"github.com/meridian-his/meridian-his/internal/platform/db"
	"github.com/meridian-his/meridian-his/internal/rbac"
	"github.com/meridian-his/meridian-his/internal/shared"
	"github.com/meridian-his/meridian-his/jobs"
	"github.com/meridian-his/meridian-his/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, dbpool, migrations.FS, logger); err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

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

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	metrics := observability.NewMetrics()

	notifier := rbac.NewRedisNotifier(redisClient, rbac.ReloadChannel)
	rbacStore := rbac.NewStore(nil)
	rbacRepo := rbac.NewRepository(dbpool)
	rbacService := rbac.NewService(rbacRepo, rbacStore, notifier, logger)
	if err := rbacService.Reload(ctx); err != nil {
		logger.Error("load registry snapshot", slog.Any("error", err))
		os.Exit(1)
	}
	engine := rbac.NewEngine(rbacStore, rbac.DefaultResolver())

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()
	recorder := audit.NewRecorder(queueClient, logger, jobs.QueueDefault)

	guard := rbac.Middleware{
		Engine:    engine,
		Logger:    logger,
		Observers: []rbac.DecisionObserver{metrics, recorder},
	}

	rbacHandler := rbac.NewHandler(logger, rbacService, guard)

	directoryService := directory.NewService(directory.NewRepository(dbpool))
	principalLoader := directory.Middleware{Service: directoryService, Logger: logger}

	patientService := patients.NewService(patients.NewRepository(dbpool))
	patientHandler := patients.NewHandler(logger, patientService, guard)

	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audit.NewHandler(logger, auditService, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	// Refresh the published snapshot whenever a peer instance mutates the
	// registry.
	go func() {
		if err := rbac.ListenReload(ctx, redisClient, rbac.ReloadChannel, logger, func(ctx context.Context) error {
			metrics.ObserveSnapshotReload()
			return rbacService.Reload(ctx)
		}); err != nil && err != context.Canceled {
			logger.Warn("reload listener stopped", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		Directory:      principalLoader,
		AuthHandler:    authHandler,
		RBACHandler:    rbacHandler,
		PatientHandler: patientHandler,
		AuditHandler:   auditHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
