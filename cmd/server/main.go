package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/api"
	"github.com/streaky/streakd/internal/config"
	"github.com/streaky/streakd/internal/db"
	"github.com/streaky/streakd/internal/encryption"
	"github.com/streaky/streakd/internal/github"
	"github.com/streaky/streakd/internal/metrics"
	"github.com/streaky/streakd/internal/notify"
	"github.com/streaky/streakd/internal/ratelimiter"
	"github.com/streaky/streakd/internal/repository"
	"github.com/streaky/streakd/internal/service"
	"github.com/streaky/streakd/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	crypt, err := encryption.New(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("failed to initialize encryption", zap.Error(err))
	}

	queueRepo := repository.NewPgQueueRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)
	deliveryRepo := repository.NewPgDeliveryLogRepository(pool)

	checker := github.NewCachedChecker(
		github.NewClient(cfg.GithubAPIURL, cfg.GithubTimeout),
		cfg.CacheTTL, cfg.CacheSize,
	)
	discord := notify.NewDiscordNotifier(cfg.NotifyTimeout)
	telegram := notify.NewTelegramNotifier(cfg.TelegramAPIURL, cfg.NotifyTimeout)
	limiter := ratelimiter.New(cfg.NotifyRate)

	// ---- workers ----
	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onItem, onDelivery := m.WorkerHooks()
	proc := worker.NewProcessor(
		queueRepo, userRepo, deliveryRepo,
		crypt, checker, discord, telegram, limiter,
		logger.Named("processor"),
		onItem, onDelivery,
	)
	dispatcher := worker.NewDispatcher(
		queueRepo, proc,
		cfg.DispatchWorkers, cfg.MaxClaims,
		logger.Named("dispatcher"),
	)

	svc := service.NewCycleService(
		queueRepo, userRepo, dispatcher,
		workerCtx, logger.Named("cycle"),
		m.BatchesStarted.Inc,
	)

	reaper := worker.NewReaper(
		queueRepo, cfg.ReaperInterval, cfg.ReaperTimeout, cfg.MaxRequeues,
		logger.Named("reaper"),
		func(requeued, failed int) {
			m.StaleRequeued.Add(float64(requeued))
			m.StaleFailed.Add(float64(failed))
		},
	)
	go reaper.Run(workerCtx)

	janitor := worker.NewJanitor(
		queueRepo, cfg.CleanupInterval, cfg.RetentionDays,
		logger.Named("janitor"),
		func(rows int64) { m.RowsCleaned.Add(float64(rows)) },
	)
	go janitor.Run(workerCtx)

	cycleWorker := worker.NewCycleWorker(svc, cfg.CycleInterval, cfg.ReminderHourUTC, logger.Named("scheduler"))
	go cycleWorker.Run(workerCtx)

	// ---- HTTP server ----
	router := api.NewRouter(svc, cfg.CronSecret, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal background workers and in-flight dispatches to stop.
	// Unfinished items stay in processing; the reaper requeues them on
	// the next start.
	cancelWorkers()

	logger.Info("server stopped cleanly")
}
