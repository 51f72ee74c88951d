// REX Scheduler — запуск workflow по расписанию.
//
// Scheduler:
//   - Загружает расписания из SCHEDULES_FILE (YAML)
//   - Вычисляет время следующего запуска (cron или интервал, с учётом timezone)
//   - Запускает due workflow через оркестратор
//
// При заданном DB_URL runs пишутся в PostgreSQL, а расписания
// выполняет только держатель advisory lock (несколько реплик безопасны).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/nodes"
	"github.com/MeghVyas3132/REX/internal/orchestrator"
	"github.com/MeghVyas3132/REX/internal/remote"
	"github.com/MeghVyas3132/REX/internal/repo"
	"github.com/MeghVyas3132/REX/internal/scheduler"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting rex-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path := os.Getenv("SCHEDULES_FILE")
	if path == "" {
		path = "schedules.yaml"
	}

	schedules, err := scheduler.LoadFile(path)
	if err != nil {
		logger.Error("failed to load schedules", "path", path, "error", err)
		os.Exit(1)
	}
	logger.Info("schedules loaded", "path", path, "count", len(schedules))

	cfg := scheduler.Config{
		Schedules: schedules,
		Logger:    logger,
	}

	var store repo.RunStore
	if dsn := os.Getenv("DB_URL"); dsn != "" {
		pool, err := repo.NewPool(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := repo.EnsureSchema(ctx, pool); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		store = repo.NewRunRepo(pool)

		lock := repo.NewAdvisoryLock(pool, repo.SchedulerLockKey)
		defer func() {
			releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer releaseCancel()
			if err := lock.Release(releaseCtx); err != nil {
				logger.Warn("failed to release scheduler lock", "error", err)
			}
		}()
		cfg.Elector = lock
		logger.Info("database connected, leader election enabled")
	} else {
		store = repo.NewMemoryRunRepo()
	}

	delegate, closeDelegate, err := remote.FromEnv(logger)
	if err != nil {
		logger.Warn("delegate unavailable, running locally only", "error", err)
	}
	defer closeDelegate()

	orch := orchestrator.New(orchestrator.Config{
		Engine:   engine.New(engine.Config{Registry: nodes.DefaultRegistry(), Logger: logger}),
		Delegate: delegate,
		Store:    store,
		Logger:   logger,
	})
	cfg.Runner = orch

	sched, err := scheduler.New(cfg)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("SCHEDULER_PORT"); v != "" {
		port = ":" + v
	}

	server := &http.Server{
		Addr:              port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err := server.Shutdown(shutdownCtx)
		orch.Stop()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("rex-scheduler stopped")
}
