// REX API — HTTP-интерфейс движка.
//
// Отвечает за:
//   - POST /api/v1/executions — выполнение графа локальным движком
//     (сервис для HTTP-делегата других экземпляров)
//   - /api/v1/runs — запуск workflow через оркестратор и история runs
//   - /api/v1/workflows/validate, /api/v1/nodes
//   - /healthz, /metrics
//
// История runs хранится в PostgreSQL, если задан DB_URL, иначе в памяти.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeghVyas3132/REX/internal/api"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/nodes"
	"github.com/MeghVyas3132/REX/internal/orchestrator"
	"github.com/MeghVyas3132/REX/internal/remote"
	"github.com/MeghVyas3132/REX/internal/repo"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting rex-api")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище runs
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
		logger.Info("connected to database")
	} else {
		store = repo.NewMemoryRunRepo()
		logger.Info("DB_URL not set, keeping run history in memory")
	}

	// Удалённый исполнитель (опционально)
	delegate, closeDelegate, err := remote.FromEnv(logger)
	if err != nil {
		logger.Warn("delegate unavailable, running locally only", "error", err)
	} else if delegate != nil {
		logger.Info("delegate configured", "delegate", delegate.Name())
	}
	defer closeDelegate()

	registry := nodes.DefaultRegistry()
	eng := engine.New(engine.Config{Registry: registry, Logger: logger})

	orch := orchestrator.New(orchestrator.Config{
		Engine:   eng,
		Delegate: delegate,
		Store:    store,
		Logger:   logger,
	})

	handler := api.NewHandler(api.Config{
		Orchestrator: orch,
		Engine:       eng,
		Nodes:        registry,
		Logger:       logger,
	})

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", addr, "nodes", registry.Count())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		// Graceful shutdown с таймаутом 10 секунд
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		err := server.Shutdown(shutdownCtx)
		orch.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}
