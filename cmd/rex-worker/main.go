// REX Worker — удалённый исполнитель графов.
//
// Worker:
//   - Получает execution.requested из RabbitMQ
//   - Выполняет граф локальным движком
//   - Отправляет результат в ReplyTo запроса
//
// Workers масштабируются горизонтально: очередь общая.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/mq"
	"github.com/MeghVyas3132/REX/internal/nodes"
	"github.com/MeghVyas3132/REX/internal/telemetry"
	"github.com/MeghVyas3132/REX/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting rex-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	// Создаём топологию
	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}

	prefetch, _ := strconv.Atoi(os.Getenv("WORKER_PREFETCH"))

	w := worker.New(worker.Config{
		Executor: engine.New(engine.Config{Registry: nodes.DefaultRegistry(), Logger: logger}),
		Replier:  mq.NewPublisher(mqConn, logger),
		Conn:     mqConn,
		Prefetch: prefetch,
		Logger:   logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		status, code := "ok", http.StatusOK
		if w.IsStopped() || !mqConn.IsConnected() {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(code)
		json.NewEncoder(rw).Encode(map[string]any{
			"status":    status,
			"rabbitmq":  mqConn.IsConnected(),
			"in_flight": w.InFlight(),
		})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	server := &http.Server{
		Addr:              port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		// Сначала worker: незавершённые запросы вернутся в очередь.
		w.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}

	logger.Info("rex-worker stopped")
}
