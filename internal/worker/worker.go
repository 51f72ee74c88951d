package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/mq"
)

const defaultPrefetch = 5

// Executor выполняет граф из запроса (реализуется *engine.Engine).
type Executor interface {
	Serve(ctx context.Context, req *engine.ExecutionRequest) (*engine.ExecutionResponse, error)
}

// Replier отправляет ответ на RPC-запрос (реализуется *mq.Publisher).
type Replier interface {
	Reply(ctx context.Context, replyTo, correlationID string, msg *mq.Message) error
}

// Config — зависимости и настройки Worker.
type Config struct {
	Executor Executor
	Replier  Replier
	Conn     *mq.Connection

	// Prefetch — сколько запросов выполняется одновременно (default: 5).
	Prefetch int

	Logger *slog.Logger
}

// Worker — удалённый исполнитель графов поверх RabbitMQ.
//
// Берёт ExecutionRequest из executions.requested, выполняет его
// локальным движком и отвечает в ReplyTo с тем же correlation id.
// Состояния между запросами нет, поэтому экземпляров может быть сколько угодно.
type Worker struct {
	cfg    Config
	logger *slog.Logger

	consumer *mq.Consumer
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	inFlight atomic.Int64
	stopped  atomic.Bool
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Worker{cfg: cfg, logger: cfg.Logger.With("component", "worker")}
}

// Start подписывается на очередь запросов и возвращается сразу.
func (w *Worker) Start(ctx context.Context) error {
	if w.cfg.Conn == nil {
		return ErrNoConnection
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.consumer = mq.NewConsumer(w.cfg.Conn, w.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueExecutionsRequested),
		Handler:  w.handleExecutionRequested,
		Prefetch: w.cfg.Prefetch,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("execution consumer stopped", "error", err)
		}
	}()

	w.logger.Info("worker started",
		"queue", mq.QueueExecutionsRequested,
		"prefetch", w.cfg.Prefetch,
	)
	return nil
}

// Stop прекращает приём запросов и ждёт consumer.
// Запросы, прерванные остановкой, возвращаются в очередь.
func (w *Worker) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}

	w.logger.Info("stopping worker", "in_flight", w.InFlight())

	if w.cancel != nil {
		w.cancel()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped возвращает true после Stop.
func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}

// InFlight — число выполняемых сейчас запросов.
func (w *Worker) InFlight() int64 {
	return w.inFlight.Load()
}
