package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/mq"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

// handleExecutionRequested обрабатывает сообщение из очереди executions.requested.
func (w *Worker) handleExecutionRequested(ctx context.Context, delivery *mq.Delivery) error {
	return w.process(ctx, &delivery.Message, delivery.ReplyTo(), delivery.CorrelationID())
}

// process выполняет запрос и отправляет ответ.
//
// Возвращённая ошибка означает nack с requeue — только когда run
// прерван остановкой воркера. Ошибки графа уходят в ответ.
func (w *Worker) process(ctx context.Context, msg *mq.Message, replyTo, correlationID string) error {
	logger := w.logger.With(
		"message_id", msg.ID,
		"correlation_id", correlationID,
	)

	if msg.Type != mq.MessageTypeExecutionRequested {
		logger.Warn("dropping message", "type", msg.Type, "error", ErrUnexpectedMessage)
		telemetry.WorkerExecutions.WithLabelValues("rejected").Inc()
		return nil
	}

	req, err := mq.ParsePayload[engine.ExecutionRequest](msg)
	if err != nil {
		logger.Warn("invalid execution request", "error", err)
		telemetry.WorkerExecutions.WithLabelValues("invalid").Inc()
		w.reply(ctx, logger, replyTo, correlationID, &engine.ExecutionResponse{
			Results: engine.Results{},
			Error:   fmt.Sprintf("%s: %v", ErrInvalidRequest, err),
		})
		return nil
	}

	logger.Info("execution requested",
		"nodes", len(req.Nodes),
		"edges", len(req.Edges),
	)

	w.inFlight.Add(1)
	telemetry.WorkerInFlight.Inc()
	resp, err := w.cfg.Executor.Serve(telemetry.WithLogger(ctx, logger), &req)
	telemetry.WorkerInFlight.Dec()
	w.inFlight.Add(-1)

	if err != nil && errors.Is(err, engine.ErrRunCancelled) && ctx.Err() != nil {
		// воркер останавливается — запрос достанется другому экземпляру
		telemetry.WorkerExecutions.WithLabelValues("requeued").Inc()
		return fmt.Errorf("%w: %v", ErrWorkerStopped, err)
	}

	result := "succeeded"
	if err != nil {
		result = "failed"
		logger.Warn("execution failed", "run_id", resp.RunID, "error", err)
	} else {
		logger.Info("execution finished",
			"run_id", resp.RunID,
			"completed_nodes", len(resp.Results),
		)
	}
	telemetry.WorkerExecutions.WithLabelValues(result).Inc()

	w.reply(ctx, logger, replyTo, correlationID, resp)
	return nil
}

// reply отправляет execution.completed в очередь вызывающего.
func (w *Worker) reply(ctx context.Context, logger *slog.Logger, replyTo, correlationID string, resp *engine.ExecutionResponse) {
	if replyTo == "" {
		logger.Debug("no reply-to, result dropped")
		return
	}
	if w.cfg.Replier == nil {
		logger.Warn("replier not available, skipping reply")
		return
	}

	msg := mq.NewMessage(mq.MessageTypeExecutionCompleted, resp)
	if err := w.cfg.Replier.Reply(context.WithoutCancel(ctx), replyTo, correlationID, msg); err != nil {
		// Не возвращаем ошибку — вызывающий упадёт по таймауту и выполнит граф сам
		logger.Warn("failed to send reply", "reply_to", replyTo, "error", err)
	}
}
