package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

// invoke выполняет узел с валидацией и retry.
//
// Порядок:
//  1. Валидация (без retry).
//  2. До maxRetries+1 попыток с линейным backoff attempt*delay.
//  3. Исчерпание попыток: ExecutionError, или error payload при continueOnFail.
func (e *Engine) invoke(ctx context.Context, rc *RunContext, node *domain.NodeSpec, input any) (any, error) {
	maxRetries, delay, continueOnFail := rc.opts.policyFor(node)
	runner := resolveRunner(e.registry, node)
	subtype := runner.Subtype()

	if err := e.validateNode(node, runner); err != nil {
		rc.emit(TraceEvent{Kind: TraceNodeFailed, NodeID: node.ID, Detail: err.Error()})
		telemetry.NodeExecutions.WithLabelValues(subtype, "invalid").Inc()
		if continueOnFail {
			return domain.ErrorPayload(err.Error()), nil
		}
		return nil, err
	}

	logger := telemetry.WithNodeID(rc.logger, node.ID).With("subtype", subtype)
	attempts := maxRetries + 1

	var (
		lastErr error
		made    int
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		if attempt == 1 {
			rc.emit(TraceEvent{Kind: TraceNodeStarted, NodeID: node.ID, Attempt: attempt})
		} else {
			rc.emit(TraceEvent{Kind: TraceNodeRetry, NodeID: node.ID, Attempt: attempt, Detail: lastErr.Error()})
		}

		output, err := e.attempt(ctx, rc, runner, node, input)
		if err == nil {
			rc.emit(TraceEvent{Kind: TraceNodeSucceeded, NodeID: node.ID, Attempt: attempt})
			telemetry.NodeExecutions.WithLabelValues(subtype, "succeeded").Inc()
			return output, nil
		}
		lastErr = err

		logger.Warn("node attempt failed",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)

		if attempt == attempts || ctx.Err() != nil {
			break
		}

		backoff := calculateBackoff(attempt, delay)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	execErr := &ExecutionError{NodeID: node.ID, Attempts: made, Err: lastErr}
	rc.emit(TraceEvent{Kind: TraceNodeFailed, NodeID: node.ID, Attempt: made, Detail: lastErr.Error()})

	if continueOnFail {
		telemetry.NodeExecutions.WithLabelValues(subtype, "continued").Inc()
		logger.Info("node failed, continuing with error payload", "attempts", made)
		return domain.ErrorPayload(lastErr.Error()), nil
	}

	telemetry.NodeExecutions.WithLabelValues(subtype, "failed").Inc()
	logger.Error("node failed", "attempts", made, "error", lastErr)
	return nil, execErr
}

// attempt — одна попытка Runner'а с таймаутом и перехватом паники.
func (e *Engine) attempt(ctx context.Context, rc *RunContext, runner Runner, node *domain.NodeSpec, input any) (output any, err error) {
	if rc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.opts.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("%w: %v", ErrRunnerPanic, r)
		}
	}()

	rc.invocations[node.ID]++
	telemetry.NodeAttempts.WithLabelValues(runner.Subtype()).Inc()

	output, err = runner.Execute(ctx, node, input)
	if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// Runner вернул результат уже после таймаута.
		return nil, fmt.Errorf("attempt timed out after %s: %w", rc.opts.Timeout, ctx.Err())
	}
	return output, err
}

// calculateBackoff вычисляет задержку перед следующей попыткой.
// Линейный backoff: 1*delay, 2*delay, 3*delay...
func calculateBackoff(attempt int, delay time.Duration) time.Duration {
	return time.Duration(attempt) * delay
}

// failureMessage извлекает текст ошибки для error payload.
func failureMessage(err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) && execErr.Err != nil {
		return execErr.Err.Error()
	}
	return err.Error()
}
