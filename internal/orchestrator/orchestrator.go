package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/repo"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

// Orchestrator запускает workflow и ведёт историю runs.
//
// Каждый вызов RunWorkflow получает собственный run и собственное
// состояние движка; общие у вызовов только движок (без состояния),
// делегат и хранилище. Поэтому RunWorkflow можно вызывать из
// нескольких горутин.
type Orchestrator struct {
	engine   *engine.Engine
	delegate engine.Delegate
	store    repo.RunStore
	logger   *slog.Logger

	wg        sync.WaitGroup
	stopped   bool
	stoppedMu sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Engine — локальный движок. Обязателен.
	Engine *engine.Engine

	// Delegate — удалённый исполнитель. nil — только локально.
	Delegate engine.Delegate

	// Store — история runs. nil — runs не сохраняются.
	Store repo.RunStore

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.New(engine.Config{Logger: logger})
	}

	return &Orchestrator{
		engine:   eng,
		delegate: cfg.Delegate,
		store:    cfg.Store,
		logger:   logger,
	}
}

// Engine возвращает локальный движок.
func (o *Orchestrator) Engine() *engine.Engine {
	return o.engine
}

// Store возвращает хранилище runs (может быть nil).
func (o *Orchestrator) Store() repo.RunStore {
	return o.store
}

// RunWorkflow выполняет workflow и возвращает запись run и отчёт.
//
// Опции: настройки workflow, поверх них override. До запуска
// проверяется только структура графа; её ошибка возвращается вместе
// с run в статусе FAILED и report == nil. Ошибки конфигурации узла
// останавливают только его ветку. При
// отмене ctx возвращается run в статусе CANCELLED, частичный report
// и engine.ErrRunCancelled. Упавшие узлы ошибкой не считаются: они
// видны в run.FailedNodes и статусе PARTIAL/FAILED.
func (o *Orchestrator) RunWorkflow(ctx context.Context, wf *domain.Workflow, override engine.Options) (*domain.Run, *engine.Report, error) {
	if wf == nil {
		return nil, nil, ErrNilWorkflow
	}
	o.stoppedMu.RLock()
	if o.stopped {
		o.stoppedMu.RUnlock()
		return nil, nil, ErrOrchestratorStopped
	}
	o.wg.Add(1)
	o.stoppedMu.RUnlock()
	defer o.wg.Done()

	opts := engine.OptionsFromSettings(wf.Settings).Merge(override)

	run := domain.NewRun(wf.Name, opts.InitialInput)
	opts.RunID = run.ID.String()

	logger := telemetry.WithWorkflow(telemetry.WithRunID(o.logger, opts.RunID), wf.Name)
	ctx = telemetry.WithLogger(ctx, logger)

	o.create(ctx, run)

	if err := engine.ValidateGraph(wf); err != nil {
		logger.Warn("workflow rejected", "error", err)
		run.MarkFailed(err.Error())
		o.finish(ctx, run)
		return run, nil, err
	}

	run.MarkRunning()
	o.update(ctx, run)

	report, mode, err := o.execute(ctx, wf, opts, logger)

	switch {
	case errors.Is(err, engine.ErrRunCancelled):
		var results engine.Results
		if report != nil {
			results = report.Results
		}
		run.Mode = mode
		run.MarkCancelled(results)
		run.Error = err.Error()
	case err != nil:
		run.Mode = mode
		run.MarkFailed(err.Error())
	default:
		run.Complete(mode, report.Results)
	}

	o.finish(ctx, run)

	logger.Info("run completed",
		"status", run.Status,
		"mode", run.Mode,
		"failed_nodes", len(run.FailedNodes),
		"duration", run.Duration(),
	)

	return run, report, err
}

// execute выполняет граф: сначала делегат, при любой его ошибке локально.
func (o *Orchestrator) execute(ctx context.Context, wf *domain.Workflow, opts engine.Options, logger *slog.Logger) (*engine.Report, domain.RunMode, error) {
	if o.delegate != nil {
		started := time.Now()
		results, err := o.delegate.Execute(ctx, engine.NewExecutionRequest(wf, opts))
		if err == nil {
			return &engine.Report{
				RunID:    opts.RunID,
				Results:  results,
				Duration: time.Since(started),
			}, domain.RunModeRemote, nil
		}

		if ctx.Err() != nil {
			return nil, domain.RunModeRemote, fmt.Errorf("%w: %v", engine.ErrRunCancelled, ctx.Err())
		}

		telemetry.DelegateFallbacks.WithLabelValues(o.delegate.Name()).Inc()
		level := slog.LevelError
		if errors.Is(err, engine.ErrDelegateUnavailable) {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "remote execution failed, running locally",
			"delegate", o.delegate.Name(),
			"error", err,
		)
	}

	report, err := o.engine.Run(ctx, wf.Nodes, wf.Edges, opts)
	return report, domain.RunModeLocal, err
}

// create сохраняет новый run. Ошибка хранилища не прерывает выполнение.
func (o *Orchestrator) create(ctx context.Context, run *domain.Run) {
	if o.store == nil {
		return
	}
	if err := o.store.Create(context.WithoutCancel(ctx), run); err != nil {
		telemetry.FromContext(ctx).Error("failed to record run", "error", err)
	}
}

// update сохраняет текущее состояние run.
func (o *Orchestrator) update(ctx context.Context, run *domain.Run) {
	if o.store == nil {
		return
	}
	if err := o.store.Update(context.WithoutCancel(ctx), run); err != nil {
		telemetry.FromContext(ctx).Error("failed to update run", "error", err)
	}
}

// finish сохраняет финальное состояние и пишет метрики.
func (o *Orchestrator) finish(ctx context.Context, run *domain.Run) {
	o.update(ctx, run)

	mode := string(run.Mode)
	if mode == "" {
		mode = string(domain.RunModeLocal)
	}
	telemetry.RunsTotal.WithLabelValues(string(run.Status), mode).Inc()
	if d := run.Duration(); d > 0 {
		telemetry.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
	}
}

// Stop запрещает новые runs и ждёт завершения текущих.
func (o *Orchestrator) Stop() {
	o.stoppedMu.Lock()
	o.stopped = true
	o.stoppedMu.Unlock()

	o.logger.Info("stopping orchestrator...")
	o.wg.Wait()
	o.logger.Info("orchestrator stopped")
}

// IsStopped проверяет, остановлен ли Orchestrator.
func (o *Orchestrator) IsStopped() bool {
	o.stoppedMu.RLock()
	defer o.stoppedMu.RUnlock()
	return o.stopped
}
