package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

const defaultTickInterval = time.Second

// Runner запускает workflow (реализуется *orchestrator.Orchestrator).
type Runner interface {
	RunWorkflow(ctx context.Context, wf *domain.Workflow, override engine.Options) (*domain.Run, *engine.Report, error)
}

// Elector решает, является ли процесс лидером.
// Только лидер выполняет тики.
type Elector interface {
	Acquire(ctx context.Context) (bool, error)
}

// WorkflowLoader загружает workflow по пути из расписания.
type WorkflowLoader func(path string) (*domain.Workflow, error)

// Scheduler — планировщик, запускающий workflow по расписаниям.
//
// Состояние расписаний (NextDueAt, LastRunAt) живёт в памяти процесса.
// Каждый запуск — отдельный run оркестратора со своим состоянием.
// Пока предыдущий запуск расписания не завершился, следующий пропускается.
type Scheduler struct {
	runner   Runner
	elector  Elector
	load     WorkflowLoader
	logger   *slog.Logger
	now      func() time.Time
	interval time.Duration

	mu        sync.Mutex
	schedules []*domain.Schedule
	inFlight  map[string]bool

	wg sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	// Runner — запуск workflow. Обязателен.
	Runner Runner

	// Schedules — расписания (обычно из LoadFile).
	Schedules []domain.Schedule

	// Elector — выбор лидера. nil — процесс всегда лидер.
	Elector Elector

	// Loader — загрузка workflow. По умолчанию engine.LoadWorkflowFile.
	Loader WorkflowLoader

	// TickInterval — период проверки расписаний (default: 1s).
	TickInterval time.Duration

	// Clock — источник времени (для тестов). По умолчанию time.Now.
	Clock func() time.Time

	Logger *slog.Logger
}

// New создаёт Scheduler и вычисляет первое время запуска каждого расписания.
func New(cfg Config) (*Scheduler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	load := cfg.Loader
	if load == nil {
		load = engine.LoadWorkflowFile
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	interval := cfg.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}

	s := &Scheduler{
		runner:   cfg.Runner,
		elector:  cfg.Elector,
		load:     load,
		logger:   logger,
		now:      now,
		interval: interval,
		inFlight: make(map[string]bool),
	}

	start := now()
	seen := make(map[string]bool, len(cfg.Schedules))
	for i := range cfg.Schedules {
		sched := cfg.Schedules[i]
		if err := ValidateSchedule(&sched); err != nil {
			return nil, err
		}
		if seen[sched.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSchedule, sched.Name)
		}
		seen[sched.Name] = true

		next, err := CalculateNextDue(&sched, start)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", sched.Name, err)
		}
		sched.NextDueAt = &next

		s.schedules = append(s.schedules, &sched)
	}

	return s, nil
}

// Run выполняет тики до отмены ctx и ждёт завершения запущенных run'ов.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"schedules", len(s.schedules),
		"tick_interval", s.interval,
	)

	tk := time.NewTicker(s.interval)
	defer tk.Stop()

	for {
		select {
		case <-tk.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, waiting for in-flight runs")
			s.Wait()
			return nil
		}
	}
}

// Tick выполняет один тик планировщика.
//
//  1. Проверяет лидерство (если задан Elector)
//  2. Находит due schedules (enabled, next_due_at <= now)
//  3. Сдвигает next_due_at и запускает каждый в своей горутине
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.elector != nil {
		leader, err := s.elector.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("leader election: %w", err)
		}
		if !leader {
			return nil
		}
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var fired int
	for _, sched := range s.schedules {
		if !sched.IsDue(now) {
			continue
		}

		next, err := CalculateNextDue(sched, now)
		if err != nil {
			s.logger.Error("failed to calculate next due, disabling schedule",
				"schedule", sched.Name,
				"error", err,
			)
			sched.Enabled = false
			continue
		}
		sched.NextDueAt = &next

		if s.inFlight[sched.Name] {
			s.logger.Warn("previous run still in progress, skipping",
				"schedule", sched.Name,
				"next_due_at", next,
			)
			telemetry.ScheduleFirings.WithLabelValues(sched.Name, "skipped").Inc()
			continue
		}

		s.inFlight[sched.Name] = true
		fired++

		s.wg.Add(1)
		go func(sched *domain.Schedule) {
			defer s.wg.Done()
			s.fire(ctx, sched)
		}(sched)
	}

	if fired > 0 {
		s.logger.Debug("scheduler tick completed", "fired", fired)
	}
	return nil
}

// fire загружает workflow и запускает его через Runner.
func (s *Scheduler) fire(ctx context.Context, sched *domain.Schedule) {
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, sched.Name)
		s.mu.Unlock()
	}()

	logger := s.logger.With("schedule", sched.Name, "workflow", sched.WorkflowPath)

	wf, err := s.load(sched.WorkflowPath)
	if err != nil {
		logger.Error("failed to load workflow", "error", err)
		telemetry.ScheduleFirings.WithLabelValues(sched.Name, "load_error").Inc()
		return
	}

	run, _, err := s.runner.RunWorkflow(ctx, wf, engine.Options{InitialInput: sched.Input})
	if run != nil {
		s.mu.Lock()
		sched.RecordRun(run, s.now())
		s.mu.Unlock()
	}

	result := "error"
	switch {
	case errors.Is(err, engine.ErrRunCancelled):
		result = "cancelled"
	case err != nil:
		logger.Error("scheduled run failed", "error", err)
	case run != nil:
		result = strings.ToLower(string(run.Status))
	}
	telemetry.ScheduleFirings.WithLabelValues(sched.Name, result).Inc()

	if run != nil {
		logger.Info("scheduled run finished",
			"run_id", run.ID,
			"status", run.Status,
		)
	}
}

// Wait ждёт завершения запущенных run'ов.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Schedules возвращает копию текущего состояния расписаний.
func (s *Scheduler) Schedules() []domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Schedule, len(s.schedules))
	for i, sched := range s.schedules {
		out[i] = *sched
	}
	return out
}
