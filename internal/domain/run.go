package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunMode — где фактически выполнялся граф.
type RunMode string

const (
	// RunModeLocal — граф выполнен движком в текущем процессе.
	RunModeLocal RunMode = "local"

	// RunModeRemote — граф выполнен удалённым сервисом (HTTP или RabbitMQ).
	RunModeRemote RunMode = "remote"
)

// Run — запись об одном выполнении workflow.
//
// Run создаётся когда:
// - Пользователь запускает workflow вручную (через API/CLI)
// - Scheduler запускает workflow по расписанию
//
// У каждого run свой набор результатов; состояние между run'ами не разделяется.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// WorkflowName — имя выполняемого workflow.
	WorkflowName string `json:"workflow_name,omitempty"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Mode — local или remote.
	Mode RunMode `json:"mode,omitempty"`

	// Input — начальный payload.
	Input any `json:"input,omitempty"`

	// Results — выход каждого достигнутого узла.
	Results map[string]any `json:"results,omitempty"`

	// FailedNodes — узлы, завершившиеся error payload.
	FailedNodes []string `json:"failed_nodes,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED или CANCELLED.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(workflowName string, input any) *Run {
	return &Run{
		ID:           uuid.New(),
		WorkflowName: workflowName,
		Status:       RunStatusPending,
		Input:        input,
		CreatedAt:    time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// Complete фиксирует результаты и выбирает финальный статус.
//
// Нет упавших узлов — SUCCEEDED, есть упавшие и есть успешные — PARTIAL,
// упали все — FAILED.
func (r *Run) Complete(mode RunMode, results map[string]any) {
	now := time.Now()
	r.Mode = mode
	r.Results = results
	r.FinishedAt = &now
	r.FailedNodes = FailedNodes(results)

	switch {
	case len(r.FailedNodes) == 0:
		r.Status = RunStatusSucceeded
	case len(r.FailedNodes) < len(results):
		r.Status = RunStatusPartial
	default:
		r.Status = RunStatusFailed
	}
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.Error = err
}

// MarkCancelled переводит run в статус CANCELLED.
func (r *Run) MarkCancelled(results map[string]any) {
	now := time.Now()
	r.Status = RunStatusCancelled
	r.FinishedAt = &now
	r.Results = results
	r.FailedNodes = FailedNodes(results)
}

// FailedNodes возвращает ID узлов с error payload (порядок не гарантирован).
func FailedNodes(results map[string]any) []string {
	var failed []string
	for id, out := range results {
		if IsErrorPayload(out) {
			failed = append(failed, id)
		}
	}
	return failed
}
