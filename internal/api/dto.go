package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
)

// Run DTOs

// CreateRunRequest — запрос на запуск workflow.
//
// Поля кроме workflow переопределяют workflow.settings.
type CreateRunRequest struct {
	Workflow     *domain.Workflow `json:"workflow"`
	Input        any              `json:"input,omitempty"`
	StartFrom    []string         `json:"startFrom,omitempty"`
	Retries      *int             `json:"retries,omitempty"`
	RetryDelayMs int              `json:"retryDelayMs,omitempty"`
	TimeoutSec   int              `json:"timeoutSec,omitempty"`
	TimeoutMs    int64            `json:"timeoutMs,omitempty"` // приоритетнее timeoutSec
	JoinMode     string           `json:"joinMode,omitempty"`
}

// Options конвертирует запрос в engine.Options.
func (r CreateRunRequest) Options() (engine.Options, error) {
	opts := engine.Options{
		InitialInput: r.Input,
		StartFrom:    r.StartFrom,
		Retries:      r.Retries,
	}
	if r.RetryDelayMs > 0 {
		opts.RetryDelay = time.Duration(r.RetryDelayMs) * time.Millisecond
	}
	switch {
	case r.TimeoutMs > 0:
		opts.Timeout = time.Duration(r.TimeoutMs) * time.Millisecond
	case r.TimeoutSec > 0:
		opts.Timeout = time.Duration(r.TimeoutSec) * time.Second
	}
	if r.JoinMode != "" {
		mode, err := engine.ParseJoinMode(r.JoinMode)
		if err != nil {
			return engine.Options{}, err
		}
		opts.JoinMode = mode
	}
	return opts, nil
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID           uuid.UUID           `json:"id"`
	WorkflowName string              `json:"workflow_name,omitempty"`
	Status       string              `json:"status"`
	Mode         string              `json:"mode,omitempty"`
	Input        any                 `json:"input,omitempty"`
	Results      map[string]any      `json:"results,omitempty"`
	FailedNodes  []string            `json:"failed_nodes,omitempty"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	FinishedAt   *time.Time          `json:"finished_at,omitempty"`
	DurationMs   int64               `json:"duration_ms,omitempty"`
	Error        string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Trace        []engine.TraceEvent `json:"trace,omitempty"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:           r.ID,
		WorkflowName: r.WorkflowName,
		Status:       string(r.Status),
		Mode:         string(r.Mode),
		Input:        r.Input,
		Results:      r.Results,
		FailedNodes:  r.FailedNodes,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		DurationMs:   r.Duration().Milliseconds(),
		Error:        r.Error,
		CreatedAt:    r.CreatedAt,
	}
}

// WithReport добавляет трассу run'а.
func (r RunResponse) WithReport(report *engine.Report) RunResponse {
	if report != nil {
		r.Trace = report.Trace
	}
	return r
}

// Workflow DTOs

// ValidateResponse — результат проверки workflow.
type ValidateResponse struct {
	Valid  bool   `json:"valid"`
	Name   string `json:"name,omitempty"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
	Error  string `json:"error,omitempty"`
	NodeID string `json:"node_id,omitempty"`
	Field  string `json:"field,omitempty"`
}
