package engine

import (
	"context"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// Delegate — удалённый исполнитель всего графа.
//
// Получает граф целиком и возвращает результаты в той же форме,
// что и локальный цикл. Любая ошибка делегата означает переход
// на локальное выполнение.
type Delegate interface {
	// Name — короткое имя для логов и метрик ("http", "amqp").
	Name() string

	// Execute выполняет граф удалённо.
	Execute(ctx context.Context, req *ExecutionRequest) (Results, error)
}

// ExecutionRequest — граф и параметры run'а в виде, пригодном для передачи.
type ExecutionRequest struct {
	Nodes        []domain.NodeSpec `json:"nodes"`
	Edges        []domain.EdgeSpec `json:"edges"`
	InitialInput any               `json:"initialInput,omitempty"`
	StartFrom    []string          `json:"startFrom,omitempty"`
	Retries      *int              `json:"retries,omitempty"`
	RetryDelayMs int               `json:"retryDelayMs,omitempty"`
	TimeoutMs    int64             `json:"timeoutMs,omitempty"`
	JoinMode     string            `json:"joinMode,omitempty"`
}

// ExecutionResponse — ответ удалённого исполнителя.
type ExecutionResponse struct {
	RunID   string  `json:"run_id,omitempty"`
	Results Results `json:"results"`
	Error   string  `json:"error,omitempty"`
}

// NewExecutionRequest собирает запрос из workflow и эффективных опций.
func NewExecutionRequest(wf *domain.Workflow, opts Options) *ExecutionRequest {
	req := &ExecutionRequest{
		Nodes:        wf.Nodes,
		Edges:        wf.Edges,
		InitialInput: opts.InitialInput,
		StartFrom:    opts.StartFrom,
		Retries:      opts.Retries,
		JoinMode:     string(opts.JoinMode),
	}
	if opts.RetryDelay > 0 {
		req.RetryDelayMs = int(opts.RetryDelay / time.Millisecond)
	}
	if opts.Timeout > 0 {
		// вверх до целой миллисекунды
		req.TimeoutMs = int64((opts.Timeout + time.Millisecond - 1) / time.Millisecond)
	}
	return req
}

// Options восстанавливает опции run'а из запроса.
func (r *ExecutionRequest) Options() (Options, error) {
	opts := OptionsFromSettings(&domain.WorkflowSettings{
		InitialInput: r.InitialInput,
		StartFrom:    r.StartFrom,
		Retries:      r.Retries,
		RetryDelayMs: r.RetryDelayMs,
	})
	if r.TimeoutMs > 0 {
		opts.Timeout = time.Duration(r.TimeoutMs) * time.Millisecond
	}

	mode, err := ParseJoinMode(r.JoinMode)
	if err != nil {
		return Options{}, NewValidationError("", "joinMode", err.Error(), err)
	}
	opts.JoinMode = mode
	return opts, nil
}

// Serve выполняет запрос локально и упаковывает итог в ExecutionResponse.
//
// resp не nil даже при ошибке: Error содержит её текст, Results —
// частичные результаты (если run успел начаться).
func (e *Engine) Serve(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	resp := &ExecutionResponse{Results: Results{}}
	if req == nil {
		err := NewValidationError("", "nodes", "request is nil", ErrEmptyNodes)
		resp.Error = err.Error()
		return resp, err
	}

	opts, err := req.Options()
	if err != nil {
		resp.Error = err.Error()
		return resp, err
	}

	rep, err := e.Run(ctx, req.Nodes, req.Edges, opts)
	if rep != nil {
		resp.RunID = rep.RunID
		resp.Results = rep.Results
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, err
}
