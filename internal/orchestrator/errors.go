package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrNilWorkflow — workflow не передан.
	ErrNilWorkflow = errors.New("workflow is nil")

	// ErrOrchestratorStopped — оркестратор остановлен.
	ErrOrchestratorStopped = errors.New("orchestrator stopped")
)
