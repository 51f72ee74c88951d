package engine

import (
	"errors"
	"fmt"
)

// Ошибки валидации графа.
var (
	// ErrEmptyNodes — workflow не содержит узлов.
	ErrEmptyNodes = errors.New("workflow has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode — ребро ссылается на несуществующий узел.
	ErrUnknownNode = errors.New("edge references unknown node")

	// ErrUnknownNodeKind — неизвестная категория узла.
	ErrUnknownNodeKind = errors.New("unknown node kind")

	// ErrUnknownStartNode — startFrom содержит несуществующий узел.
	ErrUnknownStartNode = errors.New("start node not found")

	// ErrCyclicDependency — обнаружен цикл в графе.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrSelfDependency — ребро из узла в самого себя.
	ErrSelfDependency = errors.New("node depends on itself")
)

// Ошибки валидации узла перед вызовом Runner'а.
var (
	// ErrUnusableConfig — у узла нет ни config, ни subtype.
	ErrUnusableConfig = errors.New("node has no usable configuration")

	// ErrConfigSchema — config не проходит JSON-схему Runner'а.
	ErrConfigSchema = errors.New("node config does not match schema")
)

// Ошибки выполнения.
var (
	// ErrRunCancelled — run прерван отменой контекста.
	ErrRunCancelled = errors.New("run cancelled")

	// ErrRunnerPanic — Runner запаниковал.
	ErrRunnerPanic = errors.New("runner panicked")

	// ErrDelegateUnavailable — удалённый исполнитель недоступен.
	ErrDelegateUnavailable = errors.New("execution delegate unavailable")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// ValidationError — ошибка валидации с контекстом.
//
// Никогда не ретраится: либо граф не запускается вовсе,
// либо узел сразу получает error payload.
type ValidationError struct {
	NodeID  string // ID узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// ExecutionError — Runner упал после всех попыток.
type ExecutionError struct {
	NodeID   string
	Attempts int
	Err      error
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %s failed after %d attempt(s): %v", e.NodeID, e.Attempts, e.Err)
}

// Unwrap возвращает последнюю ошибку Runner'а.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsValidationError проверяет, является ли ошибка ошибкой валидации.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
