package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// SubtypeWait — subtype задержки.
const SubtypeWait = "wait"

const waitSchema = `{
	"type": "object",
	"properties": {
		"duration_ms": {"type": "number", "minimum": 0},
		"duration_sec": {"type": "number", "minimum": 0}
	},
	"anyOf": [
		{"required": ["duration_ms"]},
		{"required": ["duration_sec"]}
	]
}`

// WaitRunner — задержка.
//
// Приостанавливает ветку на заданное время и передаёт вход дальше без
// изменений. Учитывает отмену context.
//
// Конфигурация:
//
//	{"duration_sec": 10}
//	{"duration_ms": 500}
type WaitRunner struct{}

// NewWaitRunner создаёт WaitRunner.
func NewWaitRunner() *WaitRunner {
	return &WaitRunner{}
}

// Subtype возвращает subtype.
func (r *WaitRunner) Subtype() string { return SubtypeWait }

// Kind реализует Describer.
func (r *WaitRunner) Kind() domain.NodeKind { return domain.NodeKindUtility }

// Description реализует Describer.
func (r *WaitRunner) Description() string {
	return "Pauses the branch for a fixed duration and forwards the input"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *WaitRunner) ConfigSchema() string { return waitSchema }

// Execute выполняет задержку.
func (r *WaitRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	duration := waitDuration(node.Config)

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, ctx.Err())
	case <-timer.C:
		return input, nil
	}
}

// waitDuration извлекает длительность: duration_sec важнее duration_ms.
func waitDuration(config map[string]any) time.Duration {
	if sec, ok := toFloat(config["duration_sec"]); ok && sec > 0 {
		return time.Duration(sec * float64(time.Second))
	}
	if ms, ok := toFloat(config["duration_ms"]); ok && ms > 0 {
		return time.Duration(ms * float64(time.Millisecond))
	}
	return 0
}
