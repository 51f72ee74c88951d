package nodes

import (
	"context"
	"fmt"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// SubtypeMerge — subtype слияния входов.
const SubtypeMerge = domain.SubtypeMerge

// Режимы слияния.
const (
	MergeModeAppend = "append"
	MergeModeMerge  = "merge"
)

const mergeSchema = `{
	"type": "object",
	"properties": {
		"mode": {"enum": ["append", "merge"]},
		"mergeStrategy": {"enum": ["waitForAll", "passThrough"]}
	}
}`

// MergeRunner — слияние входов join-узла.
//
// Движок передаёт merge-узлу список накопленных payload'ов. В режиме
// append список возвращается как есть, в режиме merge map'ы
// объединяются поверхностно (поздние ключи побеждают).
//
// Конфигурация:
//
//	{"mode": "append", "mergeStrategy": "waitForAll"}
type MergeRunner struct{}

// NewMergeRunner создаёт MergeRunner.
func NewMergeRunner() *MergeRunner {
	return &MergeRunner{}
}

// Subtype возвращает subtype.
func (r *MergeRunner) Subtype() string { return SubtypeMerge }

// Kind реализует Describer.
func (r *MergeRunner) Kind() domain.NodeKind { return domain.NodeKindUtility }

// Description реализует Describer.
func (r *MergeRunner) Description() string {
	return "Combines the payloads collected by a join into a list or a single object"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *MergeRunner) ConfigSchema() string { return mergeSchema }

// Execute объединяет входы.
func (r *MergeRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, err)
	}

	items, ok := asList(input)
	if !ok {
		items = []any{input}
	}

	mode := GetConfigString(node.Config, "mode")
	switch mode {
	case "", MergeModeAppend:
		return map[string]any{
			domain.KeyItems: items,
			"count":         len(items),
		}, nil
	case MergeModeMerge:
		merged := make(map[string]any)
		for _, item := range items {
			m := asMap(item)
			if m == nil {
				continue
			}
			for k, v := range m {
				merged[k] = v
			}
		}
		return merged, nil
	default:
		return nil, fmt.Errorf("%w: merge: unknown mode %q", ErrInvalidConfig, mode)
	}
}
