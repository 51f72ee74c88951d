package nodes

import (
	"context"
	"fmt"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// SubtypeSwitch — subtype многовариантного ветвления.
const SubtypeSwitch = "switch"

// DefaultCase — тег ветки, если ни один case не подошёл.
const DefaultCase = "default"

const switchSchema = `{
	"type": "object",
	"required": ["cases"],
	"properties": {
		"path": {"type": "string"},
		"cases": {
			"type": "array",
			"items": {"type": "object", "required": ["value"]}
		},
		"fallback": {"type": "string"}
	}
}`

// SwitchRunner — ветвление по значению.
//
// Сравнивает значение по path с каждым case. Тег ветки — output
// совпавшего case, или его индекс, если output не задан.
//
// Конфигурация:
//
//	{
//	    "path": "$.status",
//	    "cases": [
//	        {"value": "new", "output": "onboard"},
//	        {"value": "vip"}
//	    ],
//	    "fallback": "other"
//	}
//
// Выход:
//
//	{"_branch": "onboard", "value": "new", "data": <input>}
type SwitchRunner struct{}

// NewSwitchRunner создаёт SwitchRunner.
func NewSwitchRunner() *SwitchRunner {
	return &SwitchRunner{}
}

// Subtype возвращает subtype.
func (r *SwitchRunner) Subtype() string { return SubtypeSwitch }

// Kind реализует Describer.
func (r *SwitchRunner) Kind() domain.NodeKind { return domain.NodeKindUtility }

// Description реализует Describer.
func (r *SwitchRunner) Description() string {
	return "Matches a value against cases and routes to the matching branch"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *SwitchRunner) ConfigSchema() string { return switchSchema }

// Execute выбирает ветку.
func (r *SwitchRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, err)
	}

	value, _, err := lookupPath(input, GetConfigString(node.Config, "path"))
	if err != nil {
		return nil, err
	}

	cases, ok := asList(node.Config["cases"])
	if !ok {
		return nil, fmt.Errorf("%w: switch: cases must be a list", ErrInvalidConfig)
	}

	var branch any = DefaultCase
	if fb := GetConfigString(node.Config, "fallback"); fb != "" {
		branch = fb
	}

	for i, raw := range cases {
		c := asMap(raw)
		if c == nil {
			return nil, fmt.Errorf("%w: switch: case %d must be an object", ErrInvalidConfig, i)
		}
		if !valuesEqual(value, c["value"]) {
			continue
		}
		if out := GetConfigString(c, "output"); out != "" {
			branch = out
		} else {
			branch = i
		}
		break
	}

	return map[string]any{
		domain.KeyBranch: branch,
		"value":          value,
		"data":           input,
	}, nil
}
