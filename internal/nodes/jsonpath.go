package nodes

import (
	"context"
	"fmt"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// SubtypeJSONPath — subtype извлечения по JSONPath.
const SubtypeJSONPath = "jsonpath"

const jsonPathSchema = `{
	"type": "object",
	"required": ["path"],
	"properties": {
		"path": {"type": "string", "minLength": 1},
		"multiple": {"type": "boolean"},
		"target": {"type": "string"}
	}
}`

// JSONPathRunner — извлечение значения по JSONPath.
//
// Конфигурация:
//
//	{"path": "$.orders[*].id", "multiple": true, "default": []}
//
// Выход: {"value": ...} или {<target>: ...}, если задан target.
type JSONPathRunner struct{}

// NewJSONPathRunner создаёт JSONPathRunner.
func NewJSONPathRunner() *JSONPathRunner {
	return &JSONPathRunner{}
}

// Subtype возвращает subtype.
func (r *JSONPathRunner) Subtype() string { return SubtypeJSONPath }

// Kind реализует Describer.
func (r *JSONPathRunner) Kind() domain.NodeKind { return domain.NodeKindUtility }

// Description реализует Describer.
func (r *JSONPathRunner) Description() string {
	return "Extracts a value from the input with a JSONPath expression"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *JSONPathRunner) ConfigSchema() string { return jsonPathSchema }

// Execute извлекает значение.
func (r *JSONPathRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, err)
	}

	expr, err := compileJSONPath(GetConfigString(node.Config, "path"))
	if err != nil {
		return nil, err
	}

	target := GetConfigString(node.Config, "target")
	if target == "" {
		target = "value"
	}

	results := expr.Get(input)

	var value any
	switch {
	case GetConfigBool(node.Config, "multiple", false):
		if results == nil {
			results = []any{}
		}
		value = results
	case len(results) > 0:
		value = results[0]
	default:
		d, ok := node.Config["default"]
		if !ok {
			return nil, fmt.Errorf("%w: jsonpath: nothing at %q", ErrInvalidPath, GetConfigString(node.Config, "path"))
		}
		value = d
	}

	return map[string]any{target: value}, nil
}
