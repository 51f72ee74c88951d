package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
)

// Subtype'ы трансформации данных.
const (
	SubtypeSet       = "set"
	SubtypeTransform = "transform"
)

const setSchema = `{
	"type": "object",
	"properties": {
		"values": {"type": "object"},
		"mappings": {"type": "object"},
		"keepInput": {"type": "boolean"}
	}
}`

// SetRunner — установка полей и трансформация данных.
//
// Каждое значение из values (или mappings) рендерится как шаблон
// над входом. Строковый результат, похожий на JSON, парсится.
//
// Конфигурация:
//
//	{
//	    "mappings": {
//	        "total": "{{ len .Input.items }}",
//	        "greeting": "hello {{ .Input.name }}"
//	    },
//	    "keepInput": true
//	}
//
// С keepInput=true поля добавляются поверх входной map.
type SetRunner struct {
	subtype string
}

// NewSetRunner создаёт SetRunner для subtype set или transform.
func NewSetRunner(subtype string) *SetRunner {
	return &SetRunner{subtype: subtype}
}

// Subtype возвращает subtype.
func (r *SetRunner) Subtype() string { return r.subtype }

// Kind реализует Describer.
func (r *SetRunner) Kind() domain.NodeKind { return domain.NodeKindAction }

// Description реализует Describer.
func (r *SetRunner) Description() string {
	if r.subtype == SubtypeTransform {
		return "Builds a new object by rendering templated mappings over the input"
	}
	return "Sets templated fields on the payload"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *SetRunner) ConfigSchema() string { return setSchema }

// Execute применяет mappings.
func (r *SetRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, err)
	}

	mappings := GetConfigMap(node.Config, "values")
	if mappings == nil {
		mappings = GetConfigMap(node.Config, "mappings")
	}

	keep := GetConfigBool(node.Config, "keepInput", r.subtype == SubtypeSet)

	var output map[string]any
	if m := asMap(input); keep && m != nil {
		output = copyMap(m)
	} else {
		output = make(map[string]any, len(mappings))
	}

	tmplCtx := templateContext(node, input)
	for key, raw := range mappings {
		if tmpl, ok := raw.(string); ok {
			rendered, err := engine.Render(tmpl, tmplCtx)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", r.subtype, key, err)
			}
			output[key] = parseValue(rendered)
			continue
		}
		rendered, err := engine.RenderValue(raw, tmplCtx)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.subtype, key, err)
		}
		output[key] = rendered
	}

	return output, nil
}

// parseValue пытается распарсить строку как JSON.
// Если не получается — возвращает строку как есть.
func parseValue(value string) any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(value), &obj); err == nil {
		return obj
	}

	var arr []any
	if err := json.Unmarshal([]byte(value), &arr); err == nil {
		return arr
	}

	var num json.Number
	if err := json.Unmarshal([]byte(value), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	switch value {
	case "true":
		return true
	case "false":
		return false
	}

	return value
}
