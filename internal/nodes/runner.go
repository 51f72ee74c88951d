package nodes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
)

// Ошибки Runner'ов.
var (
	// ErrRunnerNotFound — subtype не найден в реестре.
	ErrRunnerNotFound = errors.New("runner not found")

	// ErrInvalidConfig — невалидная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")

	// ErrNodeCancelled — выполнение узла отменено.
	ErrNodeCancelled = errors.New("node execution cancelled")

	// ErrInvalidPath — некорректное JSONPath выражение.
	ErrInvalidPath = errors.New("invalid path expression")
)

// Describer — Runner с описанием для каталога узлов.
type Describer interface {
	Kind() domain.NodeKind
	Description() string
}

// templateEnvPrefix — переменные окружения, видимые шаблонам как .Env.
const templateEnvPrefix = "REX_"

// templateContext создаёт данные шаблонов для узла.
func templateContext(node *domain.NodeSpec, input any) *engine.TemplateData {
	return engine.NewTemplateData(node, input, templateEnvPrefix)
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetConfigInt извлекает числовое значение из конфига.
// Понимает числа из JSON (float64) и YAML (int, uint64).
func GetConfigInt(config map[string]any, key string) int {
	if v, ok := config[key]; ok {
		if f, ok := toFloat(v); ok {
			return int(f)
		}
	}
	return 0
}

// GetConfigBool извлекает булево значение из конфига.
func GetConfigBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetConfigMap извлекает map из конфига.
func GetConfigMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// GetConfigMapString извлекает map[string]string из конфига.
func GetConfigMapString(config map[string]any, key string) map[string]string {
	if v, ok := config[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}

// toFloat приводит число любого типа к float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// compileJSONPath разбирает путь. Пути без "$" считаются относительными
// к корню: "user.name" → "$.user.name".
func compileJSONPath(path string) (jp.Expr, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "$" {
		return jp.ParseString("$")
	}
	if !strings.HasPrefix(path, "$") {
		if strings.HasPrefix(path, "[") {
			path = "$" + path
		} else {
			path = "$." + path
		}
	}
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPath, path, err)
	}
	return expr, nil
}

// lookupPath возвращает первое значение по пути.
func lookupPath(input any, path string) (any, bool, error) {
	expr, err := compileJSONPath(path)
	if err != nil {
		return nil, false, err
	}
	results := expr.Get(input)
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

// asMap возвращает input как map (nil, если это не map).
func asMap(input any) map[string]any {
	m, _ := input.(map[string]any)
	return m
}

// copyMap делает поверхностную копию map.
func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// asList приводит значение к []any.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	case []string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	default:
		return nil, false
	}
}
