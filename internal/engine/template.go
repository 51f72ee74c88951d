package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"text/template"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// TemplateData — данные, доступные шаблонам в config узла:
//
//	{{ .Input.field }}   вход узла
//	{{ .Node.ID }}       описание узла
//	{{ .Env.REX_TOKEN }} переменные окружения с разрешённым префиксом
type TemplateData struct {
	Input any               `json:"input"`
	Node  NodeInfo          `json:"node"`
	Env   map[string]string `json:"env"`
}

// NodeInfo — данные узла, доступные в шаблонах.
type NodeInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtype string `json:"subtype"`
}

// NewTemplateData собирает данные шаблона для узла и его входа.
// В Env попадают только переменные процесса с префиксом envPrefix;
// пустой префикс не открывает ни одной.
func NewTemplateData(node *domain.NodeSpec, input any, envPrefix string) *TemplateData {
	if input == nil {
		input = map[string]any{}
	}

	data := &TemplateData{
		Input: input,
		Env:   map[string]string{},
	}
	if node != nil {
		data.Node = NodeInfo{ID: node.ID, Name: node.Name, Subtype: node.Subtype}
	}

	if envPrefix != "" {
		for _, kv := range os.Environ() {
			key, value, ok := strings.Cut(kv, "=")
			if ok && strings.HasPrefix(key, envPrefix) {
				data.Env[key] = value
			}
		}
	}
	return data
}

// Render выполняет строковый шаблон. Строка без "{{" возвращается как есть.
func Render(tmpl string, data *TemplateData) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := parseTemplate(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// RenderValue рендерит строки внутри произвольного JSON-значения
// (map[string]any, []any); остальные значения возвращаются как есть.
func RenderValue(value any, data *TemplateData) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, data)

	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			rendered, err := RenderValue(item, data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = rendered
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			rendered, err := RenderValue(item, data)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = rendered
		}
		return out, nil

	default:
		return value, nil
	}
}

// RenderConfig рендерит config узла. nil даёт пустой map.
func RenderConfig(config map[string]any, data *TemplateData) (map[string]any, error) {
	if config == nil {
		return map[string]any{}, nil
	}

	rendered, err := RenderValue(config, data)
	if err != nil {
		return nil, err
	}
	return rendered.(map[string]any), nil
}

// --- parsed template cache ---

// maxCachedTemplates — предел числа разобранных шаблонов в кэше.
const maxCachedTemplates = 1024

var (
	templateCache     sync.Map // string -> *template.Template
	templateCacheSize atomic.Int64
)

// parseTemplate возвращает разобранный шаблон, используя кэш.
// *template.Template безопасен для параллельного Execute.
func parseTemplate(tmpl string) (*template.Template, error) {
	if t, ok := templateCache.Load(tmpl); ok {
		return t.(*template.Template), nil
	}

	t, err := template.New("config").Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	if templateCacheSize.Load() < maxCachedTemplates {
		if _, loaded := templateCache.LoadOrStore(tmpl, t); !loaded {
			templateCacheSize.Add(1)
		}
	}
	return t, nil
}

// templateFuncs — функции, доступные в шаблонах.
var templateFuncs = template.FuncMap{
	"json":     toJSON,
	"fromJSON": fromJSON,
	"default":  defaultValue,
	"coalesce": coalesce,
	"get":      getKey,

	"join":      func(sep string, items []string) string { return strings.Join(items, sep) },
	"split":     func(sep, s string) []string { return strings.Split(s, sep) },
	"contains":  strings.Contains,
	"hasPrefix": strings.HasPrefix,
	"hasSuffix": strings.HasSuffix,
	"lower":     strings.ToLower,
	"upper":     strings.ToUpper,
	"trim":      strings.TrimSpace,
	"replace":   strings.ReplaceAll,
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// fromJSON разбирает JSON-строку; неверный JSON даёт nil.
func fromJSON(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil
	}
	return v
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// defaultValue: {{ default "fallback" .Input.x }}.
func defaultValue(def, val any) any {
	if isEmpty(val) {
		return def
	}
	return val
}

func coalesce(values ...any) any {
	for _, v := range values {
		if !isEmpty(v) {
			return v
		}
	}
	return nil
}

// getKey: значение по ключу из объекта, nil если ключа нет.
func getKey(m any, key string) any {
	if obj, ok := m.(map[string]any); ok {
		return obj[key]
	}
	return nil
}
