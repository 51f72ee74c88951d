package engine

import (
	"fmt"
	"reflect"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// fanOutItems проверяет маркер fan-out и возвращает элементы.
//
// Fan-out — это маркер вместе со списком items (пустой список тоже
// список). Маркер без items или с items не-списком — обычный выход.
func fanOutItems(output any) ([]any, bool) {
	m, ok := output.(map[string]any)
	if !ok {
		return nil, false
	}
	if flag, _ := m[domain.KeyFanOut].(bool); !flag {
		return nil, false
	}
	return toList(m[domain.KeyItems])
}

// toList приводит произвольный срез к []any.
func toList(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
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
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// expand доставляет каждый элемент каждому исходящему соседу.
// Всего |neighbors| × |items| доставок, по соседям в порядке рёбер.
func (rc *RunContext) expand(from string, items []any) {
	neighbors := rc.graph.Out[from]
	if len(neighbors) == 0 {
		return
	}

	if len(items) == 0 {
		rc.emit(TraceEvent{
			Kind:   TraceFanOutEmpty,
			NodeID: from,
			Detail: fmt.Sprintf("fan-out with no items, %d neighbor(s) skipped", len(neighbors)),
		})
		return
	}

	rc.emit(TraceEvent{
		Kind:   TraceFanOut,
		NodeID: from,
		Detail: fmt.Sprintf("%d item(s) x %d neighbor(s)", len(items), len(neighbors)),
	})

	for _, next := range neighbors {
		for _, item := range items {
			rc.deliver(from, next, item)
		}
	}
}
