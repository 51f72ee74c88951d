package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
)

var errBoom = errors.New("boom")

// funcRunner — Runner из функции для тестов.
type funcRunner struct {
	subtype string
	schema  string
	fn      func(ctx context.Context, node *domain.NodeSpec, input any) (any, error)
}

func (r *funcRunner) Subtype() string { return r.subtype }

func (r *funcRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	return r.fn(ctx, node, input)
}

// schemaRunner — funcRunner со схемой config.
type schemaRunner struct {
	funcRunner
}

func (r *schemaRunner) ConfigSchema() string { return r.schema }

// testRegistry — реестр на map.
type testRegistry map[string]Runner

func (r testRegistry) Lookup(subtype string) Runner {
	if runner, ok := r[subtype]; ok {
		return runner
	}
	return nil
}

// call — один вызов Runner'а.
type call struct {
	NodeID string
	Input  any
}

// recorder запоминает вызовы в порядке выполнения.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) add(nodeID string, input any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{NodeID: nodeID, Input: input})
}

func (r *recorder) inputs(nodeID string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, 0)
	for _, c := range r.calls {
		if c.NodeID == nodeID {
			out = append(out, c.Input)
		}
	}
	return out
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.NodeID
	}
	return out
}

// newTestRegistry возвращает реестр с типовыми Runner'ами:
//   - "echo"   — возвращает {"from": nodeID, "in": input}
//   - "same"   — возвращает вход без изменений
//   - "branch" — возвращает {_branch: config.tag}
//   - "split"  — возвращает {_fanOut: true, items: config.items}
//   - "merge"  — возвращает вход (список после join)
//   - "fail"   — всегда ошибка
func newTestRegistry(rec *recorder) testRegistry {
	record := func(fn func(node *domain.NodeSpec, input any) (any, error)) func(context.Context, *domain.NodeSpec, any) (any, error) {
		return func(_ context.Context, node *domain.NodeSpec, input any) (any, error) {
			rec.add(node.ID, input)
			return fn(node, input)
		}
	}

	return testRegistry{
		"echo": &funcRunner{subtype: "echo", fn: record(func(node *domain.NodeSpec, input any) (any, error) {
			return map[string]any{"from": node.ID, "in": input}, nil
		})},
		"same": &funcRunner{subtype: "same", fn: record(func(_ *domain.NodeSpec, input any) (any, error) {
			return input, nil
		})},
		"branch": &funcRunner{subtype: "branch", fn: record(func(node *domain.NodeSpec, _ any) (any, error) {
			return map[string]any{domain.KeyBranch: node.Config["tag"], "node": node.ID}, nil
		})},
		"split": &funcRunner{subtype: "split", fn: record(func(node *domain.NodeSpec, _ any) (any, error) {
			return map[string]any{domain.KeyFanOut: true, domain.KeyItems: node.Config["items"]}, nil
		})},
		"merge": &funcRunner{subtype: "merge", fn: record(func(_ *domain.NodeSpec, input any) (any, error) {
			return input, nil
		})},
		"fail": &funcRunner{subtype: "fail", fn: record(func(node *domain.NodeSpec, _ any) (any, error) {
			return nil, errBoom
		})},
	}
}

// fastOptions — опции с короткой задержкой retry.
func fastOptions() Options {
	return Options{RetryDelay: time.Millisecond}
}

func trigger(id string) domain.NodeSpec {
	return domain.NodeSpec{ID: id, Kind: domain.NodeKindTrigger, Subtype: "same"}
}

func action(id, subtype string) domain.NodeSpec {
	return domain.NodeSpec{ID: id, Kind: domain.NodeKindAction, Subtype: subtype}
}

func edge(source, target string) domain.EdgeSpec {
	return domain.EdgeSpec{Source: source, Target: target}
}

func labeled(source, target, label string) domain.EdgeSpec {
	return domain.EdgeSpec{Source: source, Target: target, Label: label}
}
