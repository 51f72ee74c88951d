package engine

import (
	"context"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// Runner — исполнитель одного subtype узла.
//
// Execute получает узел и входной payload и возвращает выходной payload.
// Runner должен уважать ctx: отмена run'а и таймаут попытки приходят через него.
type Runner interface {
	// Subtype возвращает subtype, который обслуживает Runner.
	Subtype() string

	// Execute выполняет узел.
	Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error)
}

// RunnerRegistry — источник Runner'ов для движка.
//
// Lookup никогда не возвращает nil для зарегистрированных subtype;
// для неизвестных допустимо вернуть nil, тогда движок использует PassThrough.
type RunnerRegistry interface {
	Lookup(subtype string) Runner
}

// ConfigSchemaProvider — Runner, который описывает свой config JSON-схемой.
//
// Схема проверяется до первой попытки; несоответствие — ValidationError.
type ConfigSchemaProvider interface {
	ConfigSchema() string
}

// PassThrough — Runner по умолчанию для неизвестных subtype.
//
// Возвращает {nodeId, subtype, input, config}, чтобы несконфигурированные
// узлы не ломали run.
type PassThrough struct{}

// Subtype реализует Runner.
func (PassThrough) Subtype() string {
	return "passthrough"
}

// Execute реализует Runner.
func (PassThrough) Execute(_ context.Context, node *domain.NodeSpec, input any) (any, error) {
	config := node.Config
	if config == nil {
		config = map[string]any{}
	}
	return map[string]any{
		"nodeId":  node.ID,
		"subtype": node.Subtype,
		"input":   input,
		"config":  config,
	}, nil
}

// resolveRunner находит Runner для узла с fallback на PassThrough.
func resolveRunner(registry RunnerRegistry, node *domain.NodeSpec) Runner {
	if registry == nil {
		return PassThrough{}
	}
	if r := registry.Lookup(node.Subtype); r != nil {
		return r
	}
	return PassThrough{}
}
