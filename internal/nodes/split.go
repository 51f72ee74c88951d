package nodes

import (
	"context"
	"fmt"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// SubtypeSplit — subtype разбиения списка на элементы.
const SubtypeSplit = "split"

// SplitRunner — fan-out списка.
//
// Достаёт список по path (или берёт сам вход, или input.items) и
// помечает выход маркером _fanOut: движок доставит каждый элемент
// каждому соседу отдельно.
//
// Конфигурация:
//
//	{"path": "$.orders"}
//
// Выход:
//
//	{"_fanOut": true, "items": [...], "count": 3}
type SplitRunner struct{}

// NewSplitRunner создаёт SplitRunner.
func NewSplitRunner() *SplitRunner {
	return &SplitRunner{}
}

// Subtype возвращает subtype.
func (r *SplitRunner) Subtype() string { return SubtypeSplit }

// Kind реализует Describer.
func (r *SplitRunner) Kind() domain.NodeKind { return domain.NodeKindUtility }

// Description реализует Describer.
func (r *SplitRunner) Description() string {
	return "Fans a list out so each neighbor receives every item separately"
}

// Execute разбивает список.
func (r *SplitRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, err)
	}

	var source any = input
	if path := GetConfigString(node.Config, "path"); path != "" {
		v, found, err := lookupPath(input, path)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: split: nothing at %q", ErrInvalidConfig, path)
		}
		source = v
	} else if m := asMap(input); m != nil {
		source = m[domain.KeyItems]
	}

	items, ok := asList(source)
	if !ok {
		return nil, fmt.Errorf("%w: split: value is %T, not a list", ErrInvalidConfig, source)
	}

	return map[string]any{
		domain.KeyFanOut: true,
		domain.KeyItems:  items,
		"count":          len(items),
	}, nil
}
