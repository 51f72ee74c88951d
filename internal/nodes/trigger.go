package nodes

import (
	"context"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// Subtype'ы триггеров.
const (
	SubtypeManual   = "manual"
	SubtypeWebhook  = "webhook"
	SubtypeSchedule = "schedule"
)

// TriggerRunner — стартовый узел.
//
// Выдаёт входной payload run'а. Если в config задан data (map),
// он добавляется поверх входа.
//
// Конфигурация:
//
//	{"data": {"source": "cron"}}
type TriggerRunner struct {
	subtype string
}

// NewTriggerRunner создаёт триггер с указанным subtype.
func NewTriggerRunner(subtype string) *TriggerRunner {
	return &TriggerRunner{subtype: subtype}
}

// Subtype возвращает subtype.
func (r *TriggerRunner) Subtype() string { return r.subtype }

// Kind реализует Describer.
func (r *TriggerRunner) Kind() domain.NodeKind { return domain.NodeKindTrigger }

// Description реализует Describer.
func (r *TriggerRunner) Description() string {
	return "Entry point: emits the run input (" + r.subtype + ")"
}

// Execute выдаёт вход, дополненный config.data.
func (r *TriggerRunner) Execute(_ context.Context, node *domain.NodeSpec, input any) (any, error) {
	data := GetConfigMap(node.Config, "data")

	if input == nil {
		input = map[string]any{}
	}
	if len(data) == 0 {
		return input, nil
	}

	in := asMap(input)
	if in == nil {
		out := copyMap(data)
		out["input"] = input
		return out, nil
	}

	out := copyMap(in)
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}
