package engine

import (
	"fmt"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// JoinMode — правило освобождения join-буфера. По умолчанию
// JoinDistinctSources, а не порог по сырому in-degree (JoinInDegree).
type JoinMode string

const (
	// JoinDistinctSources — ждать хотя бы одну доставку от каждого
	// различного источника входящих рёбер (по умолчанию).
	JoinDistinctSources JoinMode = "distinct_sources"

	// JoinInDegree — освобождать, когда len(buffer) >= inDegree.
	JoinInDegree JoinMode = "in_degree"
)

// ParseJoinMode разбирает имя режима join. Пустая строка — режим по умолчанию.
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(s) {
	case "":
		return JoinDistinctSources, nil
	case JoinDistinctSources, JoinInDegree:
		return JoinMode(s), nil
	default:
		return "", fmt.Errorf("unknown join mode %q", s)
	}
}

// Значения по умолчанию.
const (
	DefaultMaxRetries = domain.DefaultMaxRetries
	DefaultRetryDelay = time.Duration(domain.DefaultRetryDelayMs) * time.Millisecond
)

// Options — параметры одного run'а.
type Options struct {
	// RunID — идентификатор run'а для логов и Report. По умолчанию новый UUID.
	RunID string

	// InitialInput — payload стартовых узлов (по умолчанию {}).
	InitialInput any

	// StartFrom — явный список стартовых узлов.
	// По умолчанию все узлы kind=trigger в порядке объявления.
	StartFrom []string

	// Retries — maxRetries для узлов без своей политики (по умолчанию 3).
	Retries *int

	// RetryDelay — базовая задержка backoff для узлов без своей (по умолчанию 1s).
	RetryDelay time.Duration

	// Timeout — таймаут одной попытки Runner'а. 0 — без ограничения.
	Timeout time.Duration

	// JoinMode — правило освобождения join-узлов.
	JoinMode JoinMode

	// OnTrace — вызывается синхронно на каждое событие трассировки.
	OnTrace func(TraceEvent)
}

// OptionsFromSettings строит Options из настроек workflow.
func OptionsFromSettings(s *domain.WorkflowSettings) Options {
	if s == nil {
		return Options{}
	}
	opts := Options{
		InitialInput: s.InitialInput,
		StartFrom:    s.StartFrom,
		Retries:      s.Retries,
	}
	if s.RetryDelayMs > 0 {
		opts.RetryDelay = time.Duration(s.RetryDelayMs) * time.Millisecond
	}
	if s.TimeoutSec > 0 {
		opts.Timeout = time.Duration(s.TimeoutSec) * time.Second
	}
	return opts
}

// Merge накладывает непустые поля override поверх o.
func (o Options) Merge(override Options) Options {
	if override.RunID != "" {
		o.RunID = override.RunID
	}
	if override.InitialInput != nil {
		o.InitialInput = override.InitialInput
	}
	if len(override.StartFrom) > 0 {
		o.StartFrom = override.StartFrom
	}
	if override.Retries != nil {
		o.Retries = override.Retries
	}
	if override.RetryDelay > 0 {
		o.RetryDelay = override.RetryDelay
	}
	if override.Timeout > 0 {
		o.Timeout = override.Timeout
	}
	if override.JoinMode != "" {
		o.JoinMode = override.JoinMode
	}
	if override.OnTrace != nil {
		o.OnTrace = override.OnTrace
	}
	return o
}

// withDefaults заполняет незаданные поля.
func (o Options) withDefaults() Options {
	if o.InitialInput == nil {
		o.InitialInput = map[string]any{}
	}
	if o.Retries == nil {
		o.Retries = domain.IntPtr(DefaultMaxRetries)
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.JoinMode == "" {
		o.JoinMode = JoinDistinctSources
	}
	return o
}

// policyFor вычисляет эффективную политику узла.
func (o Options) policyFor(node *domain.NodeSpec) (maxRetries int, delay time.Duration, continueOnFail bool) {
	p := node.Policy()

	maxRetries = *o.Retries
	if p.MaxRetries != nil {
		maxRetries = *p.MaxRetries
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	delay = o.RetryDelay
	if p.RetryDelayMs > 0 {
		delay = time.Duration(p.RetryDelayMs) * time.Millisecond
	}

	return maxRetries, delay, p.ContinueOnFail
}
