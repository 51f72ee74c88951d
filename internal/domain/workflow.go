package domain

import "strings"

// NodeKind — категория узла workflow.
type NodeKind string

const (
	// NodeKindTrigger — точка входа (manual, webhook, schedule).
	NodeKindTrigger NodeKind = "trigger"

	// NodeKindAction — интеграция с внешним сервисом (http, storage, messaging).
	NodeKindAction NodeKind = "action"

	// NodeKindAI — вызов модели.
	NodeKindAI NodeKind = "ai"

	// NodeKindUtility — управляющие примитивы (condition, switch, split, merge, wait).
	NodeKindUtility NodeKind = "utility"
)

// Значения по умолчанию для политики ошибок.
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
)

// Workflow — граф узлов, который можно выполнить.
//
// Workflow — это "программа" для REX: набор узлов и направленных рёбер между ними.
// Загружается из JSON/YAML файла или приходит в теле запроса API.
type Workflow struct {
	// Name — имя workflow (для логов и истории запусков).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description — описание назначения workflow.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Nodes — узлы графа. ID уникальны в рамках workflow.
	Nodes []NodeSpec `json:"nodes" yaml:"nodes"`

	// Edges — направленные рёбра source → target.
	Edges []EdgeSpec `json:"edges,omitempty" yaml:"edges,omitempty"`

	// Settings — настройки запуска по умолчанию.
	Settings *WorkflowSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// WorkflowSettings — настройки запуска, которые можно переопределить при вызове.
type WorkflowSettings struct {
	// InitialInput — payload для стартовых узлов.
	InitialInput any `json:"initialInput,omitempty" yaml:"initialInput,omitempty"`

	// StartFrom — явный список стартовых узлов (вместо всех trigger-узлов).
	StartFrom []string `json:"startFrom,omitempty" yaml:"startFrom,omitempty"`

	// Retries — maxRetries по умолчанию для узлов без своей политики.
	Retries *int `json:"retries,omitempty" yaml:"retries,omitempty"`

	// RetryDelayMs — базовая задержка между попытками.
	RetryDelayMs int `json:"retryDelayMs,omitempty" yaml:"retryDelayMs,omitempty"`

	// TimeoutSec — таймаут одной попытки выполнения узла.
	TimeoutSec int `json:"timeoutSec,omitempty" yaml:"timeoutSec,omitempty"`
}

// NodeSpec — один узел графа: сконфигурированная единица работы.
type NodeSpec struct {
	// ID — уникальный и стабильный идентификатор узла.
	ID string `json:"id" yaml:"id"`

	// Name — человекочитаемое имя узла.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Kind — категория узла. Узлы kind=trigger становятся стартовыми.
	Kind NodeKind `json:"kind" yaml:"kind"`

	// Subtype — выбирает Runner в реестре ("http", "condition", "split", ...).
	Subtype string `json:"subtype" yaml:"subtype"`

	// Config — непрозрачная конфигурация, передаётся Runner'у как есть.
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`

	// ErrorPolicy — политика retry и обработки ошибок.
	ErrorPolicy *ErrorPolicy `json:"errorPolicy,omitempty" yaml:"errorPolicy,omitempty"`
}

// ErrorPolicy — политика повторных попыток узла.
type ErrorPolicy struct {
	// MaxRetries — количество повторов после первой попытки.
	// nil — значение по умолчанию запуска (3).
	MaxRetries *int `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`

	// ContinueOnFail — превращать финальную ошибку в payload {error, message}
	// и продолжать ветку вместо её остановки.
	ContinueOnFail bool `json:"continueOnFail,omitempty" yaml:"continueOnFail,omitempty"`

	// RetryDelayMs — базовая задержка линейного backoff (attempt * delay).
	RetryDelayMs int `json:"retryDelayMs,omitempty" yaml:"retryDelayMs,omitempty"`
}

// EdgeSpec — направленная зависимость между двумя узлами.
type EdgeSpec struct {
	// ID — необязательный идентификатор ребра (из редактора).
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Source — ID узла-источника.
	Source string `json:"source" yaml:"source"`

	// Target — ID узла-получателя.
	Target string `json:"target" yaml:"target"`

	// Label — тег ветки для маршрутизации ("true", "false", имя case).
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// IsTrigger возвращает true для узлов-триггеров.
func (n *NodeSpec) IsTrigger() bool {
	return n.Kind == NodeKindTrigger
}

// IsJoin возвращает true, если узел ждёт всех предшественников.
//
// Join-узел — это subtype "merge" (если стратегия не passThrough)
// или любой узел с config.mergeStrategy = "waitForAll".
func (n *NodeSpec) IsJoin() bool {
	strategy, _ := n.Config[ConfigMergeStrategy].(string)
	if strings.EqualFold(strategy, MergeStrategyWaitForAll) {
		return true
	}
	return n.Subtype == SubtypeMerge && !strings.EqualFold(strategy, MergeStrategyPassThrough)
}

// HasConfig возвращает true, если узел можно передать Runner'у.
func (n *NodeSpec) HasConfig() bool {
	return len(n.Config) > 0 || n.Subtype != ""
}

// Policy возвращает политику ошибок узла (никогда не nil).
func (n *NodeSpec) Policy() ErrorPolicy {
	if n.ErrorPolicy == nil {
		return ErrorPolicy{}
	}
	return *n.ErrorPolicy
}

// DisplayName возвращает Name или ID.
func (n *NodeSpec) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// IntPtr — помощник для необязательных числовых полей.
func IntPtr(v int) *int {
	return &v
}
