package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/telemetry"
)

// Results — выход каждого достигнутого узла (nodeID → payload).
type Results map[string]any

// WorkItem — один ожидающий вызов узла.
type WorkItem struct {
	NodeID  string
	Payload any
	From    string
}

// Report — итог одного run'а.
type Report struct {
	RunID       string         `json:"run_id"`
	Results     Results        `json:"results"`
	Trace       []TraceEvent   `json:"trace,omitempty"`
	Invocations map[string]int `json:"invocations,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

// Failed возвращает ID узлов с error payload.
func (r *Report) Failed() []string {
	return domain.FailedNodes(r.Results)
}

// Config — конфигурация Engine.
type Config struct {
	// Registry — источник Runner'ов. nil — все узлы выполняются PassThrough.
	Registry RunnerRegistry

	// Logger — базовый логгер. По умолчанию slog.Default().
	Logger *slog.Logger
}

// Engine выполняет графы узлов.
//
// Engine не хранит состояние run'ов: всё состояние живёт в RunContext,
// который создаётся на каждый вызов Run. Один Engine можно использовать
// из нескольких горутин одновременно.
type Engine struct {
	registry RunnerRegistry
	logger   *slog.Logger
	schemas  *schemaCache
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		registry: cfg.Registry,
		logger:   cfg.Logger,
		schemas:  newSchemaCache(),
	}
}

// Registry возвращает источник Runner'ов движка.
func (e *Engine) Registry() RunnerRegistry {
	return e.registry
}

// Validate проверяет workflow целиком, включая config узлов по схемам
// их Runner'ов.
func (e *Engine) Validate(wf *domain.Workflow) error {
	return ValidateWithRegistry(wf, e.registry)
}

// RunContext — состояние одного run'а.
//
// Очередь, результаты и join-буферы принадлежат единственному циклу
// выполнения, поэтому блокировки не нужны.
type RunContext struct {
	ID          string
	graph       *Graph
	opts        Options
	queue       []WorkItem
	results     Results
	joins       map[string]*joinBuffer
	trace       []TraceEvent
	invocations map[string]int
	logger      *slog.Logger
}

func newRunContext(graph *Graph, opts Options, logger *slog.Logger) *RunContext {
	id := opts.RunID
	if id == "" {
		id = uuid.New().String()
	}
	return &RunContext{
		ID:          id,
		graph:       graph,
		opts:        opts,
		queue:       make([]WorkItem, 0, len(graph.Nodes)),
		results:     make(Results, len(graph.Nodes)),
		joins:       make(map[string]*joinBuffer),
		trace:       make([]TraceEvent, 0),
		invocations: make(map[string]int, len(graph.Nodes)),
		logger:      telemetry.WithRunID(logger, id),
	}
}

// enqueue добавляет WorkItem в конец очереди.
func (rc *RunContext) enqueue(item WorkItem) {
	rc.queue = append(rc.queue, item)
}

// pop извлекает голову очереди.
func (rc *RunContext) pop() WorkItem {
	item := rc.queue[0]
	rc.queue[0] = WorkItem{}
	rc.queue = rc.queue[1:]
	return item
}

// deliver передаёт payload соседу: join-узлы через аккумулятор,
// остальные сразу в очередь.
func (rc *RunContext) deliver(from, to string, payload any) {
	if node := rc.graph.Node(to); node != nil && node.IsJoin() {
		rc.accumulate(from, to, payload)
		return
	}
	rc.enqueue(WorkItem{NodeID: to, Payload: payload, From: from})
}

// emit записывает событие трассировки.
func (rc *RunContext) emit(ev TraceEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	rc.trace = append(rc.trace, ev)
	telemetry.TraceEvents.WithLabelValues(string(ev.Kind)).Inc()

	rc.logger.Debug("trace",
		"kind", ev.Kind,
		"node_id", ev.NodeID,
		"from", ev.From,
		"attempt", ev.Attempt,
		"detail", ev.Detail,
	)

	if rc.opts.OnTrace != nil {
		rc.opts.OnTrace(ev)
	}
}

// report собирает итог run'а.
func (rc *RunContext) report(started time.Time) *Report {
	return &Report{
		RunID:       rc.ID,
		Results:     rc.results,
		Trace:       rc.trace,
		Invocations: rc.invocations,
		Duration:    time.Since(started),
	}
}

// Run строит граф и выполняет его.
//
// Ошибка валидации графа возвращается до запуска (report == nil).
// При отмене ctx возвращается частичный report и ErrRunCancelled.
func (e *Engine) Run(ctx context.Context, nodes []domain.NodeSpec, edges []domain.EdgeSpec, opts Options) (*Report, error) {
	graph, err := BuildGraph(nodes, edges)
	if err != nil {
		return nil, err
	}
	return e.RunGraph(ctx, graph, opts)
}

// RunWorkflow выполняет workflow: настройки workflow + override.
func (e *Engine) RunWorkflow(ctx context.Context, wf *domain.Workflow, override Options) (*Report, error) {
	if wf == nil {
		return nil, NewValidationError("", "nodes", "workflow is nil", ErrEmptyNodes)
	}
	opts := OptionsFromSettings(wf.Settings).Merge(override)
	return e.Run(ctx, wf.Nodes, wf.Edges, opts)
}

// RunGraph выполняет уже построенный граф.
func (e *Engine) RunGraph(ctx context.Context, graph *Graph, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	start, err := startNodes(graph, opts.StartFrom)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	logger, ok := telemetry.LoggerFrom(ctx)
	if !ok {
		logger = e.logger
	}
	rc := newRunContext(graph, opts, logger)

	rc.logger.Info("run started",
		"nodes", graph.Size(),
		"start_nodes", start,
	)

	if len(start) == 0 {
		rc.emit(TraceEvent{Kind: TraceNoStartNodes, Detail: "no trigger nodes and no startFrom"})
	}
	for _, id := range start {
		rc.enqueue(WorkItem{NodeID: id, Payload: opts.InitialInput})
	}

	for len(rc.queue) > 0 {
		if err := ctx.Err(); err != nil {
			for _, item := range rc.queue {
				rc.emit(TraceEvent{Kind: TraceCancelled, NodeID: item.NodeID, From: item.From, Detail: err.Error()})
			}
			rc.queue = nil
			rc.flushJoins()

			rep := rc.report(started)
			rc.logger.Warn("run cancelled",
				"completed_nodes", len(rep.Results),
				"duration", rep.Duration,
			)
			return rep, fmt.Errorf("%w: %v", ErrRunCancelled, err)
		}

		e.process(ctx, rc, rc.pop())
	}

	rc.flushJoins()

	rep := rc.report(started)
	rc.logger.Info("run finished",
		"completed_nodes", len(rep.Results),
		"failed_nodes", len(rep.Failed()),
		"duration", rep.Duration,
	)
	return rep, nil
}

// process выполняет один WorkItem и распространяет результат.
func (e *Engine) process(ctx context.Context, rc *RunContext, item WorkItem) {
	node := rc.graph.Node(item.NodeID)

	output, err := e.invoke(ctx, rc, node, item.Payload)
	if err != nil {
		// Ветка обрывается, уже поставленные в очередь соседние ветки продолжаются.
		rc.results[node.ID] = domain.ErrorPayload(failureMessage(err))
		return
	}

	rc.results[node.ID] = output
	rc.dispatch(node.ID, output)
}

// dispatch выбирает способ распространения выхода:
// fan-out, затем тег ветки, затем всем соседям без изменений.
func (rc *RunContext) dispatch(from string, output any) {
	if items, ok := fanOutItems(output); ok {
		rc.expand(from, items)
		return
	}

	if tag, ok := branchTag(output); ok {
		rc.route(from, tag, output)
		return
	}

	for _, next := range rc.graph.Out[from] {
		rc.deliver(from, next, output)
	}
}

// startNodes выбирает стартовые узлы.
func startNodes(graph *Graph, startFrom []string) ([]string, error) {
	if len(startFrom) == 0 {
		return graph.Triggers(), nil
	}
	for _, id := range startFrom {
		if graph.Node(id) == nil {
			return nil, NewValidationError(id, "startFrom",
				fmt.Sprintf("start node not found: %s", id), ErrUnknownStartNode)
		}
	}
	return startFrom, nil
}

// RunWorkflow — программная точка входа: выполнить граф локально
// и вернуть только результаты.
func RunWorkflow(ctx context.Context, registry RunnerRegistry, nodes []domain.NodeSpec, edges []domain.EdgeSpec, opts Options) (Results, error) {
	rep, err := New(Config{Registry: registry}).Run(ctx, nodes, edges, opts)
	if rep == nil {
		return nil, err
	}
	return rep.Results, err
}
