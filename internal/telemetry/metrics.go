package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения workflow.
var (
	// RunsTotal — завершённые run'ы по статусу и режиму (local/remote).
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_runs_total",
		Help: "Total workflow runs by final status and execution mode",
	}, []string{"status", "mode"})

	// RunDuration — длительность run'а.
	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rex_run_duration_seconds",
		Help:    "Workflow run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	// NodeExecutions — вызовы узлов по subtype и исходу.
	NodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_node_executions_total",
		Help: "Node invocations by subtype and outcome",
	}, []string{"subtype", "outcome"})

	// NodeAttempts — отдельные попытки Runner'а (включая retry).
	NodeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_node_attempts_total",
		Help: "Runner attempts by subtype",
	}, []string{"subtype"})

	// TraceEvents — события трассировки (включая отброшенные доставки).
	TraceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_trace_events_total",
		Help: "Engine trace events by kind",
	}, []string{"kind"})

	// DelegateFallbacks — переходы на локальное выполнение после ошибки делегата.
	DelegateFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_delegate_fallbacks_total",
		Help: "Remote delegate failures that fell back to local execution",
	}, []string{"delegate"})

	// ScheduleFirings — запуски по расписанию.
	ScheduleFirings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_schedule_firings_total",
		Help: "Scheduled workflow firings by schedule and result",
	}, []string{"schedule", "result"})

	// WorkerExecutions — запросы, обработанные воркером.
	WorkerExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_worker_executions_total",
		Help: "Execution requests handled by the worker by result",
	}, []string{"result"})

	// WorkerInFlight — запросы, которые воркер выполняет прямо сейчас.
	WorkerInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rex_worker_in_flight",
		Help: "Execution requests currently being executed by the worker",
	})

	// HTTPRequests — запросы к API.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rex_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPDuration — длительность обработки запросов API.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rex_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
