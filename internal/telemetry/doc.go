// Package telemetry — логирование и метрики REX.
//
// logging.go: slog-логгер процесса (LOG_LEVEL, LOG_FORMAT) и передача
// логгера с run_id/workflow/node_id через context.
//
// metrics.go: Prometheus-метрики runs, узлов, трассировки, делегатов,
// планировщика, воркера и HTTP API. Каждый сервис отдаёт их на /metrics.
package telemetry
