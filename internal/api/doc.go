// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (оркестратор, движок, история runs, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (logging, metrics, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - execution_handler.go — /executions (удалённое выполнение для других экземпляров)
//   - run_handler.go       — обработчики для /runs
//   - workflow_handler.go  — проверка workflow, каталог узлов, health
//
// Ответы заворачиваются в {"data": ...} или {"error": {"code", "message"}}.
package api
