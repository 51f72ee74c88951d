// Package remote содержит удалённые исполнители графа (engine.Delegate).
//
//   - HTTPDelegate — POST {base}/api/v1/executions другого REX API
//   - AMQPDelegate — RPC через RabbitMQ (executions.requested + direct reply-to)
//
// Обе реализации возвращают engine.Results той же формы, что и
// локальный движок. Любая ошибка делегата — сигнал оркестратору
// выполнить граф локально.
//
// FromEnv выбирает делегат по REX_DELEGATE / REX_DELEGATE_URL / RABBITMQ_URL
// (используется cmd/rex-api и cmd/rex-scheduler).
package remote
