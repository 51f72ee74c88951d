// Package mq — транспорт RabbitMQ для удалённого выполнения графов.
//
// Структура:
//   - connection.go — соединение с переподключением; общий канал для публикации
//   - message.go    — конверт Message и ParsePayload
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация и ответы на RPC
//   - consumer.go   — потребление на собственном канале, ack/nack
//   - rpc.go        — запрос-ответ через direct reply-to
//
// Типы сообщений:
//   - execution.requested — граф для удалённого выполнения
//   - execution.completed — результаты выполнения (ответ)
//
// Exchanges:
//   - rex.executions — запросы на выполнение
//   - rex.dlq        — сообщения, которые не удалось разобрать
//
// Запрос RPC получает TTL по дедлайну ctx вызывающего.
package mq
