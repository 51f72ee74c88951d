package worker

import "errors"

// Ошибки воркера.
var (
	// ErrInvalidRequest — payload не является ExecutionRequest.
	ErrInvalidRequest = errors.New("invalid execution request")

	// ErrUnexpectedMessage — сообщение другого типа в очереди запросов.
	ErrUnexpectedMessage = errors.New("unexpected message type")

	// ErrWorkerStopped — воркер остановлен во время выполнения.
	ErrWorkerStopped = errors.New("worker stopped")

	// ErrNoConnection — не задано подключение к RabbitMQ.
	ErrNoConnection = errors.New("rabbitmq connection is not configured")
)
