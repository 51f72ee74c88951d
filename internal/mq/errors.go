package mq

import "errors"

var (
	// ErrConnectionClosed — Connection закрыт через Close.
	ErrConnectionClosed = errors.New("rabbitmq connection closed")

	// ErrNotConnected — соединения сейчас нет (идёт переподключение).
	ErrNotConnected = errors.New("rabbitmq not connected")

	// ErrEmptyReplyTo — ответ на запрос без ReplyTo.
	ErrEmptyReplyTo = errors.New("empty reply-to")

	// ErrRPCChannelClosed — канал RPC закрылся, ответ не будет получен.
	ErrRPCChannelClosed = errors.New("rpc channel closed")
)
