package mq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует сообщения через общий канал Connection.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует persistent-сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}
	publishing.DeliveryMode = amqp.Persistent

	if err := p.publish(ctx, string(exchange), string(routingKey), publishing); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishJSON оборачивает payload в Message и публикует его.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	return p.Publish(ctx, exchange, routingKey, NewMessage(msgType, payload))
}

// Reply отправляет ответ на RPC-запрос в очередь replyTo через
// обменник по умолчанию. Ответ не persistent.
func (p *Publisher) Reply(ctx context.Context, replyTo, correlationID string, msg *Message) error {
	if replyTo == "" {
		return ErrEmptyReplyTo
	}

	publishing, err := newPublishing(msg)
	if err != nil {
		return err
	}
	publishing.CorrelationId = correlationID

	if err := p.publish(ctx, string(ExchangeDefault), replyTo, publishing); err != nil {
		return fmt.Errorf("reply to %s: %w", replyTo, err)
	}

	p.logger.Debug("sent reply",
		"reply_to", replyTo,
		"correlation_id", correlationID,
		"type", msg.Type,
	)
	return nil
}

func (p *Publisher) publish(ctx context.Context, exchange, key string, publishing amqp.Publishing) error {
	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(ctx, exchange, key, false, false, publishing)
	})
}
