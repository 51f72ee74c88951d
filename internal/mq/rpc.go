package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RPCClient — запрос-ответ поверх RabbitMQ (direct reply-to).
//
// Запросы публикуются с ReplyTo = amq.rabbitmq.reply-to и уникальным
// correlation id; ответы приходят на тот же канал и раздаются
// ожидающим вызовам по correlation id. Канал открывается лениво и
// переоткрывается после закрытия.
type RPCClient struct {
	conn   *Connection
	logger *slog.Logger

	mu      sync.Mutex
	ch      *amqp.Channel
	pending map[string]chan amqp.Delivery
}

// NewRPCClient создаёт RPCClient.
func NewRPCClient(conn *Connection, logger *slog.Logger) *RPCClient {
	return &RPCClient{
		conn:    conn,
		logger:  logger,
		pending: make(map[string]chan amqp.Delivery),
	}
}

// Call публикует msg и ждёт ответ до отмены ctx.
func (c *RPCClient) Call(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) (*Message, error) {
	publishing, err := newPublishing(msg)
	if err != nil {
		return nil, err
	}
	correlationID := uuid.New().String()
	publishing.CorrelationId = correlationID
	publishing.ReplyTo = string(QueueDirectReplyTo)
	publishing.Expiration = expiration(ctx)

	replyCh := make(chan amqp.Delivery, 1)

	c.mu.Lock()
	ch, err := c.channelLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.pending[correlationID] = replyCh
	err = ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false, publishing)
	c.mu.Unlock()

	defer c.forget(correlationID)

	if err != nil {
		return nil, fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	c.logger.Debug("rpc request sent",
		"exchange", exchange,
		"routing_key", routingKey,
		"correlation_id", correlationID,
		"type", msg.Type,
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-replyCh:
		if !ok {
			return nil, ErrRPCChannelClosed
		}
		var reply Message
		if err := json.Unmarshal(d.Body, &reply); err != nil {
			return nil, fmt.Errorf("unmarshal reply: %w", err)
		}
		return &reply, nil
	}
}

// Close закрывает канал RPC. Ожидающие вызовы получат ErrRPCChannelClosed.
func (c *RPCClient) Close() error {
	c.mu.Lock()
	ch := c.ch
	c.ch = nil
	c.mu.Unlock()

	if ch == nil {
		return nil
	}
	return ch.Close()
}

// channelLocked возвращает канал, открывая его и подписку на ответы
// при необходимости. Вызывается под c.mu.
func (c *RPCClient) channelLocked() (*amqp.Channel, error) {
	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}

	ch, err := c.conn.OpenChannel()
	if err != nil {
		return nil, err
	}

	// Direct reply-to требует auto-ack и подписки до публикации.
	deliveries, err := ch.Consume(
		string(QueueDirectReplyTo), // queue
		"",                         // consumer tag
		true,                       // auto-ack
		false,                      // exclusive
		false,                      // no-local
		false,                      // no-wait
		nil,                        // args
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume replies: %w", err)
	}

	c.ch = ch
	go c.dispatch(ch, deliveries)
	return ch, nil
}

// dispatch раздаёт ответы ожидающим вызовам.
func (c *RPCClient) dispatch(ch *amqp.Channel, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		c.mu.Lock()
		replyCh, ok := c.pending[d.CorrelationId]
		delete(c.pending, d.CorrelationId)
		c.mu.Unlock()

		if !ok {
			c.logger.Warn("rpc reply without waiter", "correlation_id", d.CorrelationId)
			continue
		}
		replyCh <- d
	}

	// Канал закрыт: все ожидающие на нём вызовы обречены.
	c.mu.Lock()
	if c.ch == ch || c.ch == nil {
		c.ch = nil
		for id, replyCh := range c.pending {
			close(replyCh)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	c.logger.Info("rpc reply channel closed")
}

// expiration — TTL запроса в миллисекундах по дедлайну ctx: запрос,
// ответ на который уже никто не ждёт, не должен доставаться воркеру.
func expiration(ctx context.Context) string {
	deadline, ok := ctx.Deadline()
	if !ok {
		return ""
	}
	ttl := time.Until(deadline).Milliseconds()
	if ttl < 1 {
		ttl = 1
	}
	return strconv.FormatInt(ttl, 10)
}

// forget снимает ожидание ответа.
func (c *RPCClient) forget(correlationID string) {
	c.mu.Lock()
	delete(c.pending, correlationID)
	c.mu.Unlock()
}
