package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// resubscribeDelay — пауза перед повторной подпиской, если канал
// закрылся без разрыва соединения.
const resubscribeDelay = 5 * time.Second

// Handler обрабатывает доставку. nil — ack; ошибка — nack с возвратом
// в очередь.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — разобранное сообщение и исходная AMQP-доставка.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// ReplyTo возвращает очередь для ответа (пусто, если ответ не ждут).
func (d *Delivery) ReplyTo() string {
	return d.Raw.ReplyTo
}

// CorrelationID возвращает correlation id запроса.
func (d *Delivery) CorrelationID() string {
	return d.Raw.CorrelationId
}

// Redelivered — сообщение уже доставлялось (после nack или разрыва).
func (d *Delivery) Redelivered() bool {
	return d.Raw.Redelivered
}

// Consumer читает очередь на собственном канале и переподписывается
// после переподключения Connection.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int
	tag      string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — сколько неподтверждённых сообщений держать (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
		tag:      cfg.Queue + "-" + uuid.NewString()[:8],
	}
}

// Start читает очередь до отмены ctx или Stop. Возвращает ctx.Err().
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	for {
		reconnected := c.conn.Reconnected()

		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consumer interrupted, resubscribing", "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reconnected:
		case <-time.After(resubscribeDelay):
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// consume подписывается на очередь и обрабатывает доставки,
// пока не закроется канал или не отменится ctx.
func (c *Consumer) consume(ctx context.Context) error {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		c.tag,   // consumer tag
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("consumer started", "tag", c.tag, "prefetch", c.prefetch)

	for {
		select {
		case <-ctx.Done():
			if err := ch.Cancel(c.tag, false); err != nil {
				c.logger.Debug("cancel consumer", "error", err)
			}
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}
			c.handle(ctx, raw)
		}
	}
}

// handle разбирает доставку, вызывает Handler и подтверждает сообщение.
//
// Неразбираемое тело — nack без возврата (очередь отправит его в DLX).
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	msg, err := decodeMessage(raw.Body)
	if err != nil {
		c.logger.Error("dropping malformed message",
			"message_id", raw.MessageId,
			"error", err,
		)
		c.settle(raw, raw.Nack(false, false))
		return
	}

	c.logger.Debug("received message",
		"message_id", msg.ID,
		"type", msg.Type,
		"redelivered", raw.Redelivered,
	)

	if err := c.handler(ctx, &Delivery{Message: msg, Raw: raw}); err != nil {
		c.logger.Warn("handler failed, requeueing",
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		c.settle(raw, raw.Nack(false, true))
		return
	}

	c.settle(raw, raw.Ack(false))
}

func (c *Consumer) settle(raw amqp.Delivery, err error) {
	if err != nil {
		c.logger.Warn("failed to settle delivery",
			"delivery_tag", raw.DeliveryTag,
			"error", err,
		)
	}
}
