package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeExecutions Exchange = "rex.executions"
	ExchangeDLQ        Exchange = "rex.dlq"

	// ExchangeDefault — безымянный обменник RabbitMQ, маршрутизирует
	// по имени очереди. Через него идут ответы RPC.
	ExchangeDefault Exchange = ""
)

// Queues — имена очередей.
const (
	QueueExecutionsRequested Queue = "executions.requested"
	QueueDLQExecutions       Queue = "dlq.executions"

	// QueueDirectReplyTo — псевдо-очередь direct reply-to RabbitMQ.
	QueueDirectReplyTo Queue = "amq.rabbitmq.reply-to"
)

// Routing keys.
const (
	RoutingKeyRequested     RoutingKey = "requested"
	RoutingKeyDLQExecutions RoutingKey = "executions"
)

// route — обменник, очередь и привязка между ними.
type route struct {
	exchange Exchange
	queue    Queue
	key      RoutingKey
	args     amqp.Table
}

// topology: исполнение графов и DLQ для сообщений, которые не удалось разобрать.
var topology = []route{
	{
		exchange: ExchangeExecutions,
		queue:    QueueExecutionsRequested,
		key:      RoutingKeyRequested,
		args: amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQExecutions),
		},
	},
	{
		exchange: ExchangeDLQ,
		queue:    QueueDLQExecutions,
		key:      RoutingKeyDLQExecutions,
	},
}

// SetupTopology объявляет durable direct-обменники, очереди и привязки.
// Операции идемпотентны: вызывать можно из каждого процесса.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, r := range topology {
			if err := declareRoute(ch, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func declareRoute(ch *amqp.Channel, r route) error {
	// name, kind, durable, auto-delete, internal, no-wait, args
	if err := ch.ExchangeDeclare(string(r.exchange), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", r.exchange, err)
	}

	// name, durable, auto-delete, exclusive, no-wait, args
	if _, err := ch.QueueDeclare(string(r.queue), true, false, false, false, r.args); err != nil {
		return fmt.Errorf("declare queue %s: %w", r.queue, err)
	}

	if err := ch.QueueBind(string(r.queue), string(r.key), string(r.exchange), false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", r.queue, r.exchange, err)
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	var b strings.Builder
	b.WriteString("REX RabbitMQ topology:\n")
	for _, r := range topology {
		fmt.Fprintf(&b, "  %s (direct) -> %s [routing: %s]", r.exchange, r.queue, r.key)
		if dlx, ok := r.args["x-dead-letter-exchange"]; ok {
			fmt.Fprintf(&b, " dlx: %v", dlx)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  replies: %s (direct reply-to)\n", QueueDirectReplyTo)
	return b.String()
}
