package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/mq"
)

const defaultRPCTimeout = 5 * time.Minute

// Caller — транспорт запрос-ответ (реализуется mq.RPCClient).
type Caller interface {
	Call(ctx context.Context, exchange mq.Exchange, routingKey mq.RoutingKey, msg *mq.Message) (*mq.Message, error)
}

// AMQPDelegate выполняет граф через воркер по RabbitMQ.
type AMQPDelegate struct {
	caller  Caller
	timeout time.Duration
}

// NewAMQPDelegate создаёт AMQPDelegate. timeout <= 0 — 5 минут.
func NewAMQPDelegate(caller Caller, timeout time.Duration) *AMQPDelegate {
	if timeout <= 0 {
		timeout = defaultRPCTimeout
	}
	return &AMQPDelegate{caller: caller, timeout: timeout}
}

// Name реализует engine.Delegate.
func (d *AMQPDelegate) Name() string { return "amqp" }

// Execute реализует engine.Delegate.
func (d *AMQPDelegate) Execute(ctx context.Context, req *engine.ExecutionRequest) (engine.Results, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	msg := mq.NewMessage(mq.MessageTypeExecutionRequested, req)

	reply, err := d.caller.Call(ctx, mq.ExchangeExecutions, mq.RoutingKeyRequested, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: rpc: %w", engine.ErrDelegateUnavailable, err)
	}

	return DecodeReply(reply)
}

// DecodeReply извлекает результаты из ответа воркера.
func DecodeReply(reply *mq.Message) (engine.Results, error) {
	if reply == nil {
		return nil, fmt.Errorf("%w: empty reply", ErrBadResponse)
	}
	if reply.Type != mq.MessageTypeExecutionCompleted {
		return nil, fmt.Errorf("%w: unexpected reply type %q", ErrBadResponse, reply.Type)
	}

	resp, err := mq.ParsePayload[engine.ExecutionResponse](reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemoteFailed, resp.Error)
	}

	if resp.Results == nil {
		resp.Results = engine.Results{}
	}
	return resp.Results, nil
}

var (
	_ engine.Delegate = (*HTTPDelegate)(nil)
	_ engine.Delegate = (*AMQPDelegate)(nil)
	_ Caller          = (*mq.RPCClient)(nil)
)
