package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/mq"
)

// ErrUnknownDelegate — неизвестное значение REX_DELEGATE.
var ErrUnknownDelegate = errors.New("unknown delegate kind")

// Виды делегата (значения REX_DELEGATE).
const (
	KindNone = ""
	KindHTTP = "http"
	KindAMQP = "amqp"
)

// FromEnv создаёт делегат по переменным окружения:
//
//	REX_DELEGATE      "" | http | amqp
//	REX_DELEGATE_URL  base URL другого REX API (для http)
//	RABBITMQ_URL      брокер (для amqp, по умолчанию mq.DefaultURL)
//
// Возвращает nil-делегат, если REX_DELEGATE не задан. Функция закрытия освобождает
// соединения делегата и никогда не равна nil.
func FromEnv(logger *slog.Logger) (engine.Delegate, func(), error) {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("REX_DELEGATE")))
	if kind == KindNone && os.Getenv("REX_DELEGATE_URL") != "" {
		kind = KindHTTP
	}
	return New(kind, os.Getenv("REX_DELEGATE_URL"), os.Getenv("RABBITMQ_URL"), logger)
}

// New создаёт делегат заданного вида.
func New(kind, baseURL, amqpURL string, logger *slog.Logger) (engine.Delegate, func(), error) {
	noop := func() {}

	switch kind {
	case KindNone:
		return nil, noop, nil

	case KindHTTP:
		if baseURL == "" {
			return nil, noop, fmt.Errorf("http delegate: base URL is required")
		}
		return NewHTTPDelegate(baseURL, nil), noop, nil

	case KindAMQP:
		if amqpURL == "" {
			amqpURL = mq.DefaultURL()
		}
		conn, err := mq.NewConnection(amqpURL, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("amqp delegate: %w", err)
		}
		rpc := mq.NewRPCClient(conn, logger)
		closeFn := func() {
			if err := rpc.Close(); err != nil {
				logger.Warn("failed to close rpc client", "error", err)
			}
			if err := conn.Close(); err != nil {
				logger.Warn("failed to close rabbitmq connection", "error", err)
			}
		}
		return NewAMQPDelegate(rpc, 0), closeFn, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownDelegate, kind)
	}
}
