package nodes

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
)

const (
	// SubtypeHTTP — subtype HTTP запроса.
	SubtypeHTTP = "http"

	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Ключи конфигурации HTTP узла.
const (
	configMethod          = "method"
	configURL             = "url"
	configHeaders         = "headers"
	configQuery           = "query"
	configBody            = "body"
	configFollowRedirects = "follow_redirects"
	configValidateSSL     = "validate_ssl"
	configTimeoutSec      = "timeout_sec"
	configIgnoreStatus    = "ignore_status"
)

const httpSchema = `{
	"type": "object",
	"required": ["url"],
	"properties": {
		"url": {"type": "string", "minLength": 1},
		"method": {"enum": ["GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
			"get", "post", "put", "patch", "delete", "head", "options"]},
		"headers": {"type": "object"},
		"query": {"type": "object"},
		"follow_redirects": {"type": "boolean"},
		"validate_ssl": {"type": "boolean"},
		"timeout_sec": {"type": "number", "minimum": 0},
		"ignore_status": {"type": "boolean"}
	}
}`

// HTTPRunner — HTTP запрос к внешнему API.
//
// Значения конфигурации рендерятся как шаблоны над входом узла.
//
// Конфигурация:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/users/{{ .Input.id }}",
//	    "headers": {"Authorization": "Bearer {{ .Env.REX_API_TOKEN }}"},
//	    "query": {"page": "1"},
//	    "body": {"name": "{{ .Input.name }}"},
//	    "follow_redirects": true,
//	    "validate_ssl": true,
//	    "timeout_sec": 30,
//	    "ignore_status": false
//	}
//
// Выход:
//
//	{
//	    "status_code": 200,
//	    "headers": {"Content-Type": "application/json"},
//	    "body": {...}  // JSON или строка
//	}
//
// Ответ со статусом >= 400 — ошибка *HTTPError, если не задан ignore_status.
type HTTPRunner struct {
	client *http.Client
	fixed  bool
}

// NewHTTPRunner создаёт HTTPRunner.
func NewHTTPRunner() *HTTPRunner {
	return &HTTPRunner{
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// NewHTTPRunnerWithClient создаёт HTTPRunner с заданным клиентом.
// Настройки follow_redirects, validate_ssl и timeout_sec при этом
// не применяются.
func NewHTTPRunnerWithClient(client *http.Client) *HTTPRunner {
	return &HTTPRunner{client: client, fixed: true}
}

// Subtype возвращает subtype.
func (r *HTTPRunner) Subtype() string { return SubtypeHTTP }

// Kind реализует Describer.
func (r *HTTPRunner) Kind() domain.NodeKind { return domain.NodeKindAction }

// Description реализует Describer.
func (r *HTTPRunner) Description() string {
	return "Sends an HTTP request built from templated config and returns the response"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *HTTPRunner) ConfigSchema() string { return httpSchema }

// Execute выполняет HTTP запрос.
func (r *HTTPRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	rendered, err := engine.RenderConfig(node.Config, templateContext(node, input))
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}

	cfg, err := parseHTTPConfig(rendered)
	if err != nil {
		return nil, err
	}

	req, err := buildRequest(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.clientFor(cfg).Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	output, raw, err := parseResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest && !cfg.IgnoreStatus {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(raw, 512),
		}
	}

	return output, nil
}

// httpConfig — распарсенная конфигурация HTTP узла.
type httpConfig struct {
	Method          string
	URL             string
	Headers         map[string]string
	Query           map[string]string
	Body            any
	FollowRedirects bool
	ValidateSSL     bool
	IgnoreStatus    bool
	TimeoutSec      int
}

// parseHTTPConfig парсит отрендеренную конфигурацию.
func parseHTTPConfig(config map[string]any) (*httpConfig, error) {
	cfg := &httpConfig{
		Method:          GetConfigString(config, configMethod),
		URL:             GetConfigString(config, configURL),
		Headers:         GetConfigMapString(config, configHeaders),
		Query:           GetConfigMapString(config, configQuery),
		Body:            config[configBody],
		FollowRedirects: GetConfigBool(config, configFollowRedirects, true),
		ValidateSSL:     GetConfigBool(config, configValidateSSL, true),
		IgnoreStatus:    GetConfigBool(config, configIgnoreStatus, false),
		TimeoutSec:      GetConfigInt(config, configTimeoutSec),
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, SubtypeHTTP)
	}

	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.Method = strings.ToUpper(cfg.Method)

	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}

	return cfg, nil
}

// clientFor возвращает клиент с настройками узла.
func (r *HTTPRunner) clientFor(cfg *httpConfig) *http.Client {
	if r.fixed {
		return r.client
	}
	if cfg.FollowRedirects && cfg.ValidateSSL && cfg.TimeoutSec <= 0 {
		return r.client
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	var checkRedirect func(*http.Request, []*http.Request) error
	if !cfg.FollowRedirects {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		Timeout:       timeout,
		CheckRedirect: checkRedirect,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.ValidateSSL},
		},
	}
}

// buildRequest создаёт HTTP запрос.
func buildRequest(ctx context.Context, cfg *httpConfig) (*http.Request, error) {
	var bodyReader io.Reader

	if cfg.Body != nil {
		bodyBytes, err := serializeBody(cfg.Body)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)

		if _, ok := cfg.Headers["Content-Type"]; !ok {
			cfg.Headers["Content-Type"] = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, cfg.Method, cfg.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	if len(cfg.Query) > 0 {
		q := req.URL.Query()
		for k, v := range cfg.Query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	for key, value := range cfg.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// serializeBody сериализует body в bytes.
func serializeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

// parseResponse читает ответ. Возвращает выход узла и сырое тело.
func parseResponse(resp *http.Response) (map[string]any, string, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}

	var body any
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, string(bodyBytes), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// HTTPError — ответ с ошибочным статусом.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error реализует интерфейс error.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// IsHTTPError проверяет, является ли ошибка HTTP ошибкой.
func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}
