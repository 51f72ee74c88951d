package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MeghVyas3132/REX/internal/engine"
)

const (
	// ExecutionsPath — путь сервиса выполнения.
	ExecutionsPath = "/api/v1/executions"

	defaultHTTPTimeout = 5 * time.Minute
	maxResponseBody    = 32 * 1024 * 1024 // 32 MB
)

// HTTPDelegate выполняет граф через HTTP API другого экземпляра REX.
type HTTPDelegate struct {
	baseURL string
	client  *http.Client
}

// NewHTTPDelegate создаёт HTTPDelegate. client == nil — клиент
// с таймаутом по умолчанию.
func NewHTTPDelegate(baseURL string, client *http.Client) *HTTPDelegate {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPDelegate{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name реализует engine.Delegate.
func (d *HTTPDelegate) Name() string { return "http" }

// executionEnvelope — тело ответа API ({"data": ...} или {"error": ...}).
type executionEnvelope struct {
	Data  *engine.ExecutionResponse `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Execute реализует engine.Delegate.
func (d *HTTPDelegate) Execute(ctx context.Context, req *engine.ExecutionRequest) (engine.Results, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+ExecutionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrDelegateUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var env executionEnvelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		if decodeErr == nil && env.Error != nil {
			statusErr.Code = env.Error.Code
			statusErr.Message = env.Error.Message
		}
		return nil, statusErr
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, decodeErr)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrBadResponse)
	}
	if env.Data.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemoteFailed, env.Data.Error)
	}

	results := env.Data.Results
	if results == nil {
		results = engine.Results{}
	}
	return results, nil
}
