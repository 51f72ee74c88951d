package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/mq"
)

func testRequest() *engine.ExecutionRequest {
	return &engine.ExecutionRequest{
		Nodes: []domain.NodeSpec{
			{ID: "start", Kind: domain.NodeKindTrigger, Subtype: "manual"},
		},
		InitialInput: map[string]any{"a": 1},
	}
}

// HTTP Delegate Tests

func TestHTTPDelegate_Success(t *testing.T) {
	var received engine.ExecutionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != ExecutionsPath {
			t.Errorf("path = %s, want %s", r.URL.Path, ExecutionsPath)
		}
		json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"run_id":  "r1",
				"results": map[string]any{"start": map[string]any{"a": 1}},
			},
		})
	}))
	defer server.Close()

	d := NewHTTPDelegate(server.URL+"/", nil)
	results, err := d.Execute(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(received.Nodes) != 1 || received.Nodes[0].ID != "start" {
		t.Errorf("server received nodes %v", received.Nodes)
	}
	start, ok := results["start"].(map[string]any)
	if !ok || start["a"] != float64(1) {
		t.Errorf("results = %v", results)
	}
	if d.Name() != "http" {
		t.Errorf("name = %s", d.Name())
	}
}

func TestHTTPDelegate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"error envelope", http.StatusBadRequest, `{"error":{"code":"BAD_REQUEST","message":"cycle"}}`, ErrRemoteFailed},
		{"plain 500", http.StatusInternalServerError, `oops`, ErrRemoteFailed},
		{"data error", http.StatusOK, `{"data":{"error":"engine down"}}`, ErrRemoteFailed},
		{"not json", http.StatusOK, `<html>`, ErrBadResponse},
		{"no data", http.StatusOK, `{}`, ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPDelegate(server.URL, nil).Execute(context.Background(), testRequest())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHTTPDelegate_StatusErrorDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST","message":"cycle"}}`))
	}))
	defer server.Close()

	_, err := NewHTTPDelegate(server.URL, nil).Execute(context.Background(), testRequest())

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != 400 || statusErr.Code != "BAD_REQUEST" || statusErr.Message != "cycle" {
		t.Errorf("status error = %+v", statusErr)
	}
}

func TestHTTPDelegate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPDelegate(url, nil).Execute(context.Background(), testRequest())
	if !errors.Is(err, engine.ErrDelegateUnavailable) {
		t.Fatalf("expected ErrDelegateUnavailable, got %v", err)
	}
}

// AMQP Delegate Tests

type fakeCaller struct {
	reply *mq.Message
	err   error

	exchange   mq.Exchange
	routingKey mq.RoutingKey
	sent       *mq.Message
}

func (c *fakeCaller) Call(_ context.Context, exchange mq.Exchange, routingKey mq.RoutingKey, msg *mq.Message) (*mq.Message, error) {
	c.exchange = exchange
	c.routingKey = routingKey
	c.sent = msg
	return c.reply, c.err
}

func TestAMQPDelegate_Success(t *testing.T) {
	caller := &fakeCaller{
		reply: mq.NewMessage(mq.MessageTypeExecutionCompleted, engine.ExecutionResponse{
			RunID:   "r1",
			Results: engine.Results{"start": "ok"},
		}),
	}

	results, err := NewAMQPDelegate(caller, 0).Execute(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results["start"] != "ok" {
		t.Errorf("results = %v", results)
	}

	if caller.exchange != mq.ExchangeExecutions || caller.routingKey != mq.RoutingKeyRequested {
		t.Errorf("published to %s/%s", caller.exchange, caller.routingKey)
	}
	if caller.sent.Type != mq.MessageTypeExecutionRequested {
		t.Errorf("message type = %s", caller.sent.Type)
	}
}

func TestAMQPDelegate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		caller  *fakeCaller
		wantErr error
	}{
		{
			name:    "transport error",
			caller:  &fakeCaller{err: context.DeadlineExceeded},
			wantErr: engine.ErrDelegateUnavailable,
		},
		{
			name: "worker error",
			caller: &fakeCaller{reply: mq.NewMessage(mq.MessageTypeExecutionCompleted,
				engine.ExecutionResponse{Error: "node x: cycle"})},
			wantErr: ErrRemoteFailed,
		},
		{
			name:    "wrong reply type",
			caller:  &fakeCaller{reply: mq.NewMessage(mq.MessageTypeExecutionRequested, nil)},
			wantErr: ErrBadResponse,
		},
		{
			name:    "bad payload",
			caller:  &fakeCaller{reply: mq.NewMessage(mq.MessageTypeExecutionCompleted, "text")},
			wantErr: ErrBadResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAMQPDelegate(tt.caller, 0).Execute(context.Background(), testRequest())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_Kinds(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		kind     string
		baseURL  string
		wantName string
		wantNil  bool
		wantErr  bool
		errIs    error
	}{
		{name: "none", kind: KindNone, wantNil: true},
		{name: "http", kind: KindHTTP, baseURL: "http://rex:8080", wantName: "http"},
		{name: "http without url", kind: KindHTTP, wantErr: true, wantNil: true},
		{name: "unknown", kind: "carrier-pigeon", wantErr: true, errIs: ErrUnknownDelegate, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, closeFn, err := New(tt.kind, tt.baseURL, "", logger)
			if closeFn == nil {
				t.Fatal("close func must not be nil")
			}
			defer closeFn()

			if tt.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if tt.errIs != nil && !errors.Is(err, tt.errIs) {
				t.Fatalf("expected %v, got %v", tt.errIs, err)
			}
			if tt.wantNil {
				if d != nil {
					t.Errorf("expected nil delegate, got %s", d.Name())
				}
				return
			}
			if d.Name() != tt.wantName {
				t.Errorf("expected %s, got %s", tt.wantName, d.Name())
			}
		})
	}
}

func TestFromEnv_URLImpliesHTTP(t *testing.T) {
	t.Setenv("REX_DELEGATE", "")
	t.Setenv("REX_DELEGATE_URL", "http://rex:8080")

	d, closeFn, err := FromEnv(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	defer closeFn()

	if d == nil || d.Name() != KindHTTP {
		t.Errorf("expected http delegate, got %v", d)
	}
}
