package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/orchestrator"
	"github.com/MeghVyas3132/REX/internal/repo"
)

func TestWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
		wantNode   string
	}{
		{"bad request", badRequest("invalid limit"), http.StatusBadRequest, ErrCodeBadRequest, ""},
		{"unavailable", unavailable("no store"), http.StatusServiceUnavailable, ErrCodeUnavailable, ""},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, ""},
		{
			"validation",
			fmt.Errorf("run: %w", engine.NewValidationError("fetch", "config.url", "required", engine.ErrConfigSchema)),
			http.StatusBadRequest, ErrCodeValidation, "fetch",
		},
		{"not found", repo.ErrNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
		{"conflict", repo.ErrAlreadyExists, http.StatusConflict, ErrCodeConflict, ""},
		{"finished run", fmt.Errorf("update: %w", repo.ErrInvalidState), http.StatusConflict, ErrCodeInvalidState, ""},
		{"stopped", orchestrator.ErrOrchestratorStopped, http.StatusServiceUnavailable, ErrCodeUnavailable, ""},
		{"internal", errors.New("db exploded"), http.StatusInternalServerError, ErrCodeInternalError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, logger, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
			if resp.Error.NodeID != tt.wantNode {
				t.Errorf("node_id = %q, want %q", resp.Error.NodeID, tt.wantNode)
			}
			if tt.wantCode == ErrCodeInternalError && strings.Contains(resp.Error.Message, "exploded") {
				t.Error("internal error details must not leak to the client")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var v map[string]any

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a": 1}`))
	if err := decodeJSON(rec, req, &v); err != nil || v["a"] != float64(1) {
		t.Fatalf("decodeJSON: %v, %v", err, v)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":`))
	var reqErr *requestError
	if err := decodeJSON(rec, req, &v); !errors.As(err, &reqErr) || reqErr.status != http.StatusBadRequest {
		t.Errorf("expected bad request, got %v", err)
	}

	big := `{"a": "` + strings.Repeat("x", maxBodySize) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var tooLarge *http.MaxBytesError
	if err := decodeJSON(rec, req, &v); !errors.As(err, &tooLarge) {
		t.Errorf("expected MaxBytesError, got %v", err)
	}
}
