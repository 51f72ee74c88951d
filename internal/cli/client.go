package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, клиент не импортирует internal/api) ---

// RunResponse — run из API.
type RunResponse struct {
	ID           string           `json:"id"`
	WorkflowName string           `json:"workflow_name,omitempty"`
	Status       string           `json:"status"`
	Mode         string           `json:"mode,omitempty"`
	Input        any              `json:"input,omitempty"`
	Results      map[string]any   `json:"results,omitempty"`
	FailedNodes  []string         `json:"failed_nodes,omitempty"`
	StartedAt    string           `json:"started_at,omitempty"`
	FinishedAt   string           `json:"finished_at,omitempty"`
	DurationMs   int64            `json:"duration_ms,omitempty"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    string           `json:"created_at"`
	Trace        []map[string]any `json:"trace,omitempty"`
}

// NodeInfo — описание subtype из API.
type NodeInfo struct {
	Subtype     string `json:"subtype"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
}

// --- Request types ---

// CreateRunRequest — запуск workflow через API.
type CreateRunRequest struct {
	Workflow     any      `json:"workflow"`
	Input        any      `json:"input,omitempty"`
	StartFrom    []string `json:"startFrom,omitempty"`
	Retries      *int     `json:"retries,omitempty"`
	RetryDelayMs int      `json:"retryDelayMs,omitempty"`
	TimeoutMs    int64    `json:"timeoutMs,omitempty"`
	JoinMode     string   `json:"joinMode,omitempty"`
}

// ListRunsOpts — параметры фильтрации runs.
type ListRunsOpts struct {
	Workflow string
	Status   string
	Limit    int
	Offset   int
}

// envelope — обёртка ответов API: {"data": ..., "total": N} или {"error": {...}}.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total,omitempty"`
	Error *APIError       `json:"error,omitempty"`
}

// APIError — ошибка, которую вернул сервер.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return e.Code + ": " + e.Message
}

// --- Client ---

// Client — HTTP-клиент для REX API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // POST /runs ждёт завершения run'а
		},
	}
}

// --- Runs ---

// ListRuns возвращает список runs с фильтрацией.
func (c *Client) ListRuns(opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.Workflow != "" {
		params.Set("workflow", opts.Workflow)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var runs []RunResponse
	err := c.list("/api/v1/runs", params, &runs)
	return runs, err
}

// CreateRun запускает workflow на сервере и ждёт результата.
func (c *Client) CreateRun(req CreateRunRequest) (*RunResponse, error) {
	var run RunResponse
	err := c.post("/api/v1/runs", req, &run)
	return &run, err
}

// GetRun возвращает run по ID.
func (c *Client) GetRun(id string) (*RunResponse, error) {
	var run RunResponse
	err := c.get("/api/v1/runs/"+url.PathEscape(id), &run)
	return &run, err
}

// ListNodes возвращает каталог subtype'ов сервера.
func (c *Client) ListNodes() ([]NodeInfo, error) {
	var nodes []NodeInfo
	err := c.list("/api/v1/nodes", nil, &nodes)
	return nodes, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.call(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.call(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.call(http.MethodGet, path, nil, result)
}

// call выполняет запрос и раскладывает поле data ответа в result.
func (c *Client) call(method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		if decodeErr != nil || env.Error == nil {
			return &APIError{Status: resp.StatusCode}
		}
		env.Error.Status = resp.StatusCode
		return env.Error
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}

	if result == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, result)
}
