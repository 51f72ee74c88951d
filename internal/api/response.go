package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/orchestrator"
	"github.com/MeghVyas3132/REX/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeTooLarge      ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeValidation    ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInvalidState  ErrorCode = "INVALID_STATE"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки. NodeID и Field заполняются для
// ошибок валидации workflow.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	NodeID  string    `json:"node_id,omitempty"`
	Field   string    `json:"field,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total,omitempty"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет 200 с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет 201 с данными.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// requestError — ошибка клиента или окружения с готовым статусом.
type requestError struct {
	status  int
	code    ErrorCode
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(format string, args ...any) error {
	return &requestError{http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf(format, args...)}
}

func unavailable(message string) error {
	return &requestError{http.StatusServiceUnavailable, ErrCodeUnavailable, message}
}

// WriteError отправляет ошибку, выбирая статус по её типу:
//
//	*requestError            свой статус
//	*http.MaxBytesError      413
//	*engine.ValidationError  400 VALIDATION_FAILED (+ node_id, field)
//	repo.ErrNotFound         404
//	repo.ErrAlreadyExists    409 CONFLICT
//	repo.ErrInvalidState     409 INVALID_STATE
//	orchestrator stopped     503
//	остальное                500, текст ошибки только в лог
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		reqErr   *requestError
		tooLarge *http.MaxBytesError
		valErr   *engine.ValidationError
	)

	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, ErrorDetail{Code: reqErr.code, Message: reqErr.message})
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, ErrorDetail{
			Code:    ErrCodeTooLarge,
			Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, ErrorDetail{
			Code:    ErrCodeValidation,
			Message: valErr.Error(),
			NodeID:  valErr.NodeID,
			Field:   valErr.Field,
		})
	case errors.Is(err, repo.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorDetail{Code: ErrCodeNotFound, Message: err.Error()})
	case errors.Is(err, repo.ErrAlreadyExists):
		writeError(w, http.StatusConflict, ErrorDetail{Code: ErrCodeConflict, Message: err.Error()})
	case errors.Is(err, repo.ErrInvalidState):
		writeError(w, http.StatusConflict, ErrorDetail{Code: ErrCodeInvalidState, Message: err.Error()})
	case errors.Is(err, orchestrator.ErrOrchestratorStopped):
		writeError(w, http.StatusServiceUnavailable, ErrorDetail{Code: ErrCodeUnavailable, Message: err.Error()})
	default:
		logger.Error("internal error", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorDetail{Code: ErrCodeInternalError, Message: "internal server error"})
	}
}

func writeError(w http.ResponseWriter, status int, detail ErrorDetail) {
	JSON(w, status, ErrorResponse{Error: detail})
}

// decodeJSON читает тело запроса (не больше maxBodySize) в v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return badRequest("invalid request body: %v", err)
}
