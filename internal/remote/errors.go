package remote

import (
	"errors"
	"fmt"
)

// Ошибки делегатов.
var (
	// ErrRemoteFailed — удалённый исполнитель вернул ошибку.
	ErrRemoteFailed = errors.New("remote execution failed")

	// ErrBadResponse — ответ не удалось разобрать.
	ErrBadResponse = errors.New("bad remote response")
)

// StatusError — HTTP ответ удалённого API с ошибочным статусом.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error реализует интерфейс error.
func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote api: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("remote api: HTTP %d", e.StatusCode)
}

// Unwrap позволяет сопоставлять с ErrRemoteFailed.
func (e *StatusError) Unwrap() error {
	return ErrRemoteFailed
}
