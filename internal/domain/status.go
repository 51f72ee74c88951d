package domain

import (
	"fmt"
	"strings"
)

// RunStatus — статус run.
//
//	PENDING → RUNNING → SUCCEEDED | PARTIAL | FAILED
//	PENDING, RUNNING  → CANCELLED
//
// PARTIAL — run дошёл до конца, но часть узлов вернула error payload.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusPartial   RunStatus = "PARTIAL"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// RunStatuses — все статусы в порядке жизненного цикла.
var RunStatuses = []RunStatus{
	RunStatusPending,
	RunStatusRunning,
	RunStatusSucceeded,
	RunStatusPartial,
	RunStatusFailed,
	RunStatusCancelled,
}

// IsTerminal возвращает true для статусов, после которых run не меняется.
func (s RunStatus) IsTerminal() bool {
	return s != RunStatusPending && s != RunStatusRunning && s.Valid()
}

// Valid возвращает true для известных статусов.
func (s RunStatus) Valid() bool {
	for _, known := range RunStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s RunStatus) String() string {
	return string(s)
}

// ParseRunStatus разбирает статус без учёта регистра ("failed" → FAILED).
func ParseRunStatus(s string) (RunStatus, error) {
	status := RunStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown run status %q", s)
	}
	return status, nil
}
