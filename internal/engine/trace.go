package engine

import (
	"time"
)

// TraceKind — тип события трассировки run'а.
type TraceKind string

const (
	TraceNodeStarted   TraceKind = "node_started"
	TraceNodeRetry     TraceKind = "node_retry"
	TraceNodeSucceeded TraceKind = "node_succeeded"
	TraceNodeFailed    TraceKind = "node_failed"

	TraceBranchRouted    TraceKind = "branch_routed"
	TraceBranchUnmatched TraceKind = "branch_unmatched"

	TraceFanOut      TraceKind = "fanout"
	TraceFanOutEmpty TraceKind = "fanout_empty"

	TraceJoinBuffered   TraceKind = "join_buffered"
	TraceJoinReleased   TraceKind = "join_released"
	TraceJoinIncomplete TraceKind = "join_incomplete"

	TraceNoStartNodes TraceKind = "no_start_nodes"
	TraceCancelled    TraceKind = "cancelled"
)

// TraceEvent — одно событие трассировки.
//
// Трасса заменяет молчаливые отбрасывания доставок: всё, что движок
// решил не доставлять, видно в Report.Trace.
type TraceEvent struct {
	Kind    TraceKind `json:"kind"`
	NodeID  string    `json:"node_id,omitempty"`
	From    string    `json:"from,omitempty"`
	Attempt int       `json:"attempt,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Time    time.Time `json:"time"`
}

// IsDrop возвращает true для событий об отброшенной доставке.
func (e TraceEvent) IsDrop() bool {
	switch e.Kind {
	case TraceBranchUnmatched, TraceFanOutEmpty, TraceJoinIncomplete, TraceCancelled:
		return true
	default:
		return false
	}
}

// Filter возвращает события указанного типа.
func Filter(events []TraceEvent, kind TraceKind) []TraceEvent {
	out := make([]TraceEvent, 0)
	for _, e := range events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
