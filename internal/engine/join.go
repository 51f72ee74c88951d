package engine

import (
	"fmt"
)

// joinBuffer — накопленные доставки для одного join-узла.
type joinBuffer struct {
	payloads []any
	seen     map[string]bool
}

// accumulate буферизует доставку в join-узел и освобождает буфер,
// когда выполнено условие JoinMode.
func (rc *RunContext) accumulate(from, to string, payload any) {
	buf, ok := rc.joins[to]
	if !ok {
		buf = &joinBuffer{seen: make(map[string]bool)}
		rc.joins[to] = buf
	}
	buf.payloads = append(buf.payloads, payload)
	buf.seen[from] = true

	if !rc.joinReady(to, buf) {
		rc.emit(TraceEvent{
			Kind:   TraceJoinBuffered,
			NodeID: to,
			From:   from,
			Detail: rc.joinProgress(to, buf),
		})
		return
	}

	combined := flatten(buf.payloads)
	delete(rc.joins, to)

	rc.emit(TraceEvent{
		Kind:   TraceJoinReleased,
		NodeID: to,
		From:   from,
		Detail: fmt.Sprintf("%d payload(s) combined into %d item(s)", len(buf.payloads), len(combined)),
	})
	rc.enqueue(WorkItem{NodeID: to, Payload: combined, From: from})
}

// joinReady проверяет условие освобождения буфера.
func (rc *RunContext) joinReady(id string, buf *joinBuffer) bool {
	if rc.opts.JoinMode == JoinInDegree {
		return len(buf.payloads) >= rc.graph.InDegree[id]
	}
	for _, src := range rc.graph.Sources[id] {
		if !buf.seen[src] {
			return false
		}
	}
	return true
}

// joinProgress описывает состояние буфера для трассировки.
func (rc *RunContext) joinProgress(id string, buf *joinBuffer) string {
	if rc.opts.JoinMode == JoinInDegree {
		return fmt.Sprintf("%d of %d deliveries", len(buf.payloads), rc.graph.InDegree[id])
	}
	return fmt.Sprintf("%d of %d sources", len(buf.seen), len(rc.graph.Sources[id]))
}

// flushJoins сообщает о буферах, которые так и не освободились.
func (rc *RunContext) flushJoins() {
	for _, id := range rc.graph.Declared {
		buf, ok := rc.joins[id]
		if !ok {
			continue
		}
		rc.emit(TraceEvent{
			Kind:   TraceJoinIncomplete,
			NodeID: id,
			Detail: rc.joinProgress(id, buf),
		})
		delete(rc.joins, id)
	}
}

// flatten объединяет payload'ы в один список, раскрывая списки на один уровень.
func flatten(payloads []any) []any {
	out := make([]any, 0, len(payloads))
	for _, p := range payloads {
		if list, ok := toList(p); ok {
			out = append(out, list...)
			continue
		}
		out = append(out, p)
	}
	return out
}
