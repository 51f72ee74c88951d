package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// branchTag извлекает тег ветки из выхода узла.
func branchTag(output any) (string, bool) {
	m, ok := output.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := m[domain.KeyBranch]
	if !ok || v == nil {
		return "", false
	}
	return formatTag(v), true
}

// formatTag приводит тег к строке: bool → "true"/"false",
// целые числа без дробной части.
func formatTag(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// selectBranch выбирает получателей по тегу.
//
//  1. Все ссылки, метка которых совпадает с тегом без учёта регистра.
//  2. Иначе позиционный fallback: "true" → первый сосед без метки,
//     "false" → второй сосед без метки, неотрицательное целое → сосед
//     с этим индексом среди всех ссылок, любой другой тег → первый сосед.
//
// Пустой результат означает, что доставка отброшена.
func selectBranch(links []Link, tag string) []string {
	if len(links) == 0 {
		return nil
	}

	matched := make([]string, 0)
	for _, l := range links {
		if l.Label != "" && strings.EqualFold(l.Label, tag) {
			matched = append(matched, l.Target)
		}
	}
	if len(matched) > 0 {
		return matched
	}

	switch strings.ToLower(tag) {
	case "true":
		return nthUnlabeled(links, 0)
	case "false":
		return nthUnlabeled(links, 1)
	}

	if idx, ok := parseIndex(tag); ok {
		if idx < len(links) {
			return []string{links[idx].Target}
		}
		return nil
	}

	return []string{links[0].Target}
}

// nthUnlabeled возвращает n-го соседа без метки.
func nthUnlabeled(links []Link, n int) []string {
	seen := 0
	for _, l := range links {
		if l.Label != "" {
			continue
		}
		if seen == n {
			return []string{l.Target}
		}
		seen++
	}
	return nil
}

// parseIndex разбирает неотрицательное целое без знака.
func parseIndex(tag string) (int, bool) {
	if tag == "" {
		return 0, false
	}
	for _, r := range tag {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tag)
	if err != nil {
		return 0, false
	}
	return n, true
}

// route доставляет выход узла по тегу ветки.
func (rc *RunContext) route(from, tag string, output any) {
	links := rc.graph.OutLinks[from]
	if len(links) == 0 {
		return
	}

	targets := selectBranch(links, tag)
	if len(targets) == 0 {
		rc.emit(TraceEvent{
			Kind:   TraceBranchUnmatched,
			NodeID: from,
			Detail: fmt.Sprintf("no outgoing edge for branch %q", tag),
		})
		return
	}

	for _, target := range targets {
		rc.emit(TraceEvent{Kind: TraceBranchRouted, NodeID: target, From: from, Detail: tag})
		rc.deliver(from, target, output)
	}
}
