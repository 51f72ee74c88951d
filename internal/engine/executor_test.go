package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
)

func TestRun_LinearChain(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{trigger("t"), action("a", "echo"), action("b", "echo")}
	edges := []domain.EdgeSpec{edge("t", "a"), edge("a", "b")}

	opts := fastOptions()
	opts.InitialInput = map[string]any{"x": 1}

	rep, err := e.Run(context.Background(), nodes, edges, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(rep.Results["t"], map[string]any{"x": 1}) {
		t.Errorf("unexpected trigger result: %v", rep.Results["t"])
	}
	if got := rec.inputs("a"); len(got) != 1 || !reflect.DeepEqual(got[0], rep.Results["t"]) {
		t.Errorf("a should receive results[t], got %v", got)
	}
	if got := rec.inputs("b"); len(got) != 1 || !reflect.DeepEqual(got[0], rep.Results["a"]) {
		t.Errorf("b should receive results[a], got %v", got)
	}

	want := []string{"t", "a", "b"}
	if !reflect.DeepEqual(rec.order(), want) {
		t.Errorf("expected order %v, got %v", want, rec.order())
	}
	for _, id := range want {
		if rep.Invocations[id] != 1 {
			t.Errorf("expected 1 invocation of %s, got %d", id, rep.Invocations[id])
		}
	}
}

func TestRun_JoinFiresOnce(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		action("a", "echo"),
		action("b", "echo"),
		{ID: "m", Kind: domain.NodeKindUtility, Subtype: "merge"},
	}
	edges := []domain.EdgeSpec{
		edge("t", "a"), edge("t", "b"),
		edge("a", "m"), edge("b", "m"),
	}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inputs := rec.inputs("m")
	if len(inputs) != 1 {
		t.Fatalf("merge should run exactly once, got %d", len(inputs))
	}

	want := []any{rep.Results["a"], rep.Results["b"]}
	if !reflect.DeepEqual(inputs[0], want) {
		t.Errorf("expected combined payload %v, got %v", want, inputs[0])
	}

	if len(Filter(rep.Trace, TraceJoinBuffered)) != 1 {
		t.Errorf("expected one join_buffered event")
	}
	if len(Filter(rep.Trace, TraceJoinReleased)) != 1 {
		t.Errorf("expected one join_released event")
	}
}

func TestRun_JoinFlattensListPayloads(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(rec)
	reg["list"] = &funcRunner{subtype: "list", fn: func(_ context.Context, node *domain.NodeSpec, _ any) (any, error) {
		return []any{node.ID + "1", node.ID + "2"}, nil
	}}
	e := New(Config{Registry: reg})

	nodes := []domain.NodeSpec{
		trigger("t"),
		action("a", "list"),
		action("b", "echo"),
		{ID: "m", Kind: domain.NodeKindUtility, Subtype: "same", Config: map[string]any{"mergeStrategy": "WaitForAll"}},
	}
	edges := []domain.EdgeSpec{edge("t", "a"), edge("t", "b"), edge("a", "m"), edge("b", "m")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := rec.inputs("m")
	if len(got) != 1 {
		t.Fatalf("expected one invocation, got %d", len(got))
	}
	want := []any{"a1", "a2", rep.Results["b"]}
	if !reflect.DeepEqual(got[0], want) {
		t.Errorf("expected %v, got %v", want, got[0])
	}
}

func TestRun_BranchExclusivity(t *testing.T) {
	tests := []struct {
		tag     any
		invoked string
		skipped string
	}{
		{tag: "true", invoked: "yes", skipped: "no"},
		{tag: "false", invoked: "no", skipped: "yes"},
		{tag: true, invoked: "yes", skipped: "no"},
		{tag: "FALSE", invoked: "no", skipped: "yes"},
	}

	for _, tt := range tests {
		t.Run(formatTag(tt.tag), func(t *testing.T) {
			rec := &recorder{}
			e := New(Config{Registry: newTestRegistry(rec)})

			nodes := []domain.NodeSpec{
				trigger("t"),
				{ID: "s", Kind: domain.NodeKindUtility, Subtype: "branch", Config: map[string]any{"tag": tt.tag}},
				action("yes", "echo"),
				action("no", "echo"),
			}
			edges := []domain.EdgeSpec{
				edge("t", "s"),
				labeled("s", "yes", "true"),
				labeled("s", "no", "false"),
			}

			rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if rep.Invocations[tt.invoked] != 1 {
				t.Errorf("%s should be invoked once, got %d", tt.invoked, rep.Invocations[tt.invoked])
			}
			if rep.Invocations[tt.skipped] != 0 {
				t.Errorf("%s should never be invoked", tt.skipped)
			}
			if _, ok := rep.Results[tt.skipped]; ok {
				t.Errorf("%s should have no result", tt.skipped)
			}
		})
	}
}

func TestRun_BranchUnmatchedIsTraced(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "s", Subtype: "branch", Config: map[string]any{"tag": "maybe"}},
		action("yes", "echo"),
		action("no", "echo"),
	}
	edges := []domain.EdgeSpec{
		edge("t", "s"),
		labeled("s", "yes", "true"),
		labeled("s", "no", "false"),
	}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "maybe" не совпадает с метками и не позиционный — уходит первому соседу
	if rep.Invocations["yes"] != 1 || rep.Invocations["no"] != 0 {
		t.Errorf("expected default route to first neighbor, got %v", rep.Invocations)
	}

	// "true" без совпадения и без соседей без метки отбрасывается
	nodes[1].Config["tag"] = "true"
	edges[1].Label = "ok"
	edges[2].Label = "ko"

	rep, err = e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Invocations["yes"] != 0 || rep.Invocations["no"] != 0 {
		t.Errorf("expected delivery to be dropped, got %v", rep.Invocations)
	}
	drops := Filter(rep.Trace, TraceBranchUnmatched)
	if len(drops) != 1 || drops[0].NodeID != "s" {
		t.Errorf("expected one branch_unmatched event for s, got %+v", drops)
	}
	if !drops[0].IsDrop() {
		t.Error("branch_unmatched should be a drop event")
	}
}

func TestRun_BranchWithoutEdgesIsTerminal(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "s", Subtype: "branch", Config: map[string]any{"tag": "x"}},
	}

	rep, err := e.Run(context.Background(), nodes, []domain.EdgeSpec{edge("t", "s")}, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rep.Results["s"]; !ok {
		t.Error("s should have a result")
	}
	if len(Filter(rep.Trace, TraceBranchUnmatched)) != 0 {
		t.Error("terminal branch node should not produce drop events")
	}
}

func TestRun_FanOutCardinality(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "f", Subtype: "split", Config: map[string]any{"items": []any{"x", "y"}}},
		action("n1", "same"),
		action("n2", "same"),
	}
	edges := []domain.EdgeSpec{edge("t", "f"), edge("f", "n1"), edge("f", "n2")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"n1", "n2"} {
		got := rec.inputs(id)
		if !reflect.DeepEqual(got, []any{"x", "y"}) {
			t.Errorf("%s: expected inputs [x y], got %v", id, got)
		}
		if rep.Invocations[id] != 2 {
			t.Errorf("%s: expected 2 invocations, got %d", id, rep.Invocations[id])
		}
	}

	// Results хранит последний выход
	if rep.Results["n1"] != "y" {
		t.Errorf("expected last write y, got %v", rep.Results["n1"])
	}
}

func TestRun_FanOutTakesPrecedenceOverBranch(t *testing.T) {
	rec := &recorder{}
	reg := newTestRegistry(rec)
	reg["both"] = &funcRunner{subtype: "both", fn: func(context.Context, *domain.NodeSpec, any) (any, error) {
		return map[string]any{domain.KeyFanOut: true, domain.KeyItems: []any{1, 2, 3}, domain.KeyBranch: "b"}, nil
	}}
	e := New(Config{Registry: reg})

	nodes := []domain.NodeSpec{trigger("t"), action("f", "both"), action("a", "same"), action("b", "same")}
	edges := []domain.EdgeSpec{edge("t", "f"), labeled("f", "a", "a"), labeled("f", "b", "b")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Invocations["a"] != 3 || rep.Invocations["b"] != 3 {
		t.Errorf("expected 3 invocations each, got %v", rep.Invocations)
	}
}

func TestRun_FanOutEmptyIsTraced(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "f", Subtype: "split", Config: map[string]any{"items": []any{}}},
		action("n", "same"),
	}
	edges := []domain.EdgeSpec{edge("t", "f"), edge("f", "n")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Invocations["n"] != 0 {
		t.Errorf("n should not run, got %d", rep.Invocations["n"])
	}
	if len(Filter(rep.Trace, TraceFanOutEmpty)) != 1 {
		t.Error("expected fanout_empty event")
	}
}

func TestRun_FanOutMarkerWithoutItemsPropagates(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "f", Subtype: "split", Config: map[string]any{"note": "no items"}},
		action("n", "same"),
	}
	edges := []domain.EdgeSpec{edge("t", "f"), edge("f", "n")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Invocations["n"] != 1 {
		t.Errorf("n should receive the output once, got %d", rep.Invocations["n"])
	}
	if len(Filter(rep.Trace, TraceFanOutEmpty)) != 0 {
		t.Error("no fanout_empty event expected without an items list")
	}
}

func TestRun_RetryBoundWithoutContinue(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "x", Subtype: "fail", ErrorPolicy: &domain.ErrorPolicy{MaxRetries: domain.IntPtr(2)}},
		action("after", "echo"),
	}
	edges := []domain.EdgeSpec{edge("t", "x"), edge("x", "after")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rep.Invocations["x"] != 3 {
		t.Errorf("expected 3 invocations, got %d", rep.Invocations["x"])
	}
	if !domain.IsErrorPayload(rep.Results["x"]) {
		t.Fatalf("expected error payload, got %v", rep.Results["x"])
	}
	if domain.ErrorMessage(rep.Results["x"]) != "boom" {
		t.Errorf("expected message boom, got %q", domain.ErrorMessage(rep.Results["x"]))
	}
	if rep.Invocations["after"] != 0 {
		t.Error("downstream of failed node must not run")
	}
	if len(Filter(rep.Trace, TraceNodeRetry)) != 2 {
		t.Errorf("expected 2 retry events, got %d", len(Filter(rep.Trace, TraceNodeRetry)))
	}
	if !reflect.DeepEqual(rep.Failed(), []string{"x"}) {
		t.Errorf("expected failed [x], got %v", rep.Failed())
	}
}

func TestRun_ContinueOnFailPropagates(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "x", Subtype: "fail", ErrorPolicy: &domain.ErrorPolicy{MaxRetries: domain.IntPtr(2), ContinueOnFail: true}},
		action("after", "same"),
	}
	edges := []domain.EdgeSpec{edge("t", "x"), edge("x", "after")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rep.Invocations["x"] != 3 {
		t.Errorf("expected 3 invocations, got %d", rep.Invocations["x"])
	}
	got := rec.inputs("after")
	if len(got) != 1 {
		t.Fatalf("after should run once, got %d", len(got))
	}
	if !domain.IsErrorPayload(got[0]) {
		t.Errorf("after should receive error payload, got %v", got[0])
	}
}

func TestRun_DefaultPropagation(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{trigger("t"), action("a", "echo"), action("b", "same"), action("c", "same")}
	edges := []domain.EdgeSpec{edge("t", "a"), edge("a", "b"), edge("a", "c")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"b", "c"} {
		got := rec.inputs(id)
		if len(got) != 1 || !reflect.DeepEqual(got[0], rep.Results["a"]) {
			t.Errorf("%s should receive a's output unchanged, got %v", id, got)
		}
	}
}

func TestRun_NoDedupWithoutJoin(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{trigger("t"), action("a", "echo"), action("b", "echo"), action("c", "same")}
	edges := []domain.EdgeSpec{edge("t", "a"), edge("t", "b"), edge("a", "c"), edge("b", "c")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Invocations["c"] != 2 {
		t.Errorf("c is fed by two producers and should run twice, got %d", rep.Invocations["c"])
	}
	if !reflect.DeepEqual(rep.Results["c"], rep.Results["b"]) {
		t.Errorf("results should keep the last output")
	}
}

func TestRun_FailureIsLocalToBranch(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "bad", Subtype: "fail", ErrorPolicy: &domain.ErrorPolicy{MaxRetries: domain.IntPtr(0)}},
		action("good", "echo"),
		action("next", "same"),
	}
	edges := []domain.EdgeSpec{edge("t", "bad"), edge("t", "good"), edge("good", "next")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Invocations["next"] != 1 {
		t.Error("sibling branch should continue after failure")
	}
	if !domain.IsErrorPayload(rep.Results["bad"]) {
		t.Error("failed node should carry error payload")
	}
}

func TestRun_JoinIncompleteIsTraced(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{
		trigger("t"),
		action("a", "echo"),
		{ID: "b", Subtype: "fail", ErrorPolicy: &domain.ErrorPolicy{MaxRetries: domain.IntPtr(0)}},
		{ID: "m", Subtype: "merge"},
	}
	edges := []domain.EdgeSpec{edge("t", "a"), edge("t", "b"), edge("a", "m"), edge("b", "m")}

	rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Invocations["m"] != 0 {
		t.Error("join should not release without all sources")
	}
	incomplete := Filter(rep.Trace, TraceJoinIncomplete)
	if len(incomplete) != 1 || incomplete[0].NodeID != "m" {
		t.Errorf("expected join_incomplete for m, got %+v", incomplete)
	}
}

func TestRun_JoinModes(t *testing.T) {
	nodes := []domain.NodeSpec{
		trigger("t"),
		{ID: "f", Subtype: "split", Config: map[string]any{"items": []any{1, 2}}},
		action("b", "echo"),
		{ID: "m", Subtype: "merge"},
	}
	edges := []domain.EdgeSpec{edge("t", "f"), edge("t", "b"), edge("f", "m"), edge("b", "m")}

	t.Run("distinct sources waits for every producer", func(t *testing.T) {
		rec := &recorder{}
		e := New(Config{Registry: newTestRegistry(rec)})

		rep, err := e.Run(context.Background(), nodes, edges, fastOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := rec.inputs("m")
		if len(got) != 1 {
			t.Fatalf("expected one release, got %d", len(got))
		}
		want := []any{1, 2, rep.Results["b"]}
		if !reflect.DeepEqual(got[0], want) {
			t.Errorf("expected %v, got %v", want, got[0])
		}
	})

	t.Run("in-degree releases on count", func(t *testing.T) {
		rec := &recorder{}
		e := New(Config{Registry: newTestRegistry(rec)})

		opts := fastOptions()
		opts.JoinMode = JoinInDegree

		rep, err := e.Run(context.Background(), nodes, edges, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// f стоит в очереди раньше b: два элемента f освобождают буфер,
		// а доставка от b остаётся в буфере до конца run'а.
		got := rec.inputs("m")
		if len(got) != 1 {
			t.Fatalf("expected one release, got %d", len(got))
		}
		if !reflect.DeepEqual(got[0], []any{1, 2}) {
			t.Errorf("expected premature release [1 2], got %v", got[0])
		}
		if len(Filter(rep.Trace, TraceJoinIncomplete)) != 1 {
			t.Error("expected leftover buffer to be reported")
		}
	})
}

func TestRun_PassThroughForUnknownSubtype(t *testing.T) {
	e := New(Config{Registry: testRegistry{}})

	nodes := []domain.NodeSpec{
		{ID: "t", Kind: domain.NodeKindTrigger, Subtype: "mystery", Config: map[string]any{"k": "v"}},
	}

	opts := fastOptions()
	opts.InitialInput = "hello"

	rep, err := e.Run(context.Background(), nodes, nil, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"nodeId":  "t",
		"subtype": "mystery",
		"input":   "hello",
		"config":  map[string]any{"k": "v"},
	}
	if !reflect.DeepEqual(rep.Results["t"], want) {
		t.Errorf("expected %v, got %v", want, rep.Results["t"])
	}
}

func TestRun_StartNodeSelection(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	nodes := []domain.NodeSpec{action("a", "echo"), action("b", "echo")}

	t.Run("no triggers", func(t *testing.T) {
		rep, err := e.Run(context.Background(), nodes, nil, fastOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rep.Results) != 0 {
			t.Errorf("expected empty results, got %v", rep.Results)
		}
		if len(Filter(rep.Trace, TraceNoStartNodes)) != 1 {
			t.Error("expected no_start_nodes event")
		}
	})

	t.Run("explicit startFrom", func(t *testing.T) {
		opts := fastOptions()
		opts.StartFrom = []string{"b"}
		rep, err := e.Run(context.Background(), nodes, nil, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := rep.Results["b"]; !ok || len(rep.Results) != 1 {
			t.Errorf("expected only b to run, got %v", rep.Results)
		}
		in := rep.Results["b"].(map[string]any)["in"]
		if !reflect.DeepEqual(in, map[string]any{}) {
			t.Errorf("expected default input {}, got %v", in)
		}
	})

	t.Run("unknown startFrom", func(t *testing.T) {
		opts := fastOptions()
		opts.StartFrom = []string{"ghost"}
		rep, err := e.Run(context.Background(), nodes, nil, opts)
		if !errors.Is(err, ErrUnknownStartNode) {
			t.Fatalf("expected ErrUnknownStartNode, got %v", err)
		}
		if rep != nil {
			t.Error("report should be nil on validation error")
		}
	})
}

func TestRun_InvalidGraph(t *testing.T) {
	e := New(Config{})

	nodes := []domain.NodeSpec{action("a", "echo"), action("b", "echo")}
	edges := []domain.EdgeSpec{edge("a", "b"), edge("b", "a")}

	_, err := e.Run(context.Background(), nodes, edges, fastOptions())
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	reg := newTestRegistry(rec)
	reg["cancel"] = &funcRunner{subtype: "cancel", fn: func(_ context.Context, node *domain.NodeSpec, input any) (any, error) {
		cancel()
		return input, nil
	}}
	e := New(Config{Registry: reg})

	nodes := []domain.NodeSpec{trigger("t"), action("c", "cancel"), action("after", "echo")}
	edges := []domain.EdgeSpec{edge("t", "c"), edge("c", "after")}

	rep, err := e.Run(ctx, nodes, edges, fastOptions())
	if !errors.Is(err, ErrRunCancelled) {
		t.Fatalf("expected ErrRunCancelled, got %v", err)
	}
	if rep == nil {
		t.Fatal("expected partial report")
	}
	if _, ok := rep.Results["c"]; !ok {
		t.Error("completed node should be in partial results")
	}
	if rep.Invocations["after"] != 0 {
		t.Error("queued node should be dropped after cancellation")
	}
	cancelled := Filter(rep.Trace, TraceCancelled)
	if len(cancelled) != 1 || cancelled[0].NodeID != "after" {
		t.Errorf("expected cancelled event for after, got %+v", cancelled)
	}
}

func TestRun_OnTrace(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	var kinds []TraceKind
	opts := fastOptions()
	opts.OnTrace = func(ev TraceEvent) {
		kinds = append(kinds, ev.Kind)
	}

	rep, err := e.Run(context.Background(), []domain.NodeSpec{trigger("t")}, nil, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []TraceKind{TraceNodeStarted, TraceNodeSucceeded}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("expected %v, got %v", want, kinds)
	}
	if len(rep.Trace) != len(kinds) {
		t.Errorf("report trace and callback should match")
	}
	if rep.RunID == "" {
		t.Error("run id should be set")
	}
}

func TestEngine_RunWorkflowUsesSettings(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	wf := &domain.Workflow{
		Name:  "settings",
		Nodes: []domain.NodeSpec{action("a", "same"), action("b", "same")},
		Edges: []domain.EdgeSpec{edge("a", "b")},
		Settings: &domain.WorkflowSettings{
			InitialInput: map[string]any{"from": "settings"},
			StartFrom:    []string{"a"},
		},
	}

	rep, err := e.RunWorkflow(context.Background(), wf, fastOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(rep.Results["b"], map[string]any{"from": "settings"}) {
		t.Errorf("unexpected result: %v", rep.Results["b"])
	}

	// override побеждает настройки
	override := fastOptions()
	override.InitialInput = "override"
	rep, err = e.RunWorkflow(context.Background(), wf, override)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Results["b"] != "override" {
		t.Errorf("expected override input, got %v", rep.Results["b"])
	}
}

func TestRunWorkflow(t *testing.T) {
	rec := &recorder{}

	results, err := RunWorkflow(context.Background(), newTestRegistry(rec),
		[]domain.NodeSpec{trigger("t"), action("a", "echo")},
		[]domain.EdgeSpec{edge("t", "a")},
		fastOptions(),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	_, err = RunWorkflow(context.Background(), nil, nil, nil, Options{})
	if !errors.Is(err, ErrEmptyNodes) {
		t.Errorf("expected ErrEmptyNodes, got %v", err)
	}
}

func TestRun_AttemptTimeout(t *testing.T) {
	reg := testRegistry{
		"slow": &funcRunner{subtype: "slow", fn: func(ctx context.Context, _ *domain.NodeSpec, _ any) (any, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
				return "late", nil
			}
		}},
	}
	e := New(Config{Registry: reg})

	nodes := []domain.NodeSpec{
		{ID: "s", Kind: domain.NodeKindTrigger, Subtype: "slow", ErrorPolicy: &domain.ErrorPolicy{MaxRetries: domain.IntPtr(0)}},
	}
	opts := fastOptions()
	opts.Timeout = 10 * time.Millisecond

	rep, err := e.Run(context.Background(), nodes, nil, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := domain.ErrorMessage(rep.Results["s"])
	if !strings.Contains(msg, "deadline exceeded") {
		t.Errorf("expected deadline error, got %q", msg)
	}
}

func TestEngine_Serve(t *testing.T) {
	rec := &recorder{}
	e := New(Config{Registry: newTestRegistry(rec)})

	wf := &domain.Workflow{
		Nodes: []domain.NodeSpec{trigger("t"), action("a", "echo")},
		Edges: []domain.EdgeSpec{edge("t", "a")},
	}
	req := NewExecutionRequest(wf, Options{InitialInput: "in", RetryDelay: time.Millisecond})

	resp, err := e.Serve(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RunID == "" || resp.Error != "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Results["t"] != "in" {
		t.Errorf("expected trigger result 'in', got %v", resp.Results["t"])
	}

	// невалидный граф — ошибка в ответе и в err
	req.Edges = append(req.Edges, edge("a", "t"))
	resp, err = e.Serve(context.Background(), req)
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if resp.Error == "" || len(resp.Results) != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}

	if _, err := e.Serve(context.Background(), nil); err == nil {
		t.Error("expected error for nil request")
	}
}
