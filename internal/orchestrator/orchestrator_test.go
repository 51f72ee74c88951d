package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/nodes"
	"github.com/MeghVyas3132/REX/internal/repo"
)

type failRunner struct{}

func (failRunner) Subtype() string { return "fail" }

func (failRunner) Execute(context.Context, *domain.NodeSpec, any) (any, error) {
	return nil, errors.New("boom")
}

type fakeDelegate struct {
	results engine.Results
	err     error
	calls   int
	last    *engine.ExecutionRequest
}

func (d *fakeDelegate) Name() string { return "fake" }

func (d *fakeDelegate) Execute(_ context.Context, req *engine.ExecutionRequest) (engine.Results, error) {
	d.calls++
	d.last = req
	return d.results, d.err
}

func newTestOrchestrator(delegate engine.Delegate) (*Orchestrator, *repo.MemoryRunRepo) {
	registry := nodes.DefaultRegistry()
	registry.Register(failRunner{})

	store := repo.NewMemoryRunRepo()
	o := New(Config{
		Engine:   engine.New(engine.Config{Registry: registry}),
		Delegate: delegate,
		Store:    store,
	})
	return o, store
}

func simpleWorkflow() *domain.Workflow {
	return &domain.Workflow{
		Name: "greet",
		Nodes: []domain.NodeSpec{
			{ID: "start", Kind: domain.NodeKindTrigger, Subtype: "manual"},
			{ID: "hello", Subtype: "transform", Config: map[string]any{
				"mappings": map[string]any{"msg": "hi {{ .Input.name }}"},
			}},
		},
		Edges: []domain.EdgeSpec{{Source: "start", Target: "hello"}},
		Settings: &domain.WorkflowSettings{
			InitialInput: map[string]any{"name": "rex"},
		},
	}
}

func TestRunWorkflow_Local(t *testing.T) {
	o, store := newTestOrchestrator(nil)

	run, report, err := o.RunWorkflow(context.Background(), simpleWorkflow(), engine.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Status != domain.RunStatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", run.Status)
	}
	if run.Mode != domain.RunModeLocal {
		t.Errorf("mode = %s, want local", run.Mode)
	}
	if report.RunID != run.ID.String() {
		t.Errorf("report run id %s != run id %s", report.RunID, run.ID)
	}

	hello, ok := run.Results["hello"].(map[string]any)
	if !ok || hello["msg"] != "hi rex" {
		t.Errorf("hello = %v", run.Results["hello"])
	}

	stored, err := store.GetByID(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	if stored.Status != domain.RunStatusSucceeded {
		t.Errorf("stored status = %s", stored.Status)
	}
	if stored.WorkflowName != "greet" {
		t.Errorf("stored workflow = %s", stored.WorkflowName)
	}
}

func TestRunWorkflow_OverrideInput(t *testing.T) {
	o, _ := newTestOrchestrator(nil)

	run, _, err := o.RunWorkflow(context.Background(), simpleWorkflow(), engine.Options{
		InitialInput: map[string]any{"name": "bob"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := run.Results["hello"].(map[string]any)["msg"]; got != "hi bob" {
		t.Errorf("msg = %v, want hi bob", got)
	}
}

func TestRunWorkflow_Remote(t *testing.T) {
	delegate := &fakeDelegate{results: engine.Results{"start": map[string]any{}, "hello": "remote"}}
	o, _ := newTestOrchestrator(delegate)

	run, report, err := o.RunWorkflow(context.Background(), simpleWorkflow(), engine.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if delegate.calls != 1 {
		t.Errorf("delegate calls = %d, want 1", delegate.calls)
	}
	if run.Mode != domain.RunModeRemote {
		t.Errorf("mode = %s, want remote", run.Mode)
	}
	if run.Results["hello"] != "remote" {
		t.Errorf("results should come from the delegate: %v", run.Results)
	}
	if len(report.Trace) != 0 {
		t.Error("local engine should not run")
	}

	in, ok := delegate.last.InitialInput.(map[string]any)
	if !ok || in["name"] != "rex" {
		t.Errorf("delegate request input = %v", delegate.last.InitialInput)
	}
	if len(delegate.last.Nodes) != 2 || len(delegate.last.Edges) != 1 {
		t.Errorf("delegate request graph = %d nodes, %d edges", len(delegate.last.Nodes), len(delegate.last.Edges))
	}
}

func TestRunWorkflow_DelegateFallback(t *testing.T) {
	delegate := &fakeDelegate{err: errors.New("connection refused")}
	o, _ := newTestOrchestrator(delegate)

	run, _, err := o.RunWorkflow(context.Background(), simpleWorkflow(), engine.Options{})
	if err != nil {
		t.Fatalf("fallback should hide the delegate error, got %v", err)
	}

	if delegate.calls != 1 {
		t.Errorf("delegate calls = %d, want 1", delegate.calls)
	}
	if run.Mode != domain.RunModeLocal {
		t.Errorf("mode = %s, want local", run.Mode)
	}
	if run.Status != domain.RunStatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", run.Status)
	}
}

func TestRunWorkflow_Partial(t *testing.T) {
	o, _ := newTestOrchestrator(nil)

	wf := &domain.Workflow{
		Name: "partial",
		Nodes: []domain.NodeSpec{
			{ID: "start", Kind: domain.NodeKindTrigger, Subtype: "manual"},
			{ID: "ok", Subtype: "transform", Config: map[string]any{"mappings": map[string]any{"a": "1"}}},
			{ID: "bad", Subtype: "fail", ErrorPolicy: &domain.ErrorPolicy{MaxRetries: domain.IntPtr(0)}},
		},
		Edges: []domain.EdgeSpec{
			{Source: "start", Target: "ok"},
			{Source: "start", Target: "bad"},
		},
	}

	run, _, err := o.RunWorkflow(context.Background(), wf, engine.Options{})
	if err != nil {
		t.Fatalf("node failures are not run errors, got %v", err)
	}
	if run.Status != domain.RunStatusPartial {
		t.Errorf("status = %s, want PARTIAL", run.Status)
	}
	if len(run.FailedNodes) != 1 || run.FailedNodes[0] != "bad" {
		t.Errorf("failed nodes = %v", run.FailedNodes)
	}
}

func TestRunWorkflow_NodeConfigErrorStaysOnBranch(t *testing.T) {
	tests := []struct {
		name           string
		continueOnFail bool
		wantNext       bool
	}{
		{name: "branch halts", continueOnFail: false, wantNext: false},
		{name: "continue on fail", continueOnFail: true, wantNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newTestOrchestrator(nil)

			wf := &domain.Workflow{
				Name: "misconfigured",
				Nodes: []domain.NodeSpec{
					{ID: "start", Kind: domain.NodeKindTrigger, Subtype: "manual"},
					{ID: "ok", Subtype: "set", Config: map[string]any{"values": map[string]any{"x": 1}}},
					{ID: "fetch", Subtype: "http", Config: map[string]any{"method": "GET"},
						ErrorPolicy: &domain.ErrorPolicy{ContinueOnFail: tt.continueOnFail}},
					{ID: "after", Subtype: "set", Config: map[string]any{"values": map[string]any{"y": 2}}},
				},
				Edges: []domain.EdgeSpec{
					{Source: "start", Target: "ok"},
					{Source: "start", Target: "fetch"},
					{Source: "fetch", Target: "after"},
				},
			}

			run, report, err := o.RunWorkflow(context.Background(), wf, engine.Options{})
			if err != nil {
				t.Fatalf("node config errors are not run errors, got %v", err)
			}
			if report == nil {
				t.Fatal("expected a report")
			}
			if run.Status != domain.RunStatusPartial {
				t.Errorf("status = %s, want PARTIAL", run.Status)
			}
			if _, ok := run.Results["ok"]; !ok {
				t.Errorf("sibling result missing: %v", run.Results)
			}
			if !domain.IsErrorPayload(run.Results["fetch"]) {
				t.Errorf("fetch = %v, want error payload", run.Results["fetch"])
			}
			if _, ok := run.Results["after"]; ok != tt.wantNext {
				t.Errorf("after reached = %v, want %v", ok, tt.wantNext)
			}
		})
	}
}

func TestRunWorkflow_ValidationError(t *testing.T) {
	o, store := newTestOrchestrator(nil)

	wf := &domain.Workflow{
		Name:  "broken",
		Nodes: []domain.NodeSpec{{ID: "a", Kind: domain.NodeKindTrigger, Subtype: "manual"}},
		Edges: []domain.EdgeSpec{{Source: "a", Target: "missing"}},
	}

	run, report, err := o.RunWorkflow(context.Background(), wf, engine.Options{})
	if !engine.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if report != nil {
		t.Error("report should be nil for a rejected workflow")
	}
	if run.Status != domain.RunStatusFailed || run.Error == "" {
		t.Errorf("run = %s / %q, want FAILED with error", run.Status, run.Error)
	}

	stored, err := store.GetByID(context.Background(), run.ID)
	if err != nil || stored.Status != domain.RunStatusFailed {
		t.Errorf("stored run = %v, %v", stored, err)
	}
}

func TestRunWorkflow_Cancelled(t *testing.T) {
	o, _ := newTestOrchestrator(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, report, err := o.RunWorkflow(ctx, simpleWorkflow(), engine.Options{})
	if !errors.Is(err, engine.ErrRunCancelled) {
		t.Fatalf("expected ErrRunCancelled, got %v", err)
	}
	if run.Status != domain.RunStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", run.Status)
	}
	if report == nil {
		t.Error("cancelled run should still return a partial report")
	}
}

func TestRunWorkflow_NilAndStopped(t *testing.T) {
	o, _ := newTestOrchestrator(nil)

	if _, _, err := o.RunWorkflow(context.Background(), nil, engine.Options{}); !errors.Is(err, ErrNilWorkflow) {
		t.Errorf("expected ErrNilWorkflow, got %v", err)
	}

	o.Stop()
	if !o.IsStopped() {
		t.Error("should be stopped")
	}
	if _, _, err := o.RunWorkflow(context.Background(), simpleWorkflow(), engine.Options{}); !errors.Is(err, ErrOrchestratorStopped) {
		t.Errorf("expected ErrOrchestratorStopped, got %v", err)
	}
}

func TestRunWorkflow_ConcurrentRunsAreIsolated(t *testing.T) {
	o, store := newTestOrchestrator(nil)

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, _, err := o.RunWorkflow(context.Background(), simpleWorkflow(), engine.Options{})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("run %d: %v", i, err)
		}
	}

	runs, _ := store.List(context.Background(), repo.RunFilter{WorkflowName: "greet"})
	if len(runs) != n {
		t.Errorf("stored %d runs, want %d", len(runs), n)
	}
	for _, r := range runs {
		if r.Status != domain.RunStatusSucceeded {
			t.Errorf("run %s status = %s", r.ID, r.Status)
		}
	}
}
