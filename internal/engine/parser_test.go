package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeghVyas3132/REX/internal/domain"
)

func TestValidate_EmptyNodes(t *testing.T) {
	tests := []struct {
		name string
		wf   *domain.Workflow
	}{
		{
			name: "nil workflow",
			wf:   nil,
		},
		{
			name: "empty nodes",
			wf:   &domain.Workflow{Nodes: []domain.NodeSpec{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.wf)
			if !errors.Is(err, ErrEmptyNodes) {
				t.Errorf("expected ErrEmptyNodes, got %v", err)
			}
		})
	}
}

func TestValidate_NodeErrors(t *testing.T) {
	tests := []struct {
		name string
		node domain.NodeSpec
		want error
	}{
		{name: "empty id", node: domain.NodeSpec{Subtype: "http"}, want: ErrEmptyNodeID},
		{name: "unknown kind", node: domain.NodeSpec{ID: "a", Kind: "robot", Subtype: "http"}, want: ErrUnknownNodeKind},
		{name: "no config and no subtype", node: domain.NodeSpec{ID: "a", Kind: domain.NodeKindAction}, want: ErrUnusableConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&domain.Workflow{Nodes: []domain.NodeSpec{tt.node}})
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !errors.Is(vErr.Err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, vErr.Err)
			}
		})
	}
}

func TestValidate_GraphErrors(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.NodeSpec{
			{ID: "a", Subtype: "http"},
			{ID: "b", Subtype: "http"},
		},
		Edges: []domain.EdgeSpec{{Source: "a", Target: "c"}},
	}
	if err := Validate(wf); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}

	wf.Edges = []domain.EdgeSpec{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}}
	if err := Validate(wf); !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}

	wf.Edges = nil
	wf.Settings = &domain.WorkflowSettings{StartFrom: []string{"zzz"}}
	if err := Validate(wf); !errors.Is(err, ErrUnknownStartNode) {
		t.Errorf("expected ErrUnknownStartNode, got %v", err)
	}
}

func TestValidateGraph_IgnoresNodeConfig(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.NodeSpec{
			{ID: "a", Kind: domain.NodeKindTrigger, Subtype: "manual"},
			{ID: "b", Kind: "robot", Subtype: "http"},
			{ID: "c", Kind: domain.NodeKindAction},
		},
		Edges: []domain.EdgeSpec{{Source: "a", Target: "b"}, {Source: "a", Target: "c"}},
	}
	if err := ValidateGraph(wf); err != nil {
		t.Errorf("node-level problems must not reject the graph: %v", err)
	}

	wf.Edges = append(wf.Edges, domain.EdgeSpec{Source: "b", Target: "a"})
	if err := ValidateGraph(wf); !errors.Is(err, ErrCyclicDependency) {
		t.Errorf("expected ErrCyclicDependency, got %v", err)
	}

	if err := ValidateGraph(&domain.Workflow{}); !errors.Is(err, ErrEmptyNodes) {
		t.Errorf("expected ErrEmptyNodes, got %v", err)
	}
}

func TestValidate_ValidWorkflow(t *testing.T) {
	wf := &domain.Workflow{
		Name: "valid",
		Nodes: []domain.NodeSpec{
			{ID: "start", Kind: domain.NodeKindTrigger, Subtype: "manual"},
			{ID: "check", Kind: domain.NodeKindUtility, Subtype: "condition"},
			{ID: "yes", Kind: domain.NodeKindAction, Subtype: "http"},
			{ID: "no", Kind: domain.NodeKindAction, Config: map[string]any{"x": 1}},
		},
		Edges: []domain.EdgeSpec{
			{Source: "start", Target: "check"},
			{Source: "check", Target: "yes", Label: "true"},
			{Source: "check", Target: "no", Label: "false"},
		},
	}

	if err := Validate(wf); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateWithRegistry(t *testing.T) {
	runner := &schemaRunner{funcRunner{
		subtype: "api",
		schema:  `{"type":"object","required":["url"]}`,
	}}
	reg := testRegistry{"api": runner}

	wf := &domain.Workflow{Nodes: []domain.NodeSpec{{ID: "a", Subtype: "api"}}}
	if err := ValidateWithRegistry(wf, reg); !errors.Is(err, ErrConfigSchema) {
		t.Errorf("expected ErrConfigSchema, got %v", err)
	}

	wf.Nodes[0].Config = map[string]any{"url": "http://x"}
	if err := ValidateWithRegistry(wf, reg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseWorkflow_JSON(t *testing.T) {
	data := []byte(`{
		"name": "demo",
		"nodes": [
			{"id": "t", "kind": "trigger", "subtype": "manual"},
			{"id": "w", "kind": "utility", "subtype": "wait", "config": {"duration_ms": 5},
			 "errorPolicy": {"maxRetries": 1, "continueOnFail": true}}
		],
		"edges": [{"id": "e1", "source": "t", "target": "w", "label": "true"}],
		"settings": {"initialInput": {"a": 1}, "retries": 2, "timeoutSec": 30}
	}`)

	wf, err := ParseWorkflow(data, FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wf.Name != "demo" || len(wf.Nodes) != 2 || len(wf.Edges) != 1 {
		t.Fatalf("unexpected workflow: %+v", wf)
	}
	if wf.Nodes[1].ErrorPolicy == nil || *wf.Nodes[1].ErrorPolicy.MaxRetries != 1 || !wf.Nodes[1].ErrorPolicy.ContinueOnFail {
		t.Errorf("unexpected error policy: %+v", wf.Nodes[1].ErrorPolicy)
	}
	if wf.Edges[0].Label != "true" {
		t.Errorf("expected label true, got %q", wf.Edges[0].Label)
	}

	opts := OptionsFromSettings(wf.Settings)
	if *opts.Retries != 2 || opts.Timeout.Seconds() != 30 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestParseWorkflow_YAML(t *testing.T) {
	data := []byte(`
name: yaml-demo
nodes:
  - id: start
    kind: trigger
    subtype: manual
  - id: split
    kind: utility
    subtype: split
    config:
      path: $.users
  - id: merge
    kind: utility
    subtype: merge
edges:
  - source: start
    target: split
  - source: split
    target: merge
settings:
  startFrom: [start]
`)

	// Формат определяется автоматически
	wf, err := ParseWorkflow(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wf.Name != "yaml-demo" || len(wf.Nodes) != 3 {
		t.Fatalf("unexpected workflow: %+v", wf)
	}
	if wf.Nodes[1].Config["path"] != "$.users" {
		t.Errorf("expected config path, got %v", wf.Nodes[1].Config["path"])
	}
	if !wf.Nodes[2].IsJoin() {
		t.Error("merge node should be a join node")
	}
	if err := Validate(wf); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestParseWorkflow_Errors(t *testing.T) {
	if _, err := ParseWorkflow([]byte(`{"nodes": [`), FormatJSON); err == nil {
		t.Error("expected json error")
	}
	if _, err := ParseWorkflow([]byte(`nodes: [`), FormatYAML); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := ParseWorkflow([]byte(`{}`), "toml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadWorkflowFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "hello.yaml")
	content := "nodes:\n  - id: t\n    kind: trigger\n    subtype: manual\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	wf, err := LoadWorkflowFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wf.Name != "hello" {
		t.Errorf("expected name from file, got %q", wf.Name)
	}

	if _, err := LoadWorkflowFile(filepath.Join(dir, "x.txt")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := LoadWorkflowFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsValidNodeKind(t *testing.T) {
	for _, k := range []domain.NodeKind{domain.NodeKindTrigger, domain.NodeKindAction, domain.NodeKindAI, domain.NodeKindUtility} {
		if !IsValidNodeKind(k) {
			t.Errorf("%s should be valid", k)
		}
	}
	if IsValidNodeKind("robot") {
		t.Error("robot should not be valid")
	}
}
