package engine

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSelectBranch(t *testing.T) {
	labeled := []Link{
		{Target: "yes", Label: "true"},
		{Target: "no", Label: "False"},
		{Target: "also", Label: "TRUE"},
	}
	unlabeled := []Link{
		{Target: "first"},
		{Target: "second"},
		{Target: "third"},
	}
	mixed := []Link{
		{Target: "labeled", Label: "x"},
		{Target: "u1"},
		{Target: "u2"},
	}

	tests := []struct {
		name  string
		links []Link
		tag   string
		want  []string
	}{
		{name: "label match routes to every matching edge", links: labeled, tag: "true", want: []string{"yes", "also"}},
		{name: "label match is case-insensitive", links: labeled, tag: "FALSE", want: []string{"no"}},
		{name: "true falls back to first unlabeled", links: unlabeled, tag: "true", want: []string{"first"}},
		{name: "false falls back to second unlabeled", links: unlabeled, tag: "false", want: []string{"second"}},
		{name: "unlabeled fallback skips labeled edges", links: mixed, tag: "false", want: []string{"u2"}},
		{name: "numeric index", links: unlabeled, tag: "2", want: []string{"third"}},
		{name: "numeric index counts all links", links: mixed, tag: "0", want: []string{"labeled"}},
		{name: "numeric index out of range", links: unlabeled, tag: "7", want: nil},
		{name: "negative number is not an index", links: unlabeled, tag: "-1", want: []string{"first"}},
		{name: "unknown tag goes to first neighbor", links: mixed, tag: "other", want: []string{"labeled"}},
		{name: "false without second unlabeled is dropped", links: []Link{{Target: "only"}}, tag: "false", want: nil},
		{name: "no links", links: nil, tag: "true", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectBranch(tt.links, tt.tag)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFormatTag(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: "case_a", want: "case_a"},
		{in: true, want: "true"},
		{in: false, want: "false"},
		{in: 2, want: "2"},
		{in: int64(3), want: "3"},
		{in: uint64(4), want: "4"},
		{in: float64(1), want: "1"},
		{in: 1.5, want: "1.5"},
		{in: json.Number("5"), want: "5"},
	}

	for _, tt := range tests {
		if got := formatTag(tt.in); got != tt.want {
			t.Errorf("formatTag(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestBranchTag(t *testing.T) {
	if _, ok := branchTag("plain"); ok {
		t.Error("non-map output has no tag")
	}
	if _, ok := branchTag(map[string]any{"_branch": nil}); ok {
		t.Error("nil tag is not a tag")
	}
	tag, ok := branchTag(map[string]any{"_branch": 1.0})
	if !ok || tag != "1" {
		t.Errorf("expected tag 1, got %q", tag)
	}
}

func TestFanOutItems(t *testing.T) {
	items, ok := fanOutItems(map[string]any{"_fanOut": true, "items": []string{"a", "b"}})
	if !ok || !reflect.DeepEqual(items, []any{"a", "b"}) {
		t.Errorf("unexpected items %v", items)
	}

	if _, ok := fanOutItems(map[string]any{"items": []any{1}}); ok {
		t.Error("items without marker is not a fan-out")
	}

	if _, ok := fanOutItems(map[string]any{"_fanOut": true}); ok {
		t.Error("marker without items is not a fan-out")
	}

	if _, ok := fanOutItems(map[string]any{"_fanOut": true, "items": "abc"}); ok {
		t.Error("marker with non-list items is not a fan-out")
	}

	items, ok = fanOutItems(map[string]any{"_fanOut": true, "items": []any{}})
	if !ok || len(items) != 0 {
		t.Error("marker with an empty list is an empty fan-out")
	}

	items, ok = fanOutItems(map[string]any{"_fanOut": true, "items": []int{1, 2}})
	if !ok || !reflect.DeepEqual(items, []any{1, 2}) {
		t.Errorf("typed slices should be converted, got %v", items)
	}
}

func TestFlatten(t *testing.T) {
	got := flatten([]any{
		map[string]any{"a": 1},
		[]any{"x", []any{"nested"}},
		"y",
	})
	want := []any{map[string]any{"a": 1}, "x", []any{"nested"}, "y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
