package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MeghVyas3132/REX/internal/domain"
)

func TestMemoryRunRepo_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRunRepo()

	run := domain.NewRun("orders", map[string]any{"id": 1})
	if err := r.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, run); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second Create: expected ErrAlreadyExists, got %v", err)
	}

	run.MarkRunning()
	run.Complete(domain.RunModeLocal, map[string]any{"a": 1})
	if err := r.Update(ctx, run); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := r.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.RunStatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", got.Status)
	}
	if got.Mode != domain.RunModeLocal {
		t.Errorf("mode = %s, want local", got.Mode)
	}

	if _, err := r.GetByID(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := r.Update(ctx, run); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Update of finished run: expected ErrInvalidState, got %v", err)
	}
	if err := r.Update(ctx, domain.NewRun("x", nil)); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update of unknown run: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRunRepo_List(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRunRepo()

	base := time.Now()
	for i, name := range []string{"a", "b", "a", "a"} {
		run := domain.NewRun(name, nil)
		run.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if i == 3 {
			run.MarkFailed("boom")
		}
		if err := r.Create(ctx, run); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter RunFilter
		want   int
	}{
		{"all", RunFilter{}, 4},
		{"by workflow", RunFilter{WorkflowName: "a"}, 3},
		{"by status", RunFilter{Status: domain.RunStatusFailed}, 1},
		{"limit", RunFilter{Limit: 2}, 2},
		{"offset", RunFilter{Offset: 3}, 1},
		{"offset past end", RunFilter{Offset: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := r.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(runs) != tt.want {
				t.Errorf("got %d runs, want %d", len(runs), tt.want)
			}
		})
	}

	runs, _ := r.List(ctx, RunFilter{})
	for i := 1; i < len(runs); i++ {
		if runs[i].CreatedAt.After(runs[i-1].CreatedAt) {
			t.Fatal("runs should be ordered newest first")
		}
	}
}

func TestMarshalNullable(t *testing.T) {
	var nilMap map[string]any
	if b, _ := marshalNullable(nilMap); b != nil {
		t.Errorf("nil map should stay NULL, got %s", b)
	}
	if b, _ := marshalNullable(nil); b != nil {
		t.Errorf("nil should stay NULL, got %s", b)
	}
	b, err := marshalNullable(map[string]any{"a": 1})
	if err != nil || string(b) != `{"a":1}` {
		t.Errorf("got %s, %v", b, err)
	}
}
