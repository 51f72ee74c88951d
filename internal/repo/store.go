package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// RunStore — хранилище истории runs.
//
// Реализации: RunRepo (PostgreSQL) и MemoryRunRepo.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	List(ctx context.Context, filter RunFilter) ([]domain.Run, error)
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	WorkflowName string
	Status       domain.RunStatus
	Limit        int
	Offset       int
}

// DefaultListLimit — лимит по умолчанию для List.
const DefaultListLimit = 50

// normalize подставляет значения по умолчанию.
func (f RunFilter) normalize() RunFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

var (
	_ RunStore = (*RunRepo)(nil)
	_ RunStore = (*MemoryRunRepo)(nil)
)
