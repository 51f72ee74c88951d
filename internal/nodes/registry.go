package nodes

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
)

// Registry — реестр Runner'ов по subtype.
//
// Реализует engine.RunnerRegistry. Заполняется при старте процесса,
// дальше только читается. Потокобезопасен.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]engine.Runner
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]engine.Runner),
	}
}

// DefaultRegistry создаёт реестр со всеми встроенными Runner'ами.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Триггеры
	r.Register(NewTriggerRunner(SubtypeManual))
	r.Register(NewTriggerRunner(SubtypeWebhook))
	r.Register(NewTriggerRunner(SubtypeSchedule))

	// Управление потоком
	r.Register(NewConditionRunner())
	r.Register(NewSwitchRunner())
	r.Register(NewSplitRunner())
	r.Register(NewMergeRunner())
	r.Register(NewWaitRunner())

	// Данные
	r.Register(NewSetRunner(SubtypeSet))
	r.Register(NewSetRunner(SubtypeTransform))
	r.Register(NewJSONPathRunner())
	r.Register(NewCodeRunner())

	// Интеграции
	r.Register(NewHTTPRunner())

	return r
}

// Register регистрирует Runner.
// Если Runner с таким subtype уже есть, он будет перезаписан.
func (r *Registry) Register(runner engine.Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[runner.Subtype()] = runner
}

// Lookup реализует engine.RunnerRegistry.
// Для неизвестного subtype возвращает engine.PassThrough.
func (r *Registry) Lookup(subtype string) engine.Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if runner, ok := r.runners[subtype]; ok {
		return runner
	}
	return engine.PassThrough{}
}

// Get возвращает Runner по subtype.
// Возвращает ErrRunnerNotFound, если Runner не найден.
func (r *Registry) Get(subtype string) (engine.Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runner, exists := r.runners[subtype]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunnerNotFound, subtype)
	}

	return runner, nil
}

// Has проверяет, зарегистрирован ли Runner.
func (r *Registry) Has(subtype string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.runners[subtype]
	return exists
}

// Subtypes возвращает отсортированный список subtype.
func (r *Registry) Subtypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subtypes := make([]string, 0, len(r.runners))
	for s := range r.runners {
		subtypes = append(subtypes, s)
	}
	sort.Strings(subtypes)
	return subtypes
}

// Count возвращает количество зарегистрированных Runner'ов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runners)
}

// Unregister удаляет Runner из реестра.
func (r *Registry) Unregister(subtype string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runners, subtype)
}

// Info — описание Runner'а для каталога.
type Info struct {
	Subtype     string          `json:"subtype"`
	Kind        domain.NodeKind `json:"kind,omitempty"`
	Description string          `json:"description,omitempty"`
	Schema      string          `json:"schema,omitempty"`
}

// Catalog возвращает описания всех Runner'ов, отсортированные по subtype.
func (r *Registry) Catalog() []Info {
	subtypes := r.Subtypes()

	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(subtypes))
	for _, s := range subtypes {
		runner := r.runners[s]
		info := Info{Subtype: s}
		if d, ok := runner.(Describer); ok {
			info.Kind = d.Kind()
			info.Description = d.Description()
		}
		if p, ok := runner.(engine.ConfigSchemaProvider); ok {
			info.Schema = p.ConfigSchema()
		}
		infos = append(infos, info)
	}
	return infos
}
