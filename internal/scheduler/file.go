package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	goyaml "github.com/goccy/go-yaml"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// File — содержимое файла расписаний.
//
//	schedules:
//	  - name: nightly-report
//	    workflow: workflows/report.yaml
//	    cron: "0 3 * * *"
//	    timezone: Europe/Moscow
//	    enabled: true
//	  - name: ping
//	    workflow: workflows/ping.json
//	    interval_sec: 60
//	    input: {host: example.com}
//	    enabled: true
type File struct {
	Schedules []domain.Schedule `yaml:"schedules"`
}

// LoadFile читает и проверяет файл расписаний.
//
// Относительные пути workflow считаются от каталога файла.
func LoadFile(path string) ([]domain.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules file: %w", err)
	}

	schedules, err := ParseFile(data)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i := range schedules {
		if p := schedules[i].WorkflowPath; !filepath.IsAbs(p) {
			schedules[i].WorkflowPath = filepath.Join(dir, p)
		}
	}
	return schedules, nil
}

// ParseFile декодирует YAML и проверяет каждое расписание.
func ParseFile(data []byte) ([]domain.Schedule, error) {
	var f File
	if err := goyaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse schedules yaml: %w", err)
	}

	seen := make(map[string]bool, len(f.Schedules))
	for i := range f.Schedules {
		sched := &f.Schedules[i]
		if err := ValidateSchedule(sched); err != nil {
			return nil, err
		}
		if seen[sched.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSchedule, sched.Name)
		}
		seen[sched.Name] = true
	}
	return f.Schedules, nil
}
