package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerKind — чем задано расписание.
type TriggerKind string

const (
	TriggerNone     TriggerKind = ""
	TriggerCron     TriggerKind = "cron"
	TriggerInterval TriggerKind = "interval"
)

// Schedule — периодический запуск workflow из файла.
//
// Расписания читаются из YAML; runtime-поля (NextDueAt, Last*)
// живут только в памяти scheduler'а и в файл не попадают.
// Если заданы и cron, и interval_sec, побеждает cron.
type Schedule struct {
	Name         string `json:"name" yaml:"name"`
	WorkflowPath string `json:"workflow" yaml:"workflow"`

	// CronExpr — 5 полей или дескриптор (@hourly, @every 5m).
	CronExpr    string `json:"cron,omitempty" yaml:"cron,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty" yaml:"interval_sec,omitempty"`

	// Timezone — IANA-имя, пусто = UTC.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`

	Input   any  `json:"input,omitempty" yaml:"input,omitempty"`
	Enabled bool `json:"enabled" yaml:"enabled"`

	NextDueAt  *time.Time `json:"next_due_at,omitempty" yaml:"-"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty" yaml:"-"`
	LastRunID  *uuid.UUID `json:"last_run_id,omitempty" yaml:"-"`
	LastStatus RunStatus  `json:"last_status,omitempty" yaml:"-"`
}

// Trigger возвращает вид триггера расписания.
func (s *Schedule) Trigger() TriggerKind {
	switch {
	case s.CronExpr != "":
		return TriggerCron
	case s.IntervalSec > 0:
		return TriggerInterval
	default:
		return TriggerNone
	}
}

func (s *Schedule) IsCron() bool     { return s.Trigger() == TriggerCron }
func (s *Schedule) IsInterval() bool { return s.Trigger() == TriggerInterval }

// Interval возвращает IntervalSec как time.Duration.
func (s *Schedule) Interval() time.Duration {
	return time.Duration(s.IntervalSec) * time.Second
}

// IsDue — включено и NextDueAt уже наступило.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Enabled && s.NextDueAt != nil && !now.Before(*s.NextDueAt)
}

// RecordRun запоминает последний запуск.
func (s *Schedule) RecordRun(run *Run, at time.Time) {
	id := run.ID
	s.LastRunAt = &at
	s.LastRunID = &id
	s.LastStatus = run.Status
}
