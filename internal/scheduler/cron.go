package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// cronParser — парсер cron-выражений (5 полей, плюс дескрипторы вроде @hourly).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CalculateNextDue вычисляет следующее время выполнения для schedule.
// Для интервалов просто добавляет IntervalSec к from.
//
// Учитывает timezone schedule.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := loadLocation(sched.Timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}

	fromInTz := from.In(loc)

	switch sched.Trigger() {
	case domain.TriggerCron:
		return calculateNextCron(sched.CronExpr, fromInTz)
	case domain.TriggerInterval:
		return fromInTz.Add(sched.Interval()).UTC(), nil
	default:
		return time.Time{}, ErrNoTrigger
	}
}

// calculateNextCron вычисляет следующее время по cron-выражению.
func calculateNextCron(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}

	return schedule.Next(from).UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// ValidateSchedule проверяет расписание: имя, workflow, cron/interval, timezone.
func ValidateSchedule(sched *domain.Schedule) error {
	if sched.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}
	if sched.WorkflowPath == "" {
		return fmt.Errorf("%w: %s: workflow is required", ErrInvalidSchedule, sched.Name)
	}

	switch sched.Trigger() {
	case domain.TriggerCron:
		if err := ValidateCronExpr(sched.CronExpr); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, sched.Name, err)
		}
	case domain.TriggerInterval:
	default:
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, sched.Name, ErrNoTrigger)
	}

	if _, err := loadLocation(sched.Timezone); err != nil {
		return fmt.Errorf("%w: %s: unknown timezone %q", ErrInvalidSchedule, sched.Name, sched.Timezone)
	}
	return nil
}

// loadLocation — time.LoadLocation с UTC для пустого имени.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}
