package scheduler

import "errors"

// Ошибки планировщика.
var (
	// ErrInvalidSchedule — расписание не прошло проверку.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrNoTrigger — не задан ни cron, ни interval_sec.
	ErrNoTrigger = errors.New("schedule has neither cron nor interval_sec")

	// ErrDuplicateSchedule — два расписания с одним именем.
	ErrDuplicateSchedule = errors.New("duplicate schedule name")
)
