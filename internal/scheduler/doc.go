// Package scheduler запускает workflow по расписаниям.
//
// Расписания читаются из YAML-файла (LoadFile). Для каждого scheduler
// хранит в памяти NextDueAt и на каждом тике запускает наступившие
// через Runner (оркестратор).
//
// Структура:
//   - scheduler.go — основная логика Scheduler (Run, Tick, fire)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//   - file.go      — загрузка и проверка файла расписаний
//
// Использование:
//
//	schedules, err := scheduler.LoadFile("schedules.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Runner:    orch,
//	    Schedules: schedules,
//	    Elector:   lock, // опционально
//	    Logger:    logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sched.Run(ctx) // блокирует до отмены ctx
//
// Leader Election:
//
// При нескольких экземплярах тики выполняет только лидер. Elector
// реализуется repo.AdvisoryLock (pg_try_advisory_lock на выделенном
// соединении).
package scheduler
