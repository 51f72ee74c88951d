// Package orchestrator управляет выполнением runs.
//
// Orchestrator отвечает за:
//   - Создание записи run и её жизненный цикл (PENDING → RUNNING → финальный статус)
//   - Выбор исполнителя: удалённый делегат, при его ошибке — локальный движок
//   - Сохранение результатов в RunStore
//   - Метрики runs и переходов на локальное выполнение
//
// API, CLI и Scheduler запускают workflow только через Orchestrator.
package orchestrator
