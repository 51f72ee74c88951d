// Package nodes содержит встроенные Runner'ы узлов workflow.
//
// # Обзор
//
// Runner — исполнитель узла конкретного subtype. Движок (engine)
// находит Runner через Registry и вызывает Execute с конфигурацией
// узла и входным payload'ом. Runner возвращает выход узла, который
// движок маршрутизирует дальше по графу.
//
// Выход может содержать служебные ключи:
//   - "_branch" — тег ветки (condition, switch)
//   - "_fanOut" + "items" — разбиение списка (split)
//
// # Registry
//
//	registry := nodes.DefaultRegistry()
//	eng := engine.New(engine.Config{Registry: registry})
//
// Для неизвестного subtype Lookup возвращает engine.PassThrough,
// поэтому граф с незнакомыми узлами всё равно выполняется.
//
// # Встроенные subtype
//
//	manual, webhook, schedule — триггеры, выдают вход run'а
//	condition                 — ветвление true/false
//	switch                    — ветвление по значению
//	split                     — fan-out списка
//	merge                     — слияние входов join-узла
//	wait                      — задержка
//	set, transform            — поля через шаблоны
//	jsonpath                  — извлечение по JSONPath (ojg)
//	code                      — Lua-скрипт в песочнице (go-lua)
//	http                      — HTTP запрос
//
// Runner'ы с ConfigSchema проверяются движком через JSON Schema до
// первой попытки выполнения.
//
// # Файлы пакета
//
//   - runner.go    — ошибки, хелперы конфигурации и путей
//   - registry.go  — Registry и каталог
//   - trigger.go   — TriggerRunner
//   - condition.go — ConditionRunner и Evaluate
//   - switch.go    — SwitchRunner
//   - split.go     — SplitRunner
//   - merge.go     — MergeRunner
//   - wait.go      — WaitRunner
//   - set.go       — SetRunner
//   - jsonpath.go  — JSONPathRunner
//   - code.go      — CodeRunner
//   - http.go      — HTTPRunner
package nodes
