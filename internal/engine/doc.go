// Package engine содержит движок выполнения графов узлов.
//
// Включает:
//   - graph.go    — построение представлений смежности и топологическая проверка
//   - executor.go — цикл выполнения с FIFO-очередью WorkItem
//   - router.go   — маршрутизация по тегу ветки (_branch)
//   - fanout.go   — размножение выхода по элементам (_fanOut + items)
//   - join.go     — накопление доставок в join-узлах
//   - retry.go    — валидация узла и retry с линейным backoff
//   - schema.go   — проверка config по JSON-схеме Runner'а
//   - parser.go   — загрузка workflow из JSON/YAML
//   - template.go — рендеринг Go templates ({{ .Input.x }})
//
// Engine выполняет узлы по одному: следующий WorkItem извлекается
// только после полного завершения предыдущего. Всё состояние run'а
// живёт в RunContext и не разделяется между run'ами.
package engine
