// Package cli реализует инструмент командной строки REX.
//
// # Обзор
//
// CLI работает в двух режимах:
//   - локально: `rex run` и `rex validate` загружают workflow из файла
//     и выполняют/проверяют его в текущем процессе (engine + nodes);
//   - через API: `rex runs ...` и `rex nodes --remote` обращаются
//     к REX API по HTTP.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для REX API. Инкапсулирует HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок. Типы ответов дублируются, internal/api
// клиент не импортирует.
//
//	client := cli.NewClient("http://localhost:8080")
//	runs, err := client.ListRuns(cli.ListRunsOpts{Status: "FAILED"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Warn/Error) — в stderr,
// поэтому работает pipe: rex runs list --json | jq .
//
// ## Commands
//
//   - run FILE: локальный запуск (--input, --set, --start-from, --retries, ...)
//   - validate FILE: проверка графа и конфигов узлов
//   - nodes: каталог subtype'ов
//   - runs: list, show, submit
//
// Команды создаются фабричными функциями (NewRunCmd и т.д.), которые
// принимают замыкания (clientFn, outputFn, ...) для ленивого создания
// зависимостей после парсинга PersistentFlags.
//
// Начальный вход задаётся документом JSON или YAML (--input, --input-file)
// и/или парами --set KEY=VALUE; значение --set разбирается как JSON,
// иначе остаётся строкой.
package cli
