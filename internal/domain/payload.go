package domain

// Соглашения о payload, которые читает движок.
//
// Это соглашения, а не типы: Runner возвращает map[string]any,
// и движок смотрит только на зарезервированные ключи.
const (
	// KeyBranch — тег ветки (строка, число или bool).
	KeyBranch = "_branch"

	// KeyFanOut — маркер fan-out (true).
	KeyFanOut = "_fanOut"

	// KeyItems — список элементов для fan-out.
	KeyItems = "items"

	// KeyError — флаг payload с ошибкой.
	KeyError = "error"

	// KeyMessage — текст ошибки.
	KeyMessage = "message"
)

// Subtype'ы, которые движок знает по имени.
const (
	SubtypeMerge = "merge"
)

// Ключи и значения конфигурации merge-стратегии.
const (
	ConfigMergeStrategy      = "mergeStrategy"
	MergeStrategyWaitForAll  = "waitForAll"
	MergeStrategyPassThrough = "passThrough"
)

// ErrorPayload создаёт payload {error: true, message}.
func ErrorPayload(message string) map[string]any {
	return map[string]any{
		KeyError:   true,
		KeyMessage: message,
	}
}

// IsErrorPayload проверяет, является ли значение payload с ошибкой.
func IsErrorPayload(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	flag, _ := m[KeyError].(bool)
	return flag
}

// ErrorMessage возвращает message из payload с ошибкой.
func ErrorMessage(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := m[KeyMessage].(string)
	return msg
}
