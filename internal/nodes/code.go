package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// SubtypeCode — subtype пользовательского Lua-скрипта.
const SubtypeCode = "code"

const codeSchema = `{
	"type": "object",
	"required": ["script"],
	"properties": {
		"script": {"type": "string", "minLength": 1}
	}
}`

// CodeRunner — выполнение Lua-скрипта в песочнице.
//
// Вход доступен скрипту как глобальная переменная input. Если скрипт
// объявляет функцию exec, её результат становится выходом узла; иначе
// выходом будет значение, возвращённое самим скриптом, или вход.
//
// Конфигурация:
//
//	{
//	    "script": "function exec(input) return {total = input.a + input.b} end"
//	}
//
// Интерпретатор не прерывается посреди скрипта: при отмене context
// узел завершается сразу, а скрипт дорабатывает в фоне.
type CodeRunner struct{}

// NewCodeRunner создаёт CodeRunner.
func NewCodeRunner() *CodeRunner {
	return &CodeRunner{}
}

// Subtype возвращает subtype.
func (r *CodeRunner) Subtype() string { return SubtypeCode }

// Kind реализует Describer.
func (r *CodeRunner) Kind() domain.NodeKind { return domain.NodeKindAction }

// Description реализует Describer.
func (r *CodeRunner) Description() string {
	return "Runs a sandboxed Lua script against the input"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *CodeRunner) ConfigSchema() string { return codeSchema }

type scriptResult struct {
	value any
	err   error
}

// Execute выполняет скрипт.
func (r *CodeRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, err)
	}

	script := GetConfigString(node.Config, "script")
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("%w: code: script is required", ErrInvalidConfig)
	}

	normalized, err := normalizeValue(input)
	if err != nil {
		return nil, fmt.Errorf("code: input: %w", err)
	}

	done := make(chan scriptResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- scriptResult{err: fmt.Errorf("code: script panic: %v", rec)}
			}
		}()
		value, err := RunScript(script, normalized)
		done <- scriptResult{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, ctx.Err())
	case res := <-done:
		return res.value, res.err
	}
}

// RunScript выполняет Lua-скрипт над input в новом sandbox-состоянии.
func RunScript(script string, input any) (any, error) {
	l := lua.NewState()
	setupSandbox(l)

	pushValue(l, input)
	l.SetGlobal("input")

	base := l.Top()
	if err := lua.DoString(l, script); err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}

	l.Global("exec")
	if l.TypeOf(-1) == lua.TypeFunction {
		pushValue(l, input)
		if err := l.ProtectedCall(1, 1, 0); err != nil {
			return nil, fmt.Errorf("exec error: %w", err)
		}
		result := pullValue(l, -1)
		l.Pop(1)
		return result, nil
	}
	l.Pop(1)

	if l.Top() > base {
		result := pullValue(l, -1)
		l.Pop(1)
		return result, nil
	}

	return input, nil
}

// setupSandbox открывает только безопасные библиотеки.
func setupSandbox(l *lua.State) {
	lua.Require(l, "_G", lua.BaseOpen, true)
	l.Pop(1)
	lua.Require(l, "string", lua.StringOpen, true)
	l.Pop(1)
	lua.Require(l, "table", lua.TableOpen, true)
	l.Pop(1)
	lua.Require(l, "math", lua.MathOpen, true)
	l.Pop(1)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		l.PushNil()
		l.SetGlobal(name)
	}

	l.Register("json_encode", luaJSONEncode)
	l.Register("json_decode", luaJSONDecode)
}

// normalizeValue приводит значение к JSON-совместимым типам.
func normalizeValue(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, float64:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// pushValue кладёт Go-значение на стек Lua.
func pushValue(l *lua.State, v any) {
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case int:
		l.PushInteger(val)
	case int64:
		l.PushInteger(int(val))
	case float64:
		l.PushNumber(val)
	case string:
		l.PushString(val)
	case []any:
		l.NewTable()
		for i, item := range val {
			l.PushInteger(i + 1)
			pushValue(l, item)
			l.SetTable(-3)
		}
	case map[string]any:
		l.NewTable()
		for k, item := range val {
			l.PushString(k)
			pushValue(l, item)
			l.SetTable(-3)
		}
	default:
		if data, err := json.Marshal(val); err == nil {
			l.PushString(string(data))
		} else {
			l.PushNil()
		}
	}
}

// pullValue читает значение со стека Lua.
// Таблица с ключами 1..n становится списком, остальные — map.
func pullValue(l *lua.State, idx int) any {
	switch l.TypeOf(idx) {
	case lua.TypeBoolean:
		return l.ToBoolean(idx)
	case lua.TypeNumber:
		n, _ := l.ToNumber(idx)
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
		return n
	case lua.TypeString:
		s, _ := l.ToString(idx)
		return s
	case lua.TypeTable:
		return pullTable(l, idx)
	default:
		return nil
	}
}

func pullTable(l *lua.State, idx int) any {
	l.PushValue(idx)

	isArray := true
	maxIndex := 0
	count := 0

	l.PushNil()
	for l.Next(-2) {
		count++
		if l.TypeOf(-2) != lua.TypeNumber {
			isArray = false
			l.Pop(2)
			break
		}
		n, _ := l.ToNumber(-2)
		if int(n) > maxIndex {
			maxIndex = int(n)
		}
		l.Pop(1)
	}

	if isArray && maxIndex > 0 && maxIndex == count {
		arr := make([]any, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.PushInteger(i)
			l.Table(-2)
			arr[i-1] = pullValue(l, -1)
			l.Pop(1)
		}
		l.Pop(1)
		return arr
	}

	obj := make(map[string]any)
	l.PushNil()
	for l.Next(-2) {
		var key string
		if l.TypeOf(-2) == lua.TypeNumber {
			n, _ := l.ToNumber(-2)
			key = fmt.Sprint(n)
		} else {
			key, _ = l.ToString(-2)
		}
		obj[key] = pullValue(l, -1)
		l.Pop(1)
	}
	l.Pop(1)
	return obj
}

func luaJSONEncode(l *lua.State) int {
	data, err := json.Marshal(pullValue(l, 1))
	if err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	l.PushString(string(data))
	return 1
}

func luaJSONDecode(l *lua.State) int {
	str := lua.CheckString(l, 1)
	var value any
	if err := json.Unmarshal([]byte(str), &value); err != nil {
		l.PushNil()
		l.PushString(err.Error())
		return 2
	}
	pushValue(l, value)
	return 1
}
