package nodes

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// SubtypeCondition — subtype условного ветвления.
const SubtypeCondition = "condition"

// Операторы сравнения.
const (
	OpEquals      = "equals"
	OpNotEquals   = "notEquals"
	OpGreater     = "gt"
	OpGreaterEq   = "gte"
	OpLess        = "lt"
	OpLessEq      = "lte"
	OpContains    = "contains"
	OpNotContains = "notContains"
	OpStartsWith  = "startsWith"
	OpEndsWith    = "endsWith"
	OpMatches     = "matches"
	OpExists      = "exists"
	OpNotExists   = "notExists"
	OpIsEmpty     = "isEmpty"
	OpIsNotEmpty  = "isNotEmpty"
)

// Синонимы операторов.
var operatorAliases = map[string]string{
	"eq":  OpEquals,
	"==":  OpEquals,
	"ne":  OpNotEquals,
	"!=":  OpNotEquals,
	">":   OpGreater,
	">=":  OpGreaterEq,
	"<":   OpLess,
	"<=":  OpLessEq,
	"in":  OpContains,
	"re":  OpMatches,
	"has": OpExists,
}

const conditionSchema = `{
	"type": "object",
	"required": ["path", "operator"],
	"properties": {
		"path": {"type": "string"},
		"operator": {"type": "string", "minLength": 1}
	}
}`

// ConditionRunner — условное ветвление.
//
// Вычисляет {path, operator, value} над входом и выдаёт тег ветки
// "true" или "false".
//
// Конфигурация:
//
//	{"path": "$.user.age", "operator": "gte", "value": 18}
//
// Выход:
//
//	{"_branch": "true", "result": true, "data": <input>}
type ConditionRunner struct{}

// NewConditionRunner создаёт ConditionRunner.
func NewConditionRunner() *ConditionRunner {
	return &ConditionRunner{}
}

// Subtype возвращает subtype.
func (r *ConditionRunner) Subtype() string { return SubtypeCondition }

// Kind реализует Describer.
func (r *ConditionRunner) Kind() domain.NodeKind { return domain.NodeKindUtility }

// Description реализует Describer.
func (r *ConditionRunner) Description() string {
	return "Evaluates path/operator/value on the input and routes to the true or false branch"
}

// ConfigSchema реализует engine.ConfigSchemaProvider.
func (r *ConditionRunner) ConfigSchema() string { return conditionSchema }

// Execute вычисляет условие.
func (r *ConditionRunner) Execute(ctx context.Context, node *domain.NodeSpec, input any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeCancelled, err)
	}

	path := GetConfigString(node.Config, "path")
	operator := GetConfigString(node.Config, "operator")

	actual, found, err := lookupPath(input, path)
	if err != nil {
		return nil, err
	}

	result, err := Evaluate(operator, actual, found, node.Config["value"])
	if err != nil {
		return nil, err
	}

	return map[string]any{
		domain.KeyBranch: fmt.Sprint(result),
		"result":         result,
		"data":           input,
	}, nil
}

// Evaluate применяет оператор к значению.
// found — было ли значение найдено по пути.
func Evaluate(operator string, actual any, found bool, expected any) (bool, error) {
	op := operator
	if alias, ok := operatorAliases[strings.ToLower(operator)]; ok {
		op = alias
	}

	switch op {
	case OpExists:
		return found && actual != nil, nil
	case OpNotExists:
		return !found || actual == nil, nil
	case OpIsEmpty:
		return isEmpty(actual), nil
	case OpIsNotEmpty:
		return !isEmpty(actual), nil
	case OpEquals:
		return valuesEqual(actual, expected), nil
	case OpNotEquals:
		return !valuesEqual(actual, expected), nil
	case OpGreater, OpGreaterEq, OpLess, OpLessEq:
		return compareNumbers(op, actual, expected)
	case OpContains:
		return contains(actual, expected), nil
	case OpNotContains:
		return !contains(actual, expected), nil
	case OpStartsWith:
		return strings.HasPrefix(fmt.Sprint(actual), fmt.Sprint(expected)), nil
	case OpEndsWith:
		return strings.HasSuffix(fmt.Sprint(actual), fmt.Sprint(expected)), nil
	case OpMatches:
		re, err := regexp.Compile(fmt.Sprint(expected))
		if err != nil {
			return false, fmt.Errorf("%w: condition: bad regex: %v", ErrInvalidConfig, err)
		}
		return found && re.MatchString(fmt.Sprint(actual)), nil
	default:
		return false, fmt.Errorf("%w: condition: unknown operator %q", ErrInvalidConfig, operator)
	}
}

// valuesEqual сравнивает значения: числа по значению, остальное глубоко.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			_, aStr := a.(string)
			_, bStr := b.(string)
			if !aStr || !bStr {
				return fa == fb
			}
		}
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareNumbers сравнивает числовые значения.
func compareNumbers(op string, a, b any) (bool, error) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if !okA || !okB {
		return false, nil
	}
	switch op {
	case OpGreater:
		return fa > fb, nil
	case OpGreaterEq:
		return fa >= fb, nil
	case OpLess:
		return fa < fb, nil
	default:
		return fa <= fb, nil
	}
}

// contains проверяет вхождение: подстрока, элемент списка или ключ map.
func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprint(needle))
	case map[string]any:
		_, ok := h[fmt.Sprint(needle)]
		return ok
	}
	if list, ok := asList(haystack); ok {
		for _, item := range list {
			if valuesEqual(item, needle) {
				return true
			}
		}
	}
	return false
}

// isEmpty — nil, пустая строка, пустой список или map.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	}
	if list, ok := asList(v); ok {
		return len(list) == 0
	}
	return false
}
