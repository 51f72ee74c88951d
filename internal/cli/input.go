package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	goyaml "github.com/goccy/go-yaml"
)

// parseInput собирает начальный payload из флагов.
//
// raw и file — документ JSON или YAML; sets — пары KEY=VALUE поверх
// него (значение разбирается как JSON, иначе остаётся строкой).
// nil означает, что вход не задан.
func parseInput(raw, file string, sets []string) (any, error) {
	var input any

	switch {
	case raw != "" && file != "":
		return nil, fmt.Errorf("--input and --input-file are mutually exclusive")
	case raw != "":
		v, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("parse --input: %w", err)
		}
		input = v
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
		v, err := decodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("parse input file: %w", err)
		}
		input = v
	}

	if len(sets) == 0 {
		return input, nil
	}

	m, ok := input.(map[string]any)
	if input != nil && !ok {
		return nil, fmt.Errorf("--set requires an object input, got %T", input)
	}
	if m == nil {
		m = make(map[string]any, len(sets))
	}

	for _, kv := range sets {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected KEY=VALUE", kv)
		}
		m[key] = parseScalar(value)
	}
	return m, nil
}

// decodeDocument разбирает JSON (если документ начинается с '{' или '[') или YAML.
func decodeDocument(data []byte) (any, error) {
	var v any
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
	if err := goyaml.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// parseScalar: JSON-значение (число, bool, объект) или исходная строка.
func parseScalar(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
