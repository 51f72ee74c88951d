package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goyaml "github.com/goccy/go-yaml"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// Format — формат файла workflow.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat — неподдерживаемый формат workflow.
var ErrUnknownFormat = errors.New("unknown workflow format")

// Допустимые категории узлов.
var validNodeKinds = map[domain.NodeKind]bool{
	domain.NodeKindTrigger: true,
	domain.NodeKindAction:  true,
	domain.NodeKindAI:      true,
	domain.NodeKindUtility: true,
}

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// ParseWorkflow декодирует workflow из JSON или YAML.
// Пустой format — JSON, если документ начинается с '{', иначе YAML.
func ParseWorkflow(data []byte, format Format) (*domain.Workflow, error) {
	if format == "" {
		format = FormatYAML
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			format = FormatJSON
		}
	}

	var wf domain.Workflow
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse workflow json: %w", err)
		}
	case FormatYAML:
		if err := goyaml.Unmarshal(data, &wf); err != nil {
			return nil, fmt.Errorf("parse workflow yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	return &wf, nil
}

// LoadWorkflowFile читает workflow из файла; формат определяется расширением.
func LoadWorkflowFile(path string) (*domain.Workflow, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}

	wf, err := ParseWorkflow(data, format)
	if err != nil {
		return nil, err
	}
	if wf.Name == "" {
		wf.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return wf, nil
}

// Validate выполняет полную валидацию workflow без запуска.
//
// Проверяет:
// - Наличие узлов
// - Уникальность и непустоту ID
// - Категории узлов
// - Рёбра: существование концов, петли, циклы (делегируется BuildGraph)
// - startFrom из настроек
func Validate(wf *domain.Workflow) error {
	if wf == nil || len(wf.Nodes) == 0 {
		return NewValidationError("", "nodes", "workflow has no nodes", ErrEmptyNodes)
	}

	for i := range wf.Nodes {
		if err := ValidateNode(&wf.Nodes[i]); err != nil {
			return err
		}
	}

	graph, err := BuildGraph(wf.Nodes, wf.Edges)
	if err != nil {
		return err
	}

	if wf.Settings != nil {
		if _, err := startNodes(graph, wf.Settings.StartFrom); err != nil {
			return err
		}
	}

	return nil
}

// ValidateGraph проверяет только структуру: узлы, ID, рёбра, циклы
// и startFrom. Конфигурация узлов не проверяется: её ошибки — ошибки
// отдельного узла, движок превращает их в error payload при вызове.
func ValidateGraph(wf *domain.Workflow) error {
	if wf == nil || len(wf.Nodes) == 0 {
		return NewValidationError("", "nodes", "workflow has no nodes", ErrEmptyNodes)
	}

	graph, err := BuildGraph(wf.Nodes, wf.Edges)
	if err != nil {
		return err
	}

	if wf.Settings != nil {
		if _, err := startNodes(graph, wf.Settings.StartFrom); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNode выполняет проверки узла, не зависящие от subtype.
func ValidateNode(node *domain.NodeSpec) error {
	if node.ID == "" {
		return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
	}
	if node.Kind != "" && !validNodeKinds[node.Kind] {
		return NewValidationError(node.ID, "kind",
			fmt.Sprintf("unknown node kind: %s", node.Kind), ErrUnknownNodeKind)
	}
	if !node.HasConfig() {
		return NewValidationError(node.ID, "config",
			"node has neither config nor subtype", ErrUnusableConfig)
	}
	return nil
}

// ValidateWithRegistry — Validate плюс проверка config каждого узла
// по схеме его Runner'а.
func ValidateWithRegistry(wf *domain.Workflow, registry RunnerRegistry) error {
	if err := Validate(wf); err != nil {
		return err
	}
	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if err := ValidateNodeConfig(node, resolveRunner(registry, node)); err != nil {
			return err
		}
	}
	return nil
}

// IsValidNodeKind проверяет, является ли категория узла допустимой.
func IsValidNodeKind(kind domain.NodeKind) bool {
	return validNodeKinds[kind]
}
