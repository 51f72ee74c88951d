package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/MeghVyas3132/REX/internal/domain"
)

// schemaCache хранит скомпилированные схемы Runner'ов.
//
// Engine разделяется между run'ами, поэтому кэш защищён мьютексом.
type schemaCache struct {
	mu       sync.RWMutex
	compiled map[string]*gojsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{compiled: make(map[string]*gojsonschema.Schema)}
}

// get возвращает скомпилированную схему для subtype.
func (c *schemaCache) get(subtype, doc string) (*gojsonschema.Schema, error) {
	c.mu.RLock()
	s, ok := c.compiled[subtype]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.compiled[subtype] = s
	c.mu.Unlock()

	return s, nil
}

// validateNode проверяет, что узел можно передать Runner'у.
//
// Минимум — непустой config или subtype. Если Runner описывает config
// JSON-схемой, config проверяется по ней.
func (e *Engine) validateNode(node *domain.NodeSpec, runner Runner) error {
	if node.Kind != "" && !validNodeKinds[node.Kind] {
		return NewValidationError(node.ID, "kind",
			fmt.Sprintf("unknown node kind: %s", node.Kind), ErrUnknownNodeKind)
	}
	if !node.HasConfig() {
		return NewValidationError(node.ID, "config",
			"node has neither config nor subtype", ErrUnusableConfig)
	}

	provider, ok := runner.(ConfigSchemaProvider)
	if !ok {
		return nil
	}

	return validateConfig(e.schemas, runner.Subtype(), provider.ConfigSchema(), node)
}

// ValidateNodeConfig проверяет узел так же, как движок перед первой попыткой.
// Используется для валидации workflow без запуска.
func ValidateNodeConfig(node *domain.NodeSpec, runner Runner) error {
	if !node.HasConfig() {
		return NewValidationError(node.ID, "config",
			"node has neither config nor subtype", ErrUnusableConfig)
	}
	provider, ok := runner.(ConfigSchemaProvider)
	if !ok {
		return nil
	}
	return validateConfig(nil, runner.Subtype(), provider.ConfigSchema(), node)
}

// validateConfig проверяет config узла по JSON-схеме.
// cache может быть nil — тогда схема компилируется каждый раз.
func validateConfig(cache *schemaCache, subtype, schemaDoc string, node *domain.NodeSpec) error {
	if schemaDoc == "" {
		return nil
	}

	var (
		schema *gojsonschema.Schema
		err    error
	)
	if cache != nil {
		schema, err = cache.get(subtype, schemaDoc)
	} else {
		schema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaDoc))
	}
	if err != nil {
		return NewValidationError(node.ID, "config",
			fmt.Sprintf("invalid schema for subtype %s: %v", subtype, err), ErrConfigSchema)
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(config))
	if err != nil {
		return NewValidationError(node.ID, "config",
			fmt.Sprintf("config validation error: %v", err), ErrConfigSchema)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return NewValidationError(node.ID, "config",
			"config validation failed: "+strings.Join(msgs, "; "), ErrConfigSchema)
	}

	return nil
}
