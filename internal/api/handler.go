package api

import (
	"log/slog"
	"time"

	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/nodes"
	"github.com/MeghVyas3132/REX/internal/orchestrator"
	"github.com/MeghVyas3132/REX/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	orchestrator *orchestrator.Orchestrator
	engine       *engine.Engine
	store        repo.RunStore
	nodes        *nodes.Registry
	logger       *slog.Logger
	startedAt    time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Orchestrator — запуск run'ов с записью в историю.
	Orchestrator *orchestrator.Orchestrator

	// Engine — локальный движок для /executions.
	// По умолчанию движок оркестратора.
	Engine *engine.Engine

	// Store — история runs. По умолчанию хранилище оркестратора.
	Store repo.RunStore

	// Nodes — реестр Runner'ов для каталога /nodes.
	Nodes *nodes.Registry

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eng := cfg.Engine
	if eng == nil && cfg.Orchestrator != nil {
		eng = cfg.Orchestrator.Engine()
	}

	store := cfg.Store
	if store == nil && cfg.Orchestrator != nil {
		store = cfg.Orchestrator.Store()
	}

	registry := cfg.Nodes
	if registry == nil {
		registry = nodes.DefaultRegistry()
	}

	return &Handler{
		orchestrator: cfg.Orchestrator,
		engine:       eng,
		store:        store,
		nodes:        registry,
		logger:       logger,
		startedAt:    time.Now(),
	}
}
