package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
)

// ValidateWorkflow проверяет workflow без запуска.
// POST /api/v1/workflows/validate
//
// Тело — workflow в JSON или YAML (Content-Type application/yaml
// или text/yaml). Невалидный workflow — 200 с valid=false.
func (h *Handler) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	var format engine.Format
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = engine.FormatYAML
	}

	wf, err := engine.ParseWorkflow(data, format)
	if err != nil {
		WriteError(w, h.logger, badRequest("%v", err))
		return
	}

	resp := ValidateResponse{
		Valid: true,
		Name:  wf.Name,
		Nodes: len(wf.Nodes),
		Edges: len(wf.Edges),
	}

	if err := h.validate(wf); err != nil {
		resp.Valid = false
		resp.Error = err.Error()

		var ve *engine.ValidationError
		if errors.As(err, &ve) {
			resp.NodeID = ve.NodeID
			resp.Field = ve.Field
		}
	}

	Success(w, resp)
}

// validate проверяет граф и config узлов по схемам Runner'ов.
func (h *Handler) validate(wf *domain.Workflow) error {
	if h.engine != nil {
		return h.engine.Validate(wf)
	}
	return engine.ValidateWithRegistry(wf, h.nodes)
}

// ListNodes возвращает каталог доступных subtype'ов.
// GET /api/v1/nodes
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	catalog := h.nodes.Catalog()
	List(w, catalog, len(catalog))
}

// Health — проверка живости.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}
