package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/MeghVyas3132/REX/internal/domain"
	"github.com/MeghVyas3132/REX/internal/engine"
	"github.com/MeghVyas3132/REX/internal/repo"
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?workflow=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, h.logger, unavailable("run history is not configured"))
		return
	}

	query := r.URL.Query()
	filter := repo.RunFilter{
		WorkflowName: query.Get("workflow"),
		Limit:        repo.DefaultListLimit,
	}

	if s := query.Get("status"); s != "" {
		status, err := domain.ParseRunStatus(s)
		if err != nil {
			WriteError(w, h.logger, badRequest("%v", err))
			return
		}
		filter.Status = status
	}

	if s := query.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			WriteError(w, h.logger, badRequest("invalid limit"))
			return
		}
		filter.Limit = limit
	}

	if s := query.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			WriteError(w, h.logger, badRequest("invalid offset"))
			return
		}
		filter.Offset = offset
	}

	runs, err := h.store.List(r.Context(), filter)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun запускает workflow через оркестратор и ждёт завершения.
// POST /api/v1/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		WriteError(w, h.logger, unavailable("orchestrator is not configured"))
		return
	}

	var req CreateRunRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, h.logger, err)
		return
	}
	if req.Workflow == nil {
		WriteError(w, h.logger, badRequest("workflow is required"))
		return
	}

	opts, err := req.Options()
	if err != nil {
		WriteError(w, h.logger, badRequest("%v", err))
		return
	}

	// Отменённый run — частичный результат, а не ошибка запроса.
	run, report, err := h.orchestrator.RunWorkflow(r.Context(), req.Workflow, opts)
	if err != nil && !errors.Is(err, engine.ErrRunCancelled) {
		WriteError(w, h.logger, err)
		return
	}

	Created(w, RunFromDomain(*run).WithReport(report))
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, h.logger, unavailable("run history is not configured"))
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, h.logger, badRequest("invalid run id"))
		return
	}

	run, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	Success(w, RunFromDomain(*run))
}
