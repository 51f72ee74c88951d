package api

import (
	"errors"
	"net/http"

	"github.com/MeghVyas3132/REX/internal/engine"
)

// maxBodySize — предельный размер тела запроса.
const maxBodySize = 10 << 20

// CreateExecution выполняет граф локальным движком и возвращает результаты.
// POST /api/v1/executions
//
// Используется remote.HTTPDelegate других экземпляров. Run не
// записывается в историю.
func (h *Handler) CreateExecution(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		WriteError(w, h.logger, unavailable("execution engine is not configured"))
		return
	}

	var req engine.ExecutionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	resp, err := h.engine.Serve(r.Context(), &req)
	if err != nil {
		if engine.IsValidationError(err) {
			WriteError(w, h.logger, err)
			return
		}
		if errors.Is(err, engine.ErrRunCancelled) {
			h.logger.Warn("execution cancelled", "run_id", resp.RunID, "error", err)
		}
	}

	Success(w, resp)
}
