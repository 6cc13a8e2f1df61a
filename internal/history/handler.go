package history

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jadonwu-dev/axwise/pkg/logging"
)

// Handler serves locally-recorded run history.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a run-history handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ListRunsResponse is the response for listing runs.
type ListRunsResponse struct {
	Runs  []Record `json:"runs"`
	Count int      `json:"count"`
}

// ListRuns handles GET /api/analysis-runs requests.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list analysis runs", "error", err)
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListRunsResponse{Runs: runs, Count: len(runs)})
}
