package handler

import (
	"log/slog"
	"net/http"

	"driveindex/internal/httputil"
	"driveindex/internal/indexing"
	"driveindex/internal/picker"
)

// IndexHandler exposes the index and de-index mutations
type IndexHandler struct {
	coordinator *indexing.Coordinator
	state       *picker.State
	logger      *slog.Logger
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(coordinator *indexing.Coordinator, state *picker.State, logger *slog.Logger) *IndexHandler {
	return &IndexHandler{
		coordinator: coordinator,
		state:       state,
		logger:      logger,
	}
}

type mutationRequest struct {
	ResourceIDs []string `json:"resource_ids"`
}

// targets resolves the request to an id set, falling back to the current
// selection when none is given.
func (h *IndexHandler) targets(req mutationRequest) []string {
	if len(req.ResourceIDs) > 0 {
		return req.ResourceIDs
	}
	return h.state.SelectedIDs()
}

// Index adds resources to the knowledge base. With an empty id list the
// current selection is indexed.
// POST /api/index
func (h *IndexHandler) Index(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := h.targets(req)
	if len(ids) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "nothing to index")
		return
	}

	result, err := h.coordinator.IndexMany(r.Context(), ids)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.state.ClearSelection()
	httputil.RespondJSON(w, http.StatusOK, result)
}

// DeIndex removes resources from the knowledge base. With an empty id list
// the current selection is de-indexed.
// POST /api/deindex
func (h *IndexHandler) DeIndex(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := h.targets(req)
	if len(ids) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "nothing to de-index")
		return
	}

	result, err := h.coordinator.DeIndexMany(r.Context(), ids)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.state.ClearSelection()
	httputil.RespondJSON(w, http.StatusOK, result)
}

// DeIndexOne removes a single resource. When resource_path is given the
// fast path-addressed removal is used instead of whole-set recreation.
// DELETE /api/index/{id}?resource_path=...
func (h *IndexHandler) DeIndexOne(w http.ResponseWriter, r *http.Request) {
	resourceID := r.PathValue("id")
	if resourceID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "resource id is required")
		return
	}
	resourcePath := r.URL.Query().Get("resource_path")

	result, err := h.coordinator.DeIndexOne(r.Context(), resourceID, resourcePath)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
