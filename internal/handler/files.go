package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"driveindex/internal/httputil"
	"driveindex/internal/picker"
)

// FilesHandler serves the derived file listing and the picker's navigation,
// selection and view-configuration endpoints.
type FilesHandler struct {
	catalog *picker.Catalog
	state   *picker.State
	logger  *slog.Logger
}

// NewFilesHandler creates a new files handler
func NewFilesHandler(catalog *picker.Catalog, state *picker.State, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		catalog: catalog,
		state:   state,
		logger:  logger,
	}
}

type listingResponse struct {
	Entries     []picker.Entry    `json:"entries"`
	Breadcrumbs []picker.Crumb    `json:"breadcrumbs"`
	SelectedIDs []string          `json:"selected_ids"`
	NextCursor  string            `json:"next_cursor,omitempty"`
	View        picker.ViewConfig `json:"view"`
}

// List returns the current folder's listing with filters, search and sort
// applied, annotated with knowledge base membership.
// GET /api/files?cursor=...
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	cursor := r.URL.Query().Get("cursor")

	page, err := h.catalog.Listing(r.Context(), snap.CurrentFolderID, cursor)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	membership, err := h.catalog.Membership(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listingResponse{
		Entries:     picker.DeriveView(page.Data, membership, snap.View),
		Breadcrumbs: snap.Breadcrumbs,
		SelectedIDs: snap.SelectedIDs,
		NextCursor:  page.NextCursor,
		View:        snap.View,
	})
}

type navigateRequest struct {
	FolderID string `json:"folder_id"`
	Name     string `json:"name"`
}

// Navigate enters a folder (or the root when folder_id is empty). Any
// navigation clears the selection.
// POST /api/files/navigate
func (h *FilesHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.state.EnterFolder(req.FolderID, req.Name)
	httputil.RespondJSON(w, http.StatusOK, h.state.Snapshot())
}

type breadcrumbRequest struct {
	FolderID string `json:"folder_id"`
}

// Breadcrumb jumps to an ancestor already on the breadcrumb stack.
// POST /api/files/breadcrumb
func (h *FilesHandler) Breadcrumb(w http.ResponseWriter, r *http.Request) {
	var req breadcrumbRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.state.NavigateBreadcrumb(req.FolderID) {
		httputil.RespondError(w, http.StatusBadRequest, "folder is not on the breadcrumb path")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.state.Snapshot())
}

type selectRequest struct {
	ResourceID string `json:"resource_id"`
	Selected   bool   `json:"selected"`
}

// Select toggles one resource in or out of the selection.
// POST /api/files/select
func (h *FilesHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResourceID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "resource_id is required")
		return
	}

	h.state.Select(req.ResourceID, req.Selected)
	httputil.RespondJSON(w, http.StatusOK, h.state.Snapshot())
}

// ClearSelection empties the selection without navigating.
// POST /api/files/selection/clear
func (h *FilesHandler) ClearSelection(w http.ResponseWriter, _ *http.Request) {
	h.state.ClearSelection()
	httputil.RespondJSON(w, http.StatusOK, h.state.Snapshot())
}

type viewRequest struct {
	Type          picker.TypeFilter    `json:"type_filter"`
	Indexed       picker.IndexedFilter `json:"indexed_filter"`
	NameSearch    string               `json:"name_search"`
	SortField     picker.SortField     `json:"sort_field"`
	SortDirection picker.SortDirection `json:"sort_direction"`
}

func (r viewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.In(picker.TypeAll, picker.TypeFiles, picker.TypeFolders)),
		validation.Field(&r.Indexed, validation.In(picker.IndexedAll, picker.IndexedOnly, picker.NotIndexed)),
		validation.Field(&r.SortField, validation.In(picker.SortByName, picker.SortByCreatedTime, picker.SortByModifiedTime, picker.SortBySize)),
		validation.Field(&r.SortDirection, validation.In(picker.SortAsc, picker.SortDesc)),
	)
}

// UpdateView replaces the filter, search and sort configuration. Omitted
// fields fall back to their defaults.
// PUT /api/files/view
func (h *FilesHandler) UpdateView(w http.ResponseWriter, r *http.Request) {
	req := viewRequest{
		Type:          picker.TypeAll,
		Indexed:       picker.IndexedAll,
		SortField:     picker.SortByName,
		SortDirection: picker.SortAsc,
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.state.SetFilters(req.Type, req.Indexed)
	h.state.SetSearch(req.NameSearch)
	h.state.SetSort(req.SortField, req.SortDirection)
	httputil.RespondJSON(w, http.StatusOK, h.state.Snapshot())
}

// HealthCheck reports liveness.
// GET /health
func (h *FilesHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
