package handler

import (
	"log/slog"
	"net/http"

	"driveindex/internal/httputil"
	"driveindex/internal/remote"
	"driveindex/internal/session"
)

// ConnectionsHandler lists the provider connections visible to the session
type ConnectionsHandler struct {
	dir    *remote.DirectoryClient
	store  session.Store
	logger *slog.Logger
}

// NewConnectionsHandler creates a new connections handler
func NewConnectionsHandler(dir *remote.DirectoryClient, store session.Store, logger *slog.Logger) *ConnectionsHandler {
	return &ConnectionsHandler{
		dir:    dir,
		store:  store,
		logger: logger,
	}
}

// List returns the configured provider's connections.
// GET /api/connections
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	connections, err := h.dir.ListConnections(r.Context(), h.store.AuthToken())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, connections)
}
