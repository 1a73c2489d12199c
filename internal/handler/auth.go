package handler

import (
	"log/slog"
	"net/http"

	"driveindex/internal/httputil"
	"driveindex/internal/remote"
	"driveindex/internal/session"
)

// AuthHandler handles login, logout and session inspection
type AuthHandler struct {
	flow   *remote.LoginFlow
	store  session.Store
	logger *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(flow *remote.LoginFlow, store session.Store, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		flow:   flow,
		store:  store,
		logger: logger,
	}
}

type sessionResponse struct {
	Authenticated   bool   `json:"authenticated"`
	OrgID           string `json:"org_id,omitempty"`
	ConnectionID    string `json:"connection_id,omitempty"`
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`
}

// Login authenticates against the remote identity service and adopts the
// first available drive connection.
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds remote.Credentials
	if err := httputil.ParseJSON(w, r, &creds); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.flow.Login(r.Context(), creds); err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, h.sessionState())
}

// Logout clears the persisted session.
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	if err := h.flow.Logout(); err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessionResponse{})
}

// Session reports the current session state.
// GET /api/auth/session
func (h *AuthHandler) Session(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.sessionState())
}

func (h *AuthHandler) sessionState() sessionResponse {
	snap := h.store.Snapshot()
	return sessionResponse{
		Authenticated:   snap.Authenticated(),
		OrgID:           snap.OrgID,
		ConnectionID:    snap.ConnectionID,
		KnowledgeBaseID: snap.KnowledgeBaseID,
	}
}
