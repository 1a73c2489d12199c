package handler

import (
	"log/slog"
	"net/http"

	"driveindex/internal/domain"
	"driveindex/internal/httputil"
	"driveindex/internal/indexing"
	"driveindex/internal/remote"
	"driveindex/internal/session"
)

// KnowledgeBaseHandler exposes knowledge base inspection and the manual
// sync trigger.
type KnowledgeBaseHandler struct {
	kb       *remote.KnowledgeBaseClient
	resolver *indexing.Resolver
	ledger   *indexing.Ledger
	store    session.Store
	logger   *slog.Logger
}

// NewKnowledgeBaseHandler creates a new knowledge base handler
func NewKnowledgeBaseHandler(kb *remote.KnowledgeBaseClient, resolver *indexing.Resolver, ledger *indexing.Ledger, store session.Store, logger *slog.Logger) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{
		kb:       kb,
		resolver: resolver,
		ledger:   ledger,
		store:    store,
		logger:   logger,
	}
}

type knowledgeBaseResponse struct {
	KnowledgeBaseID string                `json:"knowledge_base_id"`
	Ledger          *indexing.LedgerEntry `json:"ledger,omitempty"`
}

// Get returns the active knowledge base and its ledger entry.
// GET /api/knowledge-base
func (h *KnowledgeBaseHandler) Get(w http.ResponseWriter, _ *http.Request) {
	kbID := h.store.KnowledgeBaseID()
	if kbID == "" {
		handleError(w, h.logger, domain.ErrNoKnowledgeBase)
		return
	}

	entry, err := h.ledger.Get(kbID)
	if err != nil {
		h.logger.Warn("ledger lookup failed", "knowledge_base_id", kbID, "error", err)
	}

	httputil.RespondJSON(w, http.StatusOK, knowledgeBaseResponse{
		KnowledgeBaseID: kbID,
		Ledger:          entry,
	})
}

type membersResponse struct {
	KnowledgeBaseID string   `json:"knowledge_base_id"`
	MemberIDs       []string `json:"member_ids"`
}

// Members returns the authoritative membership set from the remote service.
// GET /api/knowledge-base/members
func (h *KnowledgeBaseHandler) Members(w http.ResponseWriter, r *http.Request) {
	ids, err := h.resolver.CurrentMembership(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	httputil.RespondJSON(w, http.StatusOK, membersResponse{
		KnowledgeBaseID: h.store.KnowledgeBaseID(),
		MemberIDs:       ids,
	})
}

// Sync manually re-triggers remote processing of the active knowledge base.
// POST /api/knowledge-base/sync
func (h *KnowledgeBaseHandler) Sync(w http.ResponseWriter, r *http.Request) {
	kbID := h.store.KnowledgeBaseID()
	if kbID == "" {
		handleError(w, h.logger, domain.ErrNoKnowledgeBase)
		return
	}

	if err := h.kb.Sync(r.Context(), h.store.AuthToken(), h.store.OrgID(), kbID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.logger.Info("manual sync triggered", "knowledge_base_id", kbID)
	httputil.RespondJSON(w, http.StatusAccepted, map[string]string{"knowledge_base_id": kbID})
}

// Orphans lists superseded knowledge bases left behind by whole-set
// recreation. They still exist remotely; nothing references them.
// GET /api/knowledge-base/orphans
func (h *KnowledgeBaseHandler) Orphans(w http.ResponseWriter, _ *http.Request) {
	entries, err := h.ledger.Orphans()
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []indexing.LedgerEntry{}
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}
