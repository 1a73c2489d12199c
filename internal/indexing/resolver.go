package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"driveindex/internal/domain"
	"driveindex/internal/domain/models"
	"driveindex/internal/session"
)

// KnowledgeBaseService is the slice of the remote knowledge base API the
// resolver needs.
type KnowledgeBaseService interface {
	Create(ctx context.Context, token, connectionID string, memberIDs []string, params models.IndexingParams) (models.KnowledgeBase, error)
	Sync(ctx context.Context, token, orgID, knowledgeBaseID string) error
	ListMembers(ctx context.Context, token, knowledgeBaseID, resourcePath string) ([]models.Resource, error)
}

// Recorder receives a record of every knowledge base the resolver creates.
// Recording is best-effort bookkeeping; it never fails a mutation.
type Recorder interface {
	Record(knowledgeBaseID, connectionID string, memberIDs []string, supersedes string) error
}

// Resolver is the membership state machine. Because the remote service has
// no incremental member add/remove, every membership change runs the same
// transaction: fetch the authoritative current membership, compute the next
// full set, create a brand-new knowledge base with it, await the sync
// acknowledgment, and only then point the session at the new id. Any
// failure aborts with zero session mutation.
type Resolver struct {
	store       session.Store
	kb          KnowledgeBaseService
	params      models.IndexingParams
	recorder    Recorder
	syncTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewResolver creates the resolver. recorder may be nil.
func NewResolver(store session.Store, kb KnowledgeBaseService, params models.IndexingParams, recorder Recorder, syncTimeout time.Duration, logger *slog.Logger) *Resolver {
	if syncTimeout <= 0 {
		syncTimeout = 30 * time.Second
	}
	return &Resolver{
		store:       store,
		kb:          kb,
		params:      params,
		recorder:    recorder,
		syncTimeout: syncTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// AddResult reports a completed add transaction.
type AddResult struct {
	KnowledgeBaseID string    `json:"knowledge_base_id"`
	MemberIDs       []string  `json:"member_ids"`
	IndexedAt       time.Time `json:"indexed_at"`
}

// RemoveResult reports a completed remove transaction.
type RemoveResult struct {
	KnowledgeBaseID string   `json:"knowledge_base_id,omitempty"`
	RemovedIDs      []string `json:"removed_ids"`
	MemberIDs       []string `json:"member_ids"`
}

// CurrentMembership fetches the authoritative member ids of the active
// knowledge base, or an empty set when none is active.
func (r *Resolver) CurrentMembership(ctx context.Context) ([]string, error) {
	token := r.store.AuthToken()
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	kbID := r.store.KnowledgeBaseID()
	if kbID == "" {
		return nil, nil
	}

	members, err := r.kb.ListMembers(ctx, token, kbID, "/")
	if err != nil {
		return nil, &domain.IndexOperationError{Phase: domain.PhaseFetch, Cause: err}
	}

	ids := make([]string, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].ResourceID)
	}
	return ids, nil
}

// RequestAdd indexes the given resources: next membership is the union of
// the current set and the requested ids.
func (r *Resolver) RequestAdd(ctx context.Context, resourceIDs []string) (*AddResult, error) {
	token := r.store.AuthToken()
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	connectionID := r.store.ConnectionID()
	if connectionID == "" {
		return nil, domain.ErrNoConnection
	}

	current, err := r.CurrentMembership(ctx)
	if err != nil {
		return nil, err
	}

	next := ResolveAdd(current, resourceIDs)
	kbID, err := r.rebuild(ctx, token, connectionID, next)
	if err != nil {
		return nil, err
	}

	return &AddResult{
		KnowledgeBaseID: kbID,
		MemberIDs:       next,
		IndexedAt:       r.now(),
	}, nil
}

// RequestRemove de-indexes the given resources: next membership is the
// current set minus the requested ids. Removing everything short-circuits
// without creating a knowledge base; the session keeps pointing at the old
// one, which simply no longer matters. Whether that orphan should also be
// deleted remotely is an open question; we leave it in place and only
// record it.
func (r *Resolver) RequestRemove(ctx context.Context, resourceIDs []string) (*RemoveResult, error) {
	token := r.store.AuthToken()
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	if r.store.KnowledgeBaseID() == "" {
		return nil, domain.ErrNoKnowledgeBase
	}

	current, err := r.CurrentMembership(ctx)
	if err != nil {
		return nil, err
	}

	removed := intersect(current, resourceIDs)
	next := ResolveRemove(current, resourceIDs)

	if len(next) == 0 {
		r.logger.Info("membership emptied, skipping knowledge base recreation",
			"knowledge_base_id", r.store.KnowledgeBaseID(),
			"removed", len(removed),
		)
		return &RemoveResult{RemovedIDs: removed, MemberIDs: next}, nil
	}

	connectionID := r.store.ConnectionID()
	if connectionID == "" {
		return nil, domain.ErrNoConnection
	}

	kbID, err := r.rebuild(ctx, token, connectionID, next)
	if err != nil {
		return nil, err
	}

	return &RemoveResult{
		KnowledgeBaseID: kbID,
		RemovedIDs:      removed,
		MemberIDs:       next,
	}, nil
}

// rebuild runs the create -> sync -> repoint sequence for the next full
// membership set.
func (r *Resolver) rebuild(ctx context.Context, token, connectionID string, memberIDs []string) (string, error) {
	previousID := r.store.KnowledgeBaseID()

	kb, err := r.kb.Create(ctx, token, connectionID, memberIDs, r.params)
	if err != nil {
		return "", &domain.IndexOperationError{Phase: domain.PhaseCreate, Cause: err}
	}

	syncCtx, cancel := context.WithTimeout(ctx, r.syncTimeout)
	defer cancel()

	if err := r.kb.Sync(syncCtx, token, r.store.OrgID(), kb.KnowledgeBaseID); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %v", domain.ErrSyncTimeout, r.syncTimeout, err)
		}
		return "", &domain.IndexOperationError{Phase: domain.PhaseSync, Cause: err}
	}

	if err := r.store.SetKnowledgeBaseID(kb.KnowledgeBaseID); err != nil {
		return "", fmt.Errorf("point session at new knowledge base: %w", err)
	}

	if r.recorder != nil {
		if err := r.recorder.Record(kb.KnowledgeBaseID, connectionID, memberIDs, previousID); err != nil {
			r.logger.Warn("failed to record knowledge base", "error", err)
		}
	}

	r.logger.Info("knowledge base rebuilt",
		"knowledge_base_id", kb.KnowledgeBaseID,
		"supersedes", previousID,
		"members", len(memberIDs),
	)
	return kb.KnowledgeBaseID, nil
}
