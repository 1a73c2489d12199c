package indexing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"driveindex/internal/domain"
	"driveindex/internal/session"
)

// Views is the derived-state layer the coordinator keeps honest. After
// every mutation the listing, membership and knowledge base views are
// invalidated in that order and then refetched immediately, so consumers
// re-derive instead of patching local state.
type Views interface {
	// Membership returns the (possibly cached) indexed resource ids.
	Membership(ctx context.Context) ([]string, error)

	InvalidateListing()
	InvalidateMembership()
	InvalidateKnowledgeBase()

	RefreshListing(ctx context.Context) error
	RefreshMembership(ctx context.Context) error
}

// MemberDeleter is the path-scoped removal the knowledge base service
// offers as its only incremental mutation.
type MemberDeleter interface {
	DeleteMember(ctx context.Context, token, knowledgeBaseID, resourcePath string) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRejectWhenBusy makes the coordinator reject a mutation that arrives
// while another is in flight with ErrOperationInProgress instead of
// queueing it.
func WithRejectWhenBusy() Option {
	return func(c *Coordinator) { c.rejectBusy = true }
}

// Coordinator serializes index mutations and drives cache invalidation.
// Two concurrent mutations would each compute the next membership from a
// read taken before the other's write landed, losing one of the updates;
// the coordinator is the single serialization point preventing that.
type Coordinator struct {
	resolver   *Resolver
	deleter    MemberDeleter
	store      session.Store
	views      Views
	logger     *slog.Logger
	sem        chan struct{}
	rejectBusy bool
}

// NewCoordinator wires the mutation coordinator.
func NewCoordinator(resolver *Resolver, deleter MemberDeleter, store session.Store, views Views, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		resolver: resolver,
		deleter:  deleter,
		store:    store,
		views:    views,
		logger:   logger,
		sem:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MutationResult reports what a coordinated mutation actually did.
type MutationResult struct {
	KnowledgeBaseID string   `json:"knowledge_base_id,omitempty"`
	Affected        []string `json:"affected_ids"`
	NoOp            bool     `json:"no_op,omitempty"`
}

// IndexOne indexes a single resource.
func (c *Coordinator) IndexOne(ctx context.Context, resourceID string) (*MutationResult, error) {
	return c.IndexMany(ctx, []string{resourceID})
}

// IndexMany indexes the subset of the given resources that is not already
// indexed. An empty effective set is a successful no-op that never reaches
// the resolver.
func (c *Coordinator) IndexMany(ctx context.Context, resourceIDs []string) (*MutationResult, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	opID := uuid.NewString()
	c.logger.Debug("index mutation started", "op_id", opID, "requested", len(resourceIDs))
	defer c.settle(ctx, opID)

	needed := c.filterAgainstMembership(ctx, resourceIDs, false)
	if len(needed) == 0 {
		c.logger.Debug("index mutation is a no-op", "op_id", opID)
		return &MutationResult{KnowledgeBaseID: c.store.KnowledgeBaseID(), NoOp: true}, nil
	}

	res, err := c.resolver.RequestAdd(ctx, needed)
	if err != nil {
		return nil, err
	}
	return &MutationResult{KnowledgeBaseID: res.KnowledgeBaseID, Affected: needed}, nil
}

// DeIndexOne removes a single resource from the index. When the resource
// path is known the knowledge base service's path-scoped delete is used
// directly; otherwise the removal goes through whole-set recreation.
func (c *Coordinator) DeIndexOne(ctx context.Context, resourceID, resourcePath string) (*MutationResult, error) {
	if resourcePath == "" {
		return c.DeIndexMany(ctx, []string{resourceID})
	}

	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	opID := uuid.NewString()
	c.logger.Debug("path-scoped deindex started", "op_id", opID, "resource_path", resourcePath)
	defer c.settle(ctx, opID)

	token := c.store.AuthToken()
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	kbID := c.store.KnowledgeBaseID()
	if kbID == "" {
		return nil, domain.ErrNoKnowledgeBase
	}

	if err := c.deleter.DeleteMember(ctx, token, kbID, resourcePath); err != nil {
		return nil, err
	}
	return &MutationResult{KnowledgeBaseID: kbID, Affected: []string{resourceID}}, nil
}

// DeIndexMany removes the subset of the given resources that is currently
// indexed. An empty effective set is a successful no-op.
func (c *Coordinator) DeIndexMany(ctx context.Context, resourceIDs []string) (*MutationResult, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	opID := uuid.NewString()
	c.logger.Debug("deindex mutation started", "op_id", opID, "requested", len(resourceIDs))
	defer c.settle(ctx, opID)

	if c.store.KnowledgeBaseID() == "" {
		return nil, domain.ErrNoKnowledgeBase
	}

	needed := c.filterAgainstMembership(ctx, resourceIDs, true)
	if len(needed) == 0 {
		c.logger.Debug("deindex mutation is a no-op", "op_id", opID)
		return &MutationResult{KnowledgeBaseID: c.store.KnowledgeBaseID(), NoOp: true}, nil
	}

	res, err := c.resolver.RequestRemove(ctx, needed)
	if err != nil {
		return nil, err
	}
	return &MutationResult{KnowledgeBaseID: res.KnowledgeBaseID, Affected: res.RemovedIDs}, nil
}

// InFlight reports whether a mutation currently holds the serialization
// slot. UIs use this to disable triggers; they must not abort the running
// mutation.
func (c *Coordinator) InFlight() bool {
	return len(c.sem) == 1
}

/// filterAgainstMembership drops the ids the operation would not change:
// already-indexed ids on add, not-indexed ids on remove. A failed
// membership read degrades to no filtering; the resolver's set math is
// idempotent, so over-submitting is safe.
func (c *Coordinator) filterAgainstMembership(ctx context.Context, resourceIDs []string, keepIndexed bool) []string {
	membership, err := c.views.Membership(ctx)
	if err != nil {
		c.logger.Warn("membership unavailable for pre-filtering, submitting full set", "error", err)
		return resourceIDs
	}
	if keepIndexed {
		return intersect(membership, resourceIDs)
	}
	return subtractSet(resourceIDs, membership)
}

// settle runs the fixed invalidation order and forces the refetches. It
// runs on success and on failure: the views must re-derive either way.
func (c *Coordinator) settle(ctx context.Context, opID string) {
	c.views.InvalidateListing()
	c.views.InvalidateMembership()
	c.views.InvalidateKnowledgeBase()

	if err := c.views.RefreshListing(ctx); err != nil {
		c.logger.Warn("listing refetch failed after mutation", "op_id", opID, "error", err)
	}
	if err := c.views.RefreshMembership(ctx); err != nil {
		c.logger.Warn("membership refetch failed after mutation", "op_id", opID, "error", err)
	}
}

func (c *Coordinator) acquire(ctx context.Context) error {
	if c.rejectBusy {
		select {
		case c.sem <- struct{}{}:
			return nil
		default:
			return domain.ErrOperationInProgress
		}
	}

	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) release() {
	<-c.sem
}
