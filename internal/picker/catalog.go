package picker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"driveindex/internal/domain/models"
	"driveindex/internal/session"
)

// DirectoryLister lists the children of a drive folder.
type DirectoryLister interface {
	ListChildren(ctx context.Context, token, connectionID, parentResourceID, cursor string) (models.ResourcePage, error)
}

// MembershipLister lists the members of a knowledge base.
type MembershipLister interface {
	ListMembers(ctx context.Context, token, knowledgeBaseID, resourcePath string) ([]models.Resource, error)
}

type cachedListing struct {
	folderID string
	page     models.ResourcePage
	loaded   bool
	stale    bool
}

type cachedMembership struct {
	ids    []string
	loaded bool
	stale  bool
}

// Catalog memoizes the two remote data sets the picker renders from, the
// current folder listing and the knowledge base membership, and exposes
// the invalidate/refresh hooks the mutation coordinator drives after each
// index operation. The cache is a render buffer, never a second source of
// truth: anything stale is refetched from the remote service.
type Catalog struct {
	dir     DirectoryLister
	members MembershipLister
	store   session.Store
	logger  *slog.Logger

	mu         sync.Mutex
	listing    cachedListing
	membership cachedMembership
}

// NewCatalog creates a catalog backed by the given clients.
func NewCatalog(dir DirectoryLister, members MembershipLister, store session.Store, logger *slog.Logger) *Catalog {
	return &Catalog{
		dir:     dir,
		members: members,
		store:   store,
		logger:  logger,
	}
}

// Listing returns the children of folderID, serving the cached page when
// it is current. An empty folderID means the connection root. Only the
// first page of a folder is memoized; cursor pages pass through.
func (c *Catalog) Listing(ctx context.Context, folderID, cursor string) (models.ResourcePage, error) {
	c.mu.Lock()
	if cursor == "" && c.listing.loaded && !c.listing.stale && c.listing.folderID == folderID {
		page := c.listing.page
		c.mu.Unlock()
		return page, nil
	}
	c.mu.Unlock()

	page, err := c.fetchListing(ctx, folderID, cursor)
	if err != nil {
		return models.ResourcePage{}, err
	}

	if cursor == "" {
		c.mu.Lock()
		c.listing = cachedListing{folderID: folderID, page: page, loaded: true}
		c.mu.Unlock()
	}
	return page, nil
}

// Membership returns the resource ids currently indexed in the knowledge
// base. When no knowledge base exists yet the membership is empty by
// definition and no remote call is made.
func (c *Catalog) Membership(ctx context.Context) ([]string, error) {
	kbID := c.store.KnowledgeBaseID()
	if kbID == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.membership.loaded && !c.membership.stale {
		ids := append([]string(nil), c.membership.ids...)
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	resources, err := c.members.ListMembers(ctx, c.store.AuthToken(), kbID, "/")
	if err != nil {
		return nil, fmt.Errorf("list knowledge base members: %w", err)
	}

	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ResourceID)
	}

	c.mu.Lock()
	c.membership = cachedMembership{ids: ids, loaded: true}
	c.mu.Unlock()

	return append([]string(nil), ids...), nil
}

// InvalidateListing marks the cached folder listing stale.
func (c *Catalog) InvalidateListing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listing.stale = true
}

// InvalidateMembership marks the cached membership stale.
func (c *Catalog) InvalidateMembership() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.membership.stale = true
}

// InvalidateKnowledgeBase drops everything derived from the knowledge
// base, which today is the membership set.
func (c *Catalog) InvalidateKnowledgeBase() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.membership = cachedMembership{}
}

// RefreshListing refetches the cached folder's first page unconditionally.
func (c *Catalog) RefreshListing(ctx context.Context) error {
	c.mu.Lock()
	folderID := c.listing.folderID
	c.mu.Unlock()

	page, err := c.fetchListing(ctx, folderID, "")
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.listing = cachedListing{folderID: folderID, page: page, loaded: true}
	c.mu.Unlock()
	return nil
}

// RefreshMembership refetches the membership set unconditionally.
func (c *Catalog) RefreshMembership(ctx context.Context) error {
	c.mu.Lock()
	c.membership.stale = true
	c.mu.Unlock()

	_, err := c.Membership(ctx)
	return err
}

// Reset drops all cached data, used on navigation and logout.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listing = cachedListing{}
	c.membership = cachedMembership{}
}

func (c *Catalog) fetchListing(ctx context.Context, folderID, cursor string) (models.ResourcePage, error) {
	page, err := c.dir.ListChildren(ctx, c.store.AuthToken(), c.store.ConnectionID(), folderID, cursor)
	if err != nil {
		return models.ResourcePage{}, fmt.Errorf("list children of %q: %w", folderID, err)
	}
	c.logger.Debug("fetched folder listing", "folder_id", folderID, "count", len(page.Data))
	return page, nil
}
