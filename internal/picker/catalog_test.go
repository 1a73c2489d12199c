package picker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveindex/internal/domain/models"
	"driveindex/internal/session"
)

type fakeDir struct {
	pages map[string]models.ResourcePage // keyed by folder id
	calls int
}

func (f *fakeDir) ListChildren(_ context.Context, _, _, parentResourceID, _ string) (models.ResourcePage, error) {
	f.calls++
	return f.pages[parentResourceID], nil
}

type fakeMembers struct {
	resources []models.Resource
	calls     int
}

func (f *fakeMembers) ListMembers(_ context.Context, _, _, _ string) ([]models.Resource, error) {
	f.calls++
	return f.resources, nil
}

func newTestCatalog(t *testing.T, withKB bool) (*Catalog, *fakeDir, *fakeMembers, session.Store) {
	t.Helper()

	store := session.NewMemoryStore()
	require.NoError(t, store.SetAuthToken("token"))
	require.NoError(t, store.SetConnectionID("conn-1"))
	if withKB {
		require.NoError(t, store.SetKnowledgeBaseID("kb-1"))
	}

	dir := &fakeDir{pages: map[string]models.ResourcePage{
		"": {Data: []models.Resource{{ResourceID: "root-file"}}},
	}}
	members := &fakeMembers{resources: []models.Resource{{ResourceID: "root-file"}}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCatalog(dir, members, store, logger), dir, members, store
}

func TestListingIsMemoized(t *testing.T) {
	catalog, dir, _, _ := newTestCatalog(t, false)
	ctx := context.Background()

	_, err := catalog.Listing(ctx, "", "")
	require.NoError(t, err)
	_, err = catalog.Listing(ctx, "", "")
	require.NoError(t, err)

	assert.Equal(t, 1, dir.calls, "second read must come from the cache")
}

func TestListingRefetchesAfterInvalidate(t *testing.T) {
	catalog, dir, _, _ := newTestCatalog(t, false)
	ctx := context.Background()

	_, err := catalog.Listing(ctx, "", "")
	require.NoError(t, err)

	catalog.InvalidateListing()

	_, err = catalog.Listing(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, dir.calls)
}

func TestListingCursorPagesBypassCache(t *testing.T) {
	catalog, dir, _, _ := newTestCatalog(t, false)
	ctx := context.Background()

	_, err := catalog.Listing(ctx, "", "")
	require.NoError(t, err)
	_, err = catalog.Listing(ctx, "", "page-2")
	require.NoError(t, err)
	_, err = catalog.Listing(ctx, "", "")
	require.NoError(t, err)

	assert.Equal(t, 2, dir.calls, "cursor read passes through, first page stays cached")
}

func TestMembershipWithoutKnowledgeBase(t *testing.T) {
	catalog, _, members, _ := newTestCatalog(t, false)

	ids, err := catalog.Membership(context.Background())
	require.NoError(t, err)

	assert.Nil(t, ids)
	assert.Zero(t, members.calls, "no knowledge base means no remote call")
}

func TestMembershipIsMemoized(t *testing.T) {
	catalog, _, members, _ := newTestCatalog(t, true)
	ctx := context.Background()

	ids, err := catalog.Membership(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"root-file"}, ids)

	_, err = catalog.Membership(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, members.calls)
}

func TestRefreshMembershipForcesRefetch(t *testing.T) {
	catalog, _, members, _ := newTestCatalog(t, true)
	ctx := context.Background()

	_, err := catalog.Membership(ctx)
	require.NoError(t, err)

	members.resources = append(members.resources, models.Resource{ResourceID: "added"})
	require.NoError(t, catalog.RefreshMembership(ctx))

	ids, err := catalog.Membership(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"root-file", "added"}, ids)
	assert.Equal(t, 2, members.calls)
}

func TestInvalidateKnowledgeBaseDropsMembership(t *testing.T) {
	catalog, _, members, _ := newTestCatalog(t, true)
	ctx := context.Background()

	_, err := catalog.Membership(ctx)
	require.NoError(t, err)

	catalog.InvalidateKnowledgeBase()

	_, err = catalog.Membership(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, members.calls)
}
