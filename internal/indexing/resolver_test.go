package indexing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveindex/internal/domain"
	"driveindex/internal/domain/models"
	"driveindex/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeKBService simulates a knowledge base service that only supports
// whole-set creation.
type fakeKBService struct {
	members   map[string][]string // kb id -> member ids
	nextID    int
	createErr error
	syncErr   error
	listErr   error
	syncSlow  time.Duration

	created []string // kb ids in creation order
	synced  []string
}

func newFakeKBService() *fakeKBService {
	return &fakeKBService{members: make(map[string][]string)}
}

func (f *fakeKBService) Create(_ context.Context, _, _ string, memberIDs []string, _ models.IndexingParams) (models.KnowledgeBase, error) {
	if f.createErr != nil {
		return models.KnowledgeBase{}, f.createErr
	}
	f.nextID++
	id := "kb-" + string(rune('0'+f.nextID))
	f.members[id] = append([]string(nil), memberIDs...)
	f.created = append(f.created, id)
	return models.KnowledgeBase{KnowledgeBaseID: id}, nil
}

func (f *fakeKBService) Sync(ctx context.Context, _, _, knowledgeBaseID string) error {
	if f.syncSlow > 0 {
		select {
		case <-time.After(f.syncSlow):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.syncErr != nil {
		return f.syncErr
	}
	f.synced = append(f.synced, knowledgeBaseID)
	return nil
}

func (f *fakeKBService) ListMembers(_ context.Context, _, knowledgeBaseID, _ string) ([]models.Resource, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Resource, 0, len(f.members[knowledgeBaseID]))
	for _, id := range f.members[knowledgeBaseID] {
		out = append(out, models.Resource{ResourceID: id})
	}
	return out, nil
}

func authedStore(t *testing.T) session.Store {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, store.SetAuthToken("token"))
	require.NoError(t, store.SetOrgID("org-1"))
	require.NoError(t, store.SetConnectionID("conn-1"))
	return store
}

func TestRequestAddCreatesFirstKnowledgeBase(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	result, err := r.RequestAdd(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, result.MemberIDs)
	assert.Equal(t, result.KnowledgeBaseID, store.KnowledgeBaseID())
	assert.Equal(t, []string{result.KnowledgeBaseID}, kb.synced)
}

func TestRequestAddUnionsWithCurrentMembership(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	result, err := r.RequestAdd(context.Background(), []string{"b", "c"})
	require.NoError(t, err)

	// existing members first, then the new ids in request order
	assert.Equal(t, []string{"a", "b", "c"}, result.MemberIDs)
	assert.Len(t, kb.created, 2, "every mutation creates a fresh knowledge base")
	assert.Equal(t, kb.created[1], store.KnowledgeBaseID())
}

func TestRequestAddGuards(t *testing.T) {
	kb := newFakeKBService()

	t.Run("unauthenticated", func(t *testing.T) {
		r := NewResolver(session.NewMemoryStore(), kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())
		_, err := r.RequestAdd(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	})

	t.Run("no connection", func(t *testing.T) {
		store := session.NewMemoryStore()
		require.NoError(t, store.SetAuthToken("token"))
		r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())
		_, err := r.RequestAdd(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, domain.ErrNoConnection)
	})
}

func TestRequestAddFailureLeavesSessionUntouched(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a"})
	require.NoError(t, err)
	before := store.KnowledgeBaseID()

	kb.createErr = errors.New("boom")
	_, err = r.RequestAdd(context.Background(), []string{"b"})

	var opErr *domain.IndexOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domain.PhaseCreate, opErr.Phase)
	assert.Equal(t, before, store.KnowledgeBaseID(), "failed mutation must not move the session")
}

func TestRequestAddSyncFailureLeavesSessionUntouched(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	kb.syncErr = errors.New("sync exploded")
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a"})

	var opErr *domain.IndexOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domain.PhaseSync, opErr.Phase)
	assert.Empty(t, store.KnowledgeBaseID(), "session must never point at an unsynced knowledge base")
}

func TestRequestAddSyncTimeout(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	kb.syncSlow = 200 * time.Millisecond
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, 10*time.Millisecond, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a"})

	assert.ErrorIs(t, err, domain.ErrSyncTimeout)
	assert.Empty(t, store.KnowledgeBaseID())
}

func TestRequestRemove(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	result, err := r.RequestRemove(context.Background(), []string{"b", "missing"})
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, result.RemovedIDs)
	assert.Equal(t, []string{"a", "c"}, result.MemberIDs)
	assert.Equal(t, result.KnowledgeBaseID, store.KnowledgeBaseID())
}

func TestRequestRemoveWithoutKnowledgeBase(t *testing.T) {
	store := authedStore(t)
	r := NewResolver(store, newFakeKBService(), models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	_, err := r.RequestRemove(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, domain.ErrNoKnowledgeBase)
}

func TestRequestRemoveEmptyingShortCircuits(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	before := store.KnowledgeBaseID()
	createdBefore := len(kb.created)

	result, err := r.RequestRemove(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	assert.Empty(t, result.MemberIDs)
	assert.Equal(t, []string{"a", "b"}, result.RemovedIDs)
	assert.Len(t, kb.created, createdBefore, "emptying must not create a knowledge base")
	assert.Equal(t, before, store.KnowledgeBaseID(), "session keeps the old pointer")
}

func TestCurrentMembershipWithoutKnowledgeBase(t *testing.T) {
	store := authedStore(t)
	r := NewResolver(store, newFakeKBService(), models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	ids, err := r.CurrentMembership(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestCurrentMembershipFetchFailure(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	r := NewResolver(store, kb, models.DefaultIndexingParams(), nil, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a"})
	require.NoError(t, err)

	kb.listErr = errors.New("unreachable")
	_, err = r.CurrentMembership(context.Background())

	var opErr *domain.IndexOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, domain.PhaseFetch, opErr.Phase)
}

type fakeRecorder struct {
	records [][3]string // kb id, connection id, supersedes
	err     error
}

func (f *fakeRecorder) Record(knowledgeBaseID, connectionID string, _ []string, supersedes string) error {
	f.records = append(f.records, [3]string{knowledgeBaseID, connectionID, supersedes})
	return f.err
}

func TestRecorderReceivesSupersededID(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	rec := &fakeRecorder{}
	r := NewResolver(store, kb, models.DefaultIndexingParams(), rec, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a"})
	require.NoError(t, err)
	first := store.KnowledgeBaseID()

	_, err = r.RequestAdd(context.Background(), []string{"b"})
	require.NoError(t, err)

	require.Len(t, rec.records, 2)
	assert.Equal(t, "", rec.records[0][2])
	assert.Equal(t, first, rec.records[1][2])
}

func TestRecorderFailureDoesNotFailMutation(t *testing.T) {
	store := authedStore(t)
	kb := newFakeKBService()
	rec := &fakeRecorder{err: errors.New("disk full")}
	r := NewResolver(store, kb, models.DefaultIndexingParams(), rec, time.Second, discardLogger())

	_, err := r.RequestAdd(context.Background(), []string{"a"})
	assert.NoError(t, err)
}
