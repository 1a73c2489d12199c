package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveindex/internal/domain"
	"driveindex/internal/domain/models"
)

func TestCreateKnowledgeBase(t *testing.T) {
	var gotBody createKnowledgeBaseRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/knowledge_bases", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"knowledge_base_id": "kb-new"})
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, testLogger())
	params := models.DefaultIndexingParams()

	kb, err := client.Create(context.Background(), "token", "conn-1", []string{"a", "b"}, params)
	require.NoError(t, err)

	assert.Equal(t, "kb-new", kb.KnowledgeBaseID)
	assert.Equal(t, "conn-1", gotBody.ConnectionID)
	assert.Equal(t, []string{"a", "b"}, gotBody.ConnectionSourceIDs)
	assert.Equal(t, "text-embedding-ada-002", gotBody.IndexingParams.EmbeddingParams.EmbeddingModel)
	assert.Equal(t, 1500, gotBody.IndexingParams.ChunkerParams.ChunkSize)
}

func TestCreateKnowledgeBaseGuards(t *testing.T) {
	client := NewKnowledgeBaseClient("http://unused", testLogger())
	params := models.DefaultIndexingParams()

	_, err := client.Create(context.Background(), "", "conn-1", nil, params)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = client.Create(context.Background(), "token", "", nil, params)
	assert.ErrorIs(t, err, domain.ErrNoConnection)
}

func TestCreateKnowledgeBaseMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, testLogger())
	_, err := client.Create(context.Background(), "token", "conn-1", []string{"a"}, models.DefaultIndexingParams())

	var remoteErr *domain.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Message, "no knowledge_base_id")
}

func TestSyncKnowledgeBase(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, testLogger())
	err := client.Sync(context.Background(), "token", "org-1", "kb-1")
	require.NoError(t, err)

	assert.Equal(t, "/knowledge_bases/sync/trigger/kb-1/org-1", gotPath)
}

func TestListMembersDefaultsToRootPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/knowledge_bases/kb-1/resources/children", r.URL.Path)
		require.Equal(t, "/", r.URL.Query().Get("resource_path"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{"resource_id": "a", "inode_type": "file", "inode_path": map[string]string{"path": "/a.txt"}},
			},
		})
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, testLogger())
	members, err := client.ListMembers(context.Background(), "token", "kb-1", "")
	require.NoError(t, err)

	require.Len(t, members, 1)
	assert.Equal(t, "a", members[0].ResourceID)
}

func TestDeleteMember(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/knowledge_bases/kb-1/resources", r.URL.Path)
		require.Equal(t, "/docs/report.pdf", r.URL.Query().Get("resource_path"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, testLogger())
	err := client.DeleteMember(context.Background(), "token", "kb-1", "/docs/report.pdf")
	assert.NoError(t, err)
}

func TestDeleteMemberFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewKnowledgeBaseClient(srv.URL, testLogger())
	err := client.DeleteMember(context.Background(), "token", "kb-1", "/missing")

	var remoteErr *domain.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusNotFound, remoteErr.Status)
}
