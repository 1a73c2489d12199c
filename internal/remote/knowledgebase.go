package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"driveindex/internal/domain"
	"driveindex/internal/domain/models"
)

// KnowledgeBaseClient wraps the knowledge base service. The service only
// supports whole-set creation: there is no incremental member add, which is
// why the resolver recreates the knowledge base on every membership change.
// Member removal by path is the single incremental operation it offers.
type KnowledgeBaseClient struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewKnowledgeBaseClient creates the knowledge base client.
func NewKnowledgeBaseClient(apiURL string, logger *slog.Logger) *KnowledgeBaseClient {
	return &KnowledgeBaseClient{
		apiURL:     apiURL,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

type createKnowledgeBaseRequest struct {
	ConnectionID        string                `json:"connection_id"`
	ConnectionSourceIDs []string              `json:"connection_source_ids"`
	IndexingParams      models.IndexingParams `json:"indexing_params"`
}

// Create builds a new knowledge base over the full member set and returns
// it. The previous knowledge base, if any, is untouched and becomes
// orphaned once the session points elsewhere.
func (c *KnowledgeBaseClient) Create(ctx context.Context, token, connectionID string, memberIDs []string, params models.IndexingParams) (models.KnowledgeBase, error) {
	var kb models.KnowledgeBase

	if token == "" {
		return kb, domain.ErrUnauthenticated
	}
	if connectionID == "" {
		return kb, domain.ErrNoConnection
	}

	payload, err := json.Marshal(createKnowledgeBaseRequest{
		ConnectionID:        connectionID,
		ConnectionSourceIDs: memberIDs,
		IndexingParams:      params,
	})
	if err != nil {
		return kb, fmt.Errorf("marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/knowledge_bases", bytes.NewReader(payload))
	if err != nil {
		return kb, fmt.Errorf("create knowledge base request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return kb, fmt.Errorf("create knowledge base: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return kb, remoteError("create knowledge base", resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&kb); err != nil {
		return kb, fmt.Errorf("decode knowledge base response: %w", err)
	}
	if kb.KnowledgeBaseID == "" {
		return kb, &domain.RemoteServiceError{
			Op:      "create knowledge base",
			Status:  resp.StatusCode,
			Message: "response carried no knowledge_base_id",
		}
	}

	c.logger.Info("knowledge base created",
		"knowledge_base_id", kb.KnowledgeBaseID,
		"members", len(memberIDs),
	)
	return kb, nil
}

// Sync triggers remote (re)processing of the knowledge base's members and
// waits for the HTTP acknowledgment. Callers invalidate caches right after
// a mutation, so returning before the ack could race a refetch that still
// sees the pre-sync state.
func (c *KnowledgeBaseClient) Sync(ctx context.Context, token, orgID, knowledgeBaseID string) error {
	if token == "" {
		return domain.ErrUnauthenticated
	}

	endpoint := fmt.Sprintf("%s/knowledge_bases/sync/trigger/%s/%s",
		c.apiURL, url.PathEscape(knowledgeBaseID), url.PathEscape(orgID))
	return getJSON(ctx, c.httpClient, "sync knowledge base", endpoint, token, nil)
}

// ListMembers returns the full member listing of a knowledge base under
// resourcePath ("/" for the whole set). This is the authoritative
// membership read; it is never served from a cache.
func (c *KnowledgeBaseClient) ListMembers(ctx context.Context, token, knowledgeBaseID, resourcePath string) ([]models.Resource, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	if resourcePath == "" {
		resourcePath = "/"
	}

	endpoint := fmt.Sprintf("%s/knowledge_bases/%s/resources/children?resource_path=%s",
		c.apiURL, url.PathEscape(knowledgeBaseID), url.QueryEscape(resourcePath))

	var page models.ResourcePage
	if err := getJSON(ctx, c.httpClient, "list knowledge base members", endpoint, token, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

// DeleteMember removes a single path-addressed member from the knowledge
// base. This is the only incremental mutation the remote service supports;
// set-based removal goes through whole-set recreation instead.
func (c *KnowledgeBaseClient) DeleteMember(ctx context.Context, token, knowledgeBaseID, resourcePath string) error {
	if token == "" {
		return domain.ErrUnauthenticated
	}

	endpoint := fmt.Sprintf("%s/knowledge_bases/%s/resources?resource_path=%s",
		c.apiURL, url.PathEscape(knowledgeBaseID), url.QueryEscape(resourcePath))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create delete member request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete knowledge base member: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return remoteError("delete knowledge base member", resp)
	}
	return nil
}
