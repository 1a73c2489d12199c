package remote

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"driveindex/internal/domain"
	"driveindex/internal/domain/models"
)

// DirectoryClient lists connections and traverses the resource tree a
// connection exposes. Pure read; pagination is purely additive and the
// caller accumulates pages across cursors.
type DirectoryClient struct {
	apiURL     string
	provider   string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDirectoryClient creates a directory client scoped to one connection
// provider (e.g. "gdrive").
func NewDirectoryClient(apiURL, provider string, limit int, logger *slog.Logger) *DirectoryClient {
	if limit <= 0 {
		limit = 10
	}
	return &DirectoryClient{
		apiURL:     apiURL,
		provider:   provider,
		limit:      limit,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// ListConnections returns the configured provider connections for the
// authenticated user.
func (c *DirectoryClient) ListConnections(ctx context.Context, token string) ([]models.Connection, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	endpoint := fmt.Sprintf("%s/connections?connection_provider=%s&limit=%d",
		c.apiURL, url.QueryEscape(c.provider), c.limit)

	var connections []models.Connection
	if err := getJSON(ctx, c.httpClient, "list connections", endpoint, token, &connections); err != nil {
		return nil, err
	}
	return connections, nil
}

// ListChildren lists one page of resources under parentResourceID (the
// connection root when empty). cursor continues a previous page.
func (c *DirectoryClient) ListChildren(ctx context.Context, token, connectionID, parentResourceID, cursor string) (models.ResourcePage, error) {
	var page models.ResourcePage

	if token == "" {
		return page, domain.ErrUnauthenticated
	}
	if connectionID == "" {
		return page, domain.ErrNoConnection
	}

	endpoint := fmt.Sprintf("%s/connections/%s/resources/children", c.apiURL, url.PathEscape(connectionID))
	query := url.Values{}
	if parentResourceID != "" {
		query.Set("resource_id", parentResourceID)
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	if err := getJSON(ctx, c.httpClient, "list resources", endpoint, token, &page); err != nil {
		return models.ResourcePage{}, err
	}
	return page, nil
}
