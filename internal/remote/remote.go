// Package remote contains the HTTP clients for the three external
// collaborators: the authentication service, the directory service and the
// knowledge base service. Clients are thin wire wrappers; the consistency
// rules live in internal/indexing.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"driveindex/internal/domain"
)

const defaultTimeout = 30 * time.Second

// newHTTPClient returns the shared client configuration for all remote
// calls. Per-operation deadlines come from the caller's context.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// remoteError turns a non-2xx response into a typed RemoteServiceError,
// carrying the upstream status and (truncated) body for diagnostics.
func remoteError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &domain.RemoteServiceError{
		Op:      op,
		Status:  resp.StatusCode,
		Message: string(body),
	}
}

// getJSON performs an authorized GET and decodes the response body.
func getJSON(ctx context.Context, client *http.Client, op, url, token string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return remoteError(op, resp)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
