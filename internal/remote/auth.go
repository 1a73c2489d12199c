package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"driveindex/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Credentials is a password-grant login request.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credentials before they go on the wire.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email,
			validation.Required,
			validation.Match(emailPattern).Error("must be a valid email address"),
		),
		validation.Field(&c.Password, validation.Required),
	)
}

// AuthClient talks to the GoTrue-style authentication service (password
// grant) and to the backend's current-organization endpoint.
type AuthClient struct {
	authURL    string
	apiURL     string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuthClient creates the authentication client. anonKey is the public
// API key the auth service expects alongside password-grant requests.
func NewAuthClient(authURL, apiURL, anonKey string, logger *slog.Logger) *AuthClient {
	return &AuthClient{
		authURL:    authURL,
		apiURL:     apiURL,
		anonKey:    anonKey,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// GoTrue rejects password grants without this field, even empty.
	GotrueMetaSecurity map[string]interface{} `json:"gotrue_meta_security"`
}

type passwordGrantResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate exchanges credentials for an access token.
func (c *AuthClient) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	payload, err := json.Marshal(passwordGrantRequest{
		Email:              creds.Email,
		Password:           creds.Password,
		GotrueMetaSecurity: map[string]interface{}{},
	})
	if err != nil {
		return "", fmt.Errorf("marshal auth request: %w", err)
	}

	url := c.authURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", remoteError("authenticate", resp)
	}

	var grant passwordGrantResponse
	if err := json.NewDecoder(resp.Body).Decode(&grant); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if grant.AccessToken == "" {
		return "", &domain.RemoteServiceError{
			Op:      "authenticate",
			Status:  resp.StatusCode,
			Message: "response carried no access token",
		}
	}

	c.logger.Debug("authenticated", "email", creds.Email)
	return grant.AccessToken, nil
}

type currentOrgResponse struct {
	OrgID string `json:"org_id"`
}

// CurrentOrg fetches the organization the authenticated user belongs to.
func (c *AuthClient) CurrentOrg(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthenticated
	}

	var org currentOrgResponse
	url := c.apiURL + "/organizations/me/current"
	if err := getJSON(ctx, c.httpClient, "fetch current org", url, token, &org); err != nil {
		return "", err
	}
	if org.OrgID == "" {
		return "", &domain.RemoteServiceError{
			Op:      "fetch current org",
			Status:  http.StatusOK,
			Message: "response carried no org_id",
		}
	}
	return org.OrgID, nil
}
