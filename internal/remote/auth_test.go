package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveindex/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{"valid", Credentials{Email: "user@example.com", Password: "secret"}, false},
		{"missing email", Credentials{Password: "secret"}, true},
		{"missing password", Credentials{Email: "user@example.com"}, true},
		{"malformed email", Credentials{Email: "not-an-email", Password: "secret"}, true},
		{"email without domain", Credentials{Email: "user@", Password: "secret"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	var gotApikey string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))
		gotApikey = r.Header.Get("Apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "jwt-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL, srv.URL, "anon-key", testLogger())
	token, err := client.Authenticate(context.Background(), Credentials{Email: "u@e.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "jwt-token", token)
	assert.Equal(t, "anon-key", gotApikey)
	assert.Equal(t, "u@e.com", gotBody["email"])
	// GoTrue rejects password grants without this field
	assert.Contains(t, gotBody, "gotrue_meta_security")
}

func TestAuthenticateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL, srv.URL, "anon-key", testLogger())
	_, err := client.Authenticate(context.Background(), Credentials{Email: "u@e.com", Password: "wrong"})

	var remoteErr *domain.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.Status)
}

func TestAuthenticateEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"token_type": "bearer"})
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL, srv.URL, "anon-key", testLogger())
	_, err := client.Authenticate(context.Background(), Credentials{Email: "u@e.com", Password: "pw"})

	var remoteErr *domain.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Message, "no access token")
}

func TestCurrentOrg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/organizations/me/current", r.URL.Path)
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{"org_id": "org-42"})
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL, srv.URL, "anon-key", testLogger())
	orgID, err := client.CurrentOrg(context.Background(), "token")
	require.NoError(t, err)
	assert.Equal(t, "org-42", orgID)
}

func TestCurrentOrgGuards(t *testing.T) {
	client := NewAuthClient("http://unused", "http://unused", "anon-key", testLogger())

	_, err := client.CurrentOrg(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCurrentOrgMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	client := NewAuthClient(srv.URL, srv.URL, "anon-key", testLogger())
	_, err := client.CurrentOrg(context.Background(), "token")

	var remoteErr *domain.RemoteServiceError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Message, "no org_id")
}
