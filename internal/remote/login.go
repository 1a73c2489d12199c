package remote

import (
	"context"
	"fmt"
	"log/slog"

	"driveindex/internal/auth"
	"driveindex/internal/session"
)

// LoginFlow orchestrates the full sign-in sequence: password grant, current
// org lookup, connection discovery, then a single batch of session writes.
// The session is only mutated after every remote step has succeeded.
type LoginFlow struct {
	auth     *AuthClient
	dir      *DirectoryClient
	verifier auth.TokenVerifier
	store    session.Store
	logger   *slog.Logger
}

// NewLoginFlow wires the login orchestration.
func NewLoginFlow(authClient *AuthClient, dir *DirectoryClient, verifier auth.TokenVerifier, store session.Store, logger *slog.Logger) *LoginFlow {
	return &LoginFlow{
		auth:     authClient,
		dir:      dir,
		verifier: verifier,
		store:    store,
		logger:   logger,
	}
}

// Login authenticates and populates the session. The first connection
// returned by the directory service becomes the active connection.
func (f *LoginFlow) Login(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	token, err := f.auth.Authenticate(ctx, creds)
	if err != nil {
		return err
	}

	orgID, err := f.auth.CurrentOrg(ctx, token)
	if err != nil {
		return err
	}

	connections, err := f.dir.ListConnections(ctx, token)
	if err != nil {
		return err
	}

	if err := f.store.SetAuthToken(token); err != nil {
		return fmt.Errorf("persist auth token: %w", err)
	}
	if err := f.store.SetOrgID(orgID); err != nil {
		return fmt.Errorf("persist org id: %w", err)
	}
	if len(connections) > 0 {
		if err := f.store.SetConnectionID(connections[0].ConnectionID); err != nil {
			return fmt.Errorf("persist connection id: %w", err)
		}
	} else {
		f.logger.Warn("no connections available for provider", "org_id", orgID)
	}

	f.logger.Info("logged in",
		"org_id", orgID,
		"connections", len(connections),
	)
	return nil
}

// Logout clears the whole session.
func (f *LoginFlow) Logout() error {
	return f.store.Logout()
}

// ValidateSession checks a restored session's access token and discards the
// session when the token no longer verifies. Returns whether the session is
// usable afterwards.
func (f *LoginFlow) ValidateSession() (bool, error) {
	token := f.store.AuthToken()
	if token == "" {
		return false, nil
	}

	if _, err := f.verifier.Verify(token); err != nil {
		f.logger.Warn("persisted session token no longer valid, clearing session")
		if err := f.store.Logout(); err != nil {
			return false, fmt.Errorf("clear stale session: %w", err)
		}
		return false, nil
	}

	return true, nil
}
