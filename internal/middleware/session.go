package middleware

import (
	"net/http"
	"strings"

	"driveindex/internal/httputil"
	"driveindex/internal/session"
)

// RequireSession rejects requests with 401 when no authenticated session
// exists. Health and auth endpoints stay open so a logged-out client can
// still log in.
func RequireSession(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !store.IsAuthenticated() {
				httputil.RespondError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func open(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/api/auth/")
}
