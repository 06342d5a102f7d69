package middleware

import (
	"net/http"

	"github.com/ferg-cod3s/pointerindex/internal/security/auth"
)

// AuthMiddleware gates mutating ingestion endpoints behind a bearer
// credential. GET /healthz and GET /metrics are always reachable so
// orchestrators can probe liveness without a credential.
type AuthMiddleware struct {
	verifier *auth.Verifier
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Middleware returns an HTTP middleware function that validates bearer
// tokens against the configured credential.
func (am *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if am.shouldSkipAuth(r.URL.Path) || !am.verifier.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
		if err != nil {
			am.unauthorized(w, "missing or malformed authorization header")
			return
		}

		if err := am.verifier.Verify(token); err != nil {
			am.unauthorized(w, "invalid bearer token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (am *AuthMiddleware) shouldSkipAuth(path string) bool {
	switch path {
	case "/healthz", "/metrics":
		return true
	default:
		return false
	}
}

func (am *AuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
