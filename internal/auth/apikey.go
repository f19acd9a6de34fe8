package auth

import (
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"

	"github.com/guna684/book-shop-project-sub001/internal/common"
)

// DefaultServiceKeyHeader carries the shared secret of trusted backend callers.
const DefaultServiceKeyHeader = "X-Service-Key"

// ServiceKey authenticates machine callers such as the payment provider webhook
// against an argon2id hash of their shared key.
type ServiceKey struct {
	Hash   string
	Header string
}

// HashServiceKey derives the argon2id hash stored in configuration for key.
func HashServiceKey(key string) (string, error) {
	return argon2id.CreateHash(key, argon2id.DefaultParams)
}

// Verify reports whether presented matches the configured hash.
func (s ServiceKey) Verify(presented string) bool {
	if s.Hash == "" || presented == "" {
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(presented, s.Hash)
	return err == nil && ok
}

// Require rejects requests that do not present a valid service key. An empty
// hash disables the route entirely.
func (s ServiceKey) Require(next http.Handler) http.Handler {
	header := s.Header
	if header == "" {
		header = DefaultServiceKeyHeader
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Hash == "" {
			common.JSONError(w, http.StatusServiceUnavailable, "SERVICE_KEY_DISABLED", "service key not configured", nil)
			return
		}
		if !s.Verify(strings.TrimSpace(r.Header.Get(header))) {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid service key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
