package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/eduinstitute/liveclass-server/internal/audit"
	apperrors "github.com/eduinstitute/liveclass-server/internal/errors"
	"github.com/eduinstitute/liveclass-server/internal/util"
)

// AdminAuthMiddleware guards administrator routes with a bearer token
// checked against a bcrypt hash.
type AdminAuthMiddleware struct {
	tokenHash string

	// verified caches the SHA-256 of the last token that passed bcrypt.
	mu       sync.RWMutex
	verified string
}

func NewAdminAuthMiddleware(tokenHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{tokenHash: tokenHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokenHash == "" {
			writeError(w, http.StatusServiceUnavailable, apperrors.ErrCodeInternal, "Admin not configured")
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, apperrors.ErrCodeUnauthorized, "Missing authentication token")
			return
		}

		if !m.validate(token) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"path": r.URL.Path},
			})
			writeError(w, http.StatusUnauthorized, apperrors.ErrCodeUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *AdminAuthMiddleware) validate(token string) bool {
	digest := util.HashToken(token)

	m.mu.RLock()
	cached := m.verified
	m.mu.RUnlock()
	if cached != "" && util.ConstantTimeEqual(cached, digest) {
		return true
	}

	if !util.CheckTokenHash(token, m.tokenHash) {
		return false
	}

	m.mu.Lock()
	m.verified = digest
	m.mu.Unlock()
	return true
}

func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
