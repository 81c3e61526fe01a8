package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/auth"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/contextkeys"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/httputil"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// AccessTokenCookie is the cookie carrying the access token for browser
// clients. API clients send a Bearer header instead; the cookie wins when
// both are present.
const AccessTokenCookie = "access_token"

// Authenticator verifies the caller's token and derives their group scope.
type Authenticator struct {
	verifier auth.Verifier
}

// NewAuthenticator creates authentication middleware around a token verifier.
func NewAuthenticator(verifier auth.Verifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Handler wraps an HTTP handler with authentication. The verified claims
// and the caller scope computed from the token's group paths are stored in
// the request context for downstream guards and handlers.
func (m *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			httputil.WriteUnauthorized(w, "missing access token")
			return
		}

		claims, err := m.verifier.Verify(r.Context(), raw)
		if err != nil {
			httputil.WriteDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), contextkeys.ClaimsKey, claims)
		ctx = context.WithValue(ctx, contextkeys.ScopeKey, claims.Scope())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls the raw access token from the request, preferring the
// auth cookie over the Authorization header.
func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// ClaimsFrom returns the verified claims stored by the Authenticator, or
// nil when the request never passed through it.
func ClaimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(contextkeys.ClaimsKey).(*auth.Claims)
	return claims
}

// ScopeFrom returns the caller scope stored by the Authenticator. The zero
// scope carries no authority, so handlers behind the Authenticator can use
// the result directly.
func ScopeFrom(r *http.Request) scope.CallerScope {
	sc, _ := r.Context().Value(contextkeys.ScopeKey).(scope.CallerScope)
	return sc
}
