// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/Ahmad2Einieh/new-keycloack/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.ClaimsKey, claims)
//   claims := ctx.Value(contextkeys.ClaimsKey).(*auth.Claims)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ClaimsKey contains *auth.Claims
	// Set by: middleware.Authenticator (pkg/middleware/auth.go)
	// Required by: All protected API endpoints, guard middleware
	// Type: *auth.Claims
	ClaimsKey Key = "auth_claims"

	// ScopeKey contains scope.CallerScope derived from the claims' groups
	// Set by: middleware.Authenticator
	// Required by: Guard middleware, scoped user listing
	// Type: scope.CallerScope
	ScopeKey Key = "caller_scope"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: Logger, X-Request-ID response header
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// RequestIDFrom extracts the request ID from the context, or "" when unset.
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}
