// Package auth verifies caller credentials and serves the caller's own
// profile and membership views.
//
// Token verification is a black box from the RBAC layer's point of view:
// a token either verifies (signature and expiry checked against the realm's
// published keys) and yields Claims, or it fails with *InvalidTokenError.
// Everything authorization-related is derived from the Groups claim, which
// requires the realm client to have a group-membership mapper enabled.
package auth

import (
	"time"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// Claims are the verified token claims this system consumes.
type Claims struct {
	// Subject is the opaque user id (the "sub" claim).
	Subject string `json:"sub"`
	// Username is the preferred_username claim.
	Username string `json:"preferred_username"`
	// Email is the email claim, when present.
	Email string `json:"email,omitempty"`
	// Groups is the caller's group path list, normalized at verification
	// time so downstream comparisons never see raw casing.
	Groups []string `json:"groups"`
	// Expiry is the token expiry instant.
	Expiry time.Time `json:"-"`
}

// Scope derives the caller's authorization scope from the groups claim.
func (c *Claims) Scope() scope.CallerScope {
	return scope.Compute(c.Groups)
}

// InvalidTokenError indicates a missing, unverifiable or expired credential.
type InvalidTokenError struct {
	Reason string
}

func (e *InvalidTokenError) Error() string {
	if e.Reason == "" {
		return "invalid authentication credentials"
	}
	return "invalid authentication credentials: " + e.Reason
}

// IsInvalidToken reports whether err is an authentication failure.
func IsInvalidToken(err error) bool {
	_, ok := err.(*InvalidTokenError)
	return ok
}
