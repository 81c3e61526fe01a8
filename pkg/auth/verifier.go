package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// Verifier validates a raw bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// OIDCVerifier verifies realm-issued tokens against the realm's JWKS,
// discovered from the issuer. Signature and expiry checks are delegated to
// go-oidc; this type only shapes the claims.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ Verifier = (*OIDCVerifier)(nil)

// NewOIDCVerifier discovers the issuer and builds a verifier. The access
// tokens Keycloak issues carry the frontend audience, so the client id
// check is skipped; signature and expiry are still enforced.
func NewOIDCVerifier(ctx context.Context, issuerURL string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})
	return &OIDCVerifier{verifier: verifier}, nil
}

// Verify checks the token and extracts claims. Any failure, including
// expiry, yields *InvalidTokenError.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, &InvalidTokenError{Reason: err.Error()}
	}

	var payload struct {
		PreferredUsername string   `json:"preferred_username"`
		Email             string   `json:"email"`
		Groups            []string `json:"groups"`
	}
	if err := idToken.Claims(&payload); err != nil {
		return nil, &InvalidTokenError{Reason: "malformed claims"}
	}

	return &Claims{
		Subject:  idToken.Subject,
		Username: payload.PreferredUsername,
		Email:    payload.Email,
		Groups:   scope.NormalizeAll(payload.Groups),
		Expiry:   idToken.Expiry,
	}, nil
}

// StaticClaims builds normalized Claims directly, bypassing verification.
// It exists for tests and for trusted in-process callers only.
func StaticClaims(subject string, groups []string) *Claims {
	return &Claims{
		Subject: subject,
		Groups:  scope.NormalizeAll(groups),
		Expiry:  time.Now().Add(time.Hour),
	}
}
