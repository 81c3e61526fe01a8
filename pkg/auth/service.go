package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/apperrors"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// TokenEndpoint is the slice of the token client the service needs.
type TokenEndpoint interface {
	PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenSet, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Service handles login passthrough and the caller's own profile.
type Service struct {
	tokens TokenEndpoint
	admin  keycloak.Source
	logger *observability.Logger
}

// NewService creates an auth service.
func NewService(tokens TokenEndpoint, admin keycloak.Source, logger *observability.Logger) *Service {
	return &Service{tokens: tokens, admin: admin, logger: logger}
}

// Login authenticates a user against the realm and returns the token set.
// Any provider rejection is an authentication failure, never a server error.
func (s *Service) Login(ctx context.Context, username, password string) (*keycloak.TokenSet, error) {
	tokens, err := s.tokens.PasswordGrant(ctx, username, password)
	if err != nil {
		s.logger.WithField("username", scope.Normalize(username)).Warn("login failed")
		return nil, &InvalidTokenError{Reason: "invalid credentials"}
	}
	s.logger.WithField("username", scope.Normalize(username)).Info("login successful")
	return tokens, nil
}

// Refresh exchanges a refresh token for a fresh token set.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*keycloak.TokenSet, error) {
	tokens, err := s.tokens.RefreshGrant(ctx, refreshToken)
	if err != nil {
		return nil, &InvalidTokenError{Reason: "invalid refresh token"}
	}
	return tokens, nil
}

// Logout invalidates the caller's session at the provider. A provider
// failure is surfaced so the boundary can decide whether to still clear
// cookies.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokens.Logout(ctx, refreshToken); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// MyProfile fetches the caller's own user record.
func (s *Service) MyProfile(ctx context.Context, subject string) (*keycloak.User, error) {
	kc := s.admin.Admin(ctx)
	user, err := kc.GetUser(ctx, subject)
	if err != nil {
		return nil, notFoundIfProviderError(err, "user")
	}
	return user, nil
}

// UpdateMyProfile applies a partial profile update for the caller.
func (s *Service) UpdateMyProfile(ctx context.Context, subject string, update keycloak.UserUpdate) error {
	kc := s.admin.Admin(ctx)
	if err := kc.UpdateUser(ctx, subject, update); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	s.logger.WithField("user_id", subject).Info("profile updated")
	return nil
}

// UpdateMyPassword replaces the caller's password.
func (s *Service) UpdateMyPassword(ctx context.Context, subject, newPassword string) error {
	kc := s.admin.Admin(ctx)
	if err := kc.SetUserPassword(ctx, subject, newPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.WithField("user_id", subject).Info("password updated")
	return nil
}

// SendVerificationEmail triggers a verification email for the caller.
func (s *Service) SendVerificationEmail(ctx context.Context, subject string) error {
	kc := s.admin.Admin(ctx)
	if err := kc.SendVerifyEmail(ctx, subject); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

// Memberships is the caller-facing summary of a scope.
type Memberships struct {
	IsSuperAdmin bool            `json:"is_super_admin"`
	Orgs         []string        `json:"orgs"`
	AdminOrgs    []string        `json:"admin_orgs"`
	ManagedTeams []scope.TeamRef `json:"managed_teams"`
	MemberTeams  []scope.TeamRef `json:"member_teams"`
	RawGroups    []string        `json:"raw_groups"`
}

// MembershipsFor summarizes the caller's orgs, teams and roles from the
// groups claim. Pure; no provider calls.
func MembershipsFor(claims *Claims) Memberships {
	sc := claims.Scope()
	return Memberships{
		IsSuperAdmin: sc.IsSuperAdmin,
		Orgs:         scope.SortedOrgs(sc.MemberOrgs),
		AdminOrgs:    scope.SortedOrgs(sc.AdminOrgs),
		ManagedTeams: scope.SortedTeams(sc.ManagedTeams),
		MemberTeams:  scope.SortedTeams(sc.MemberTeams),
		RawGroups:    sc.Groups,
	}
}

// notFoundIfProviderError collapses provider read failures into not-found:
// a failed lookup and an absent record are indistinguishable to the caller.
func notFoundIfProviderError(err error, resource string) error {
	var apiErr *keycloak.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NotFound("%s not found", resource)
	}
	return err
}
