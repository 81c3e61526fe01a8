// Package authz holds the per-operation authorization predicates.
//
// Every predicate consumes a scope.CallerScope plus the request's path
// parameters and returns nil or a *ForbiddenError naming the exact missing
// authority. Denials are never generic: the caller is told which org or team
// they lack authority over, which keeps client errors actionable and the
// predicates testable.
package authz

import (
	"fmt"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// ForbiddenError indicates an authenticated caller lacking a specific
// authority.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

// IsForbidden reports whether err is an authorization denial.
func IsForbidden(err error) bool {
	_, ok := err.(*ForbiddenError)
	return ok
}

// ErrNotSuperAdmin denies an operation reserved for super admins.
func ErrNotSuperAdmin() *ForbiddenError {
	return &ForbiddenError{Reason: "super admin privileges required"}
}

// ErrNotOrgAdmin denies an operation requiring admin authority over org.
func ErrNotOrgAdmin(org string) *ForbiddenError {
	return &ForbiddenError{Reason: fmt.Sprintf("not an admin of organization %q", scope.Normalize(org))}
}

// ErrNotTeamManager denies an operation requiring manager authority over a
// team.
func ErrNotTeamManager(org, team string) *ForbiddenError {
	return &ForbiddenError{Reason: fmt.Sprintf("not a manager of team %q in organization %q", scope.Normalize(team), scope.Normalize(org))}
}

// ErrNoListingAuthority denies an unscoped listing from a caller holding no
// admin or manager role at all.
func ErrNoListingAuthority() *ForbiddenError {
	return &ForbiddenError{Reason: "no admin or manager authority to list users"}
}

// ErrCannotViewUser denies a single-user lookup outside the caller's scope.
func ErrCannotViewUser() *ForbiddenError {
	return &ForbiddenError{Reason: "target user is outside your administrative scope"}
}

// RequireSuperAdmin allows only super admins.
func RequireSuperAdmin(sc scope.CallerScope) error {
	if sc.IsSuperAdmin {
		return nil
	}
	return ErrNotSuperAdmin()
}

// RequireOrgAdmin allows super admins and admins of the given org. The org
// parameter is normalized before comparison so differently-cased request
// paths still match.
func RequireOrgAdmin(sc scope.CallerScope, org string) error {
	if sc.IsSuperAdmin || sc.AdminOf(org) {
		return nil
	}
	return ErrNotOrgAdmin(org)
}

// RequireTeamManager allows super admins, admins of the team's org, and
// managers of the team itself. Org-admin supersedes team-manager: an org
// admin manages every team in that org without an explicit manager binding.
func RequireTeamManager(sc scope.CallerScope, org, team string) error {
	if sc.IsSuperAdmin || sc.AdminOf(org) || sc.ManagerOf(org, team) {
		return nil
	}
	return ErrNotTeamManager(org, team)
}
