package scope

import "strings"

// Role subgroup names. These are the only legal values for the role position
// of a group path.
const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RoleManager = "manager"
	RoleMember  = "member"
)

// SuperAdminPath is the singleton top-level group whose members hold global
// authority. It is a role group, not an organization.
const SuperAdminPath = "/super-admin"

// SuperAdminName is the reserved top-level segment of SuperAdminPath.
const SuperAdminName = "super-admin"

// OrgPath returns the root group path for an organization.
func OrgPath(org string) string {
	return "/" + Normalize(org)
}

// OrgRolePath returns the path of an org-level role subgroup, e.g.
// OrgRolePath("acme", RoleAdmin) == "/acme/admin".
func OrgRolePath(org, role string) string {
	return "/" + Normalize(org) + "/" + role
}

// TeamPath returns the root group path for a team within an org.
func TeamPath(org, team string) string {
	return "/" + Normalize(org) + "/" + Normalize(team)
}

// TeamRolePath returns the path of a team-level role subgroup, e.g.
// TeamRolePath("acme", "payments", RoleManager) == "/acme/payments/manager".
func TeamRolePath(org, team, role string) string {
	return "/" + Normalize(org) + "/" + Normalize(team) + "/" + role
}

// Segments splits a group path into its normalized non-empty segments.
// Empty segments produced by leading, trailing or doubled slashes are
// filtered out, which is what makes malformed paths degrade to fewer
// segments instead of breaking parsing.
func Segments(path string) []string {
	parts := strings.Split(Normalize(path), "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TeamRef identifies a team by its organization and name.
type TeamRef struct {
	Org  string `json:"org"`
	Team string `json:"team"`
}
