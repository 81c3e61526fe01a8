package scope

import "sort"

// CallerScope is the authorization scope derived from a caller's group
// memberships. It is computed once per request from the verified token's
// groups claim and never cached beyond that request, because memberships can
// change between requests.
type CallerScope struct {
	// IsSuperAdmin is true iff the caller is a member of /super-admin.
	IsSuperAdmin bool
	// AdminOrgs holds every org the caller administers (/{org}/admin).
	AdminOrgs map[string]struct{}
	// ManagedTeams holds every team the caller manages (/{org}/{team}/manager).
	ManagedTeams map[TeamRef]struct{}
	// MemberTeams holds every team the caller is a plain member of.
	MemberTeams map[TeamRef]struct{}
	// MemberOrgs holds every org the caller appears anywhere under,
	// excluding the super-admin singleton.
	MemberOrgs map[string]struct{}
	// Groups is the normalized raw group list the scope was computed from.
	Groups []string
}

// Compute derives a CallerScope from a flat list of group paths.
func Compute(paths []string) CallerScope {
	normalized := NormalizeAll(paths)
	return CallerScope{
		IsSuperAdmin: IsSuperAdmin(normalized),
		AdminOrgs:    ParseAdminOrgs(normalized),
		ManagedTeams: ParseManagedTeams(normalized),
		MemberTeams:  ParseMemberTeams(normalized),
		MemberOrgs:   ParseMemberOrgs(normalized),
		Groups:       normalized,
	}
}

// AdminOf reports whether the scope includes org-admin authority over org.
func (s CallerScope) AdminOf(org string) bool {
	_, ok := s.AdminOrgs[Normalize(org)]
	return ok
}

// ManagerOf reports whether the scope includes manager authority over the
// given team.
func (s CallerScope) ManagerOf(org, team string) bool {
	_, ok := s.ManagedTeams[TeamRef{Org: Normalize(org), Team: Normalize(team)}]
	return ok
}

// IsSuperAdmin reports whether the exact singleton path /super-admin is
// present. Deeper paths under it (e.g. /super-admin/foo) do not qualify.
func IsSuperAdmin(paths []string) bool {
	for _, p := range paths {
		parts := Segments(p)
		if len(parts) == 1 && parts[0] == SuperAdminName {
			return true
		}
	}
	return false
}

// ParseAdminOrgs extracts org names from org-admin paths, e.g.
// "/acme/admin" -> "acme". A path qualifies iff it has exactly two non-empty
// segments and the second is "admin".
func ParseAdminOrgs(paths []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, p := range paths {
		parts := Segments(p)
		if len(parts) == 2 && parts[1] == RoleAdmin {
			out[parts[0]] = struct{}{}
		}
	}
	return out
}

// ParseManagedTeams extracts (org, team) pairs from team-manager paths, e.g.
// "/acme/payments/manager" -> {acme, payments}.
func ParseManagedTeams(paths []string) map[TeamRef]struct{} {
	return parseTeamRole(paths, RoleManager)
}

// ParseMemberTeams extracts (org, team) pairs from team-member paths, e.g.
// "/acme/payments/member" -> {acme, payments}.
func ParseMemberTeams(paths []string) map[TeamRef]struct{} {
	return parseTeamRole(paths, RoleMember)
}

func parseTeamRole(paths []string, role string) map[TeamRef]struct{} {
	out := make(map[TeamRef]struct{})
	for _, p := range paths {
		parts := Segments(p)
		if len(parts) == 3 && parts[2] == role {
			out[TeamRef{Org: parts[0], Team: parts[1]}] = struct{}{}
		}
	}
	return out
}

// ParseMemberOrgs extracts every org the caller belongs to in any capacity:
// any path with two or more segments contributes its first segment. The
// super-admin singleton is never an organization and is excluded.
func ParseMemberOrgs(paths []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, p := range paths {
		parts := Segments(p)
		if len(parts) >= 2 {
			out[parts[0]] = struct{}{}
		}
	}
	delete(out, SuperAdminName)
	return out
}

// SortedOrgs returns a set of org names as a sorted slice, for deterministic
// output and iteration order.
func SortedOrgs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for org := range set {
		out = append(out, org)
	}
	sort.Strings(out)
	return out
}

// SortedTeams returns a set of team refs sorted by (org, team).
func SortedTeams(set map[TeamRef]struct{}) []TeamRef {
	out := make([]TeamRef, 0, len(set))
	for ref := range set {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Org != out[j].Org {
			return out[i].Org < out[j].Org
		}
		return out[i].Team < out[j].Team
	})
	return out
}
