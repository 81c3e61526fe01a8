// Package scope defines the group-path hierarchy and derives authorization
// scopes from a caller's group memberships.
//
// The hierarchy is three levels deep and entirely encoded in Keycloak group
// paths:
//
//	/{org}                   organization root
//	/{org}/admin             org administrators
//	/{org}/user              org users
//	/{org}/{team}            team root
//	/{org}/{team}/manager    team managers
//	/{org}/{team}/member     team members
//	/super-admin             global super administrators (singleton)
//
// All parsing is pure and order-independent: the functions here take a flat
// list of group paths (typically the "groups" claim of a verified token) and
// produce sets. Malformed paths are dropped rather than rejected, so a bad
// group in a token degrades to "no privilege" instead of failing the whole
// request.
package scope
