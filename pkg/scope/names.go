package scope

import (
	"fmt"
	"strings"
)

// Kind identifies which entity a name is being validated for.
type Kind string

const (
	KindOrganization Kind = "Organization"
	KindTeam         Kind = "Team"
)

// reservedNames are names that must never be used for org/team groups so
// that container names cannot collide with role subgroup names when a path
// is parsed. Plural and future variants are reserved too.
var reservedNames = map[string]struct{}{
	"admin":       {},
	"super-admin": {},
	"user":        {},
	"manager":     {},
	"member":      {},
	"admins":      {},
	"users":       {},
	"managers":    {},
	"members":     {},
	"role":        {},
	"roles":       {},
}

// InvalidNameError indicates an empty or otherwise unusable org/team name.
type InvalidNameError struct {
	Kind Kind
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("%s name is required", strings.ToLower(string(e.Kind)))
}

// ReservedNameError indicates an org/team name that collides with a role
// subgroup name.
type ReservedNameError struct {
	Kind Kind
	Name string
}

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("%s name %q is reserved and cannot be used", strings.ToLower(string(e.Kind)), e.Name)
}

// Normalize lowercases and trims a name or path segment. Keycloak path
// matching is case-sensitive, so every name that ends up in a group path has
// to go through this before it is compared or stored.
func Normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizeAll normalizes every entry of a list, preserving order.
func NormalizeAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, Normalize(v))
	}
	return out
}

// ValidateName normalizes a raw org/team name and rejects empty or reserved
// values. It returns the normalized name on success.
func ValidateName(raw string, kind Kind) (string, error) {
	name := Normalize(raw)
	if name == "" {
		return "", &InvalidNameError{Kind: kind}
	}
	if _, reserved := reservedNames[name]; reserved {
		return "", &ReservedNameError{Kind: kind, Name: raw}
	}
	return name, nil
}

// IsReserved reports whether a normalized name is in the reserved set.
func IsReserved(name string) bool {
	_, ok := reservedNames[Normalize(name)]
	return ok
}

// IsNameError reports whether err is a validation failure from ValidateName.
func IsNameError(err error) bool {
	switch err.(type) {
	case *InvalidNameError, *ReservedNameError:
		return true
	}
	return false
}
