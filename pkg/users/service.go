// Package users implements the scoped user directory: listing users through
// the caller's authority, user creation bound into organizations, and
// single-user reachability checks.
package users

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/apperrors"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/authz"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// CreateUserRequest describes a user to create and the organizations to
// bind them into as plain users.
type CreateUserRequest struct {
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Password  string   `json:"password"`
	Orgs      []string `json:"orgs"`
}

// CreateResult reports a successful user creation.
type CreateResult struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Orgs     []string `json:"orgs"`
}

// Service resolves users through the group tree. A fresh admin client is
// acquired per operation.
type Service struct {
	admin  keycloak.Source
	logger *observability.Logger
}

// NewService creates the user service.
func NewService(admin keycloak.Source, logger *observability.Logger) *Service {
	return &Service{admin: admin, logger: logger}
}

// ListScopedUsers returns the users visible to the caller, optionally
// narrowed to an organization or a team within it.
//
// Filtered requests require explicit authority over the filter target.
// Unfiltered requests return the union of everything the caller can see:
// all users for super admins, otherwise the members of the caller's
// admin organizations plus their managed teams.
func (s *Service) ListScopedUsers(ctx context.Context, sc scope.CallerScope, orgName, teamName string) ([]keycloak.User, error) {
	org, team := scope.Normalize(orgName), scope.Normalize(teamName)
	client := s.admin.Admin(ctx)

	switch {
	case team != "" && org == "":
		return nil, apperrors.BadRequest("team filter requires an organization filter")

	case org != "" && team != "":
		if err := authz.RequireTeamManager(sc, org, team); err != nil {
			return nil, err
		}
		return s.usersUnderPath(ctx, client, scope.TeamPath(org, team),
			apperrors.NotFound("team '%s' not found in organization '%s'", team, org))

	case org != "":
		if err := authz.RequireOrgAdmin(sc, org); err != nil {
			return nil, err
		}
		return s.usersUnderPath(ctx, client, scope.OrgPath(org),
			apperrors.NotFound("organization '%s' not found", org))

	default:
		return s.listUnfiltered(ctx, client, sc)
	}
}

func (s *Service) listUnfiltered(ctx context.Context, client keycloak.AdminAPI, sc scope.CallerScope) ([]keycloak.User, error) {
	if sc.IsSuperAdmin {
		users, err := client.ListUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing users: %w", err)
		}
		s.enrich(ctx, client, users)
		return users, nil
	}

	if len(sc.AdminOrgs) == 0 && len(sc.ManagedTeams) == 0 {
		return nil, authz.ErrNoListingAuthority()
	}

	seen := make(map[string]keycloak.User)
	for _, org := range scope.SortedOrgs(sc.AdminOrgs) {
		s.collectByPath(ctx, client, scope.OrgPath(org), seen)
	}
	for _, ref := range scope.SortedTeams(sc.ManagedTeams) {
		s.collectByPath(ctx, client, scope.TeamPath(ref.Org, ref.Team), seen)
	}

	users := make([]keycloak.User, 0, len(seen))
	for _, u := range seen {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	s.enrich(ctx, client, users)
	return users, nil
}

// usersUnderPath walks one subtree; an unresolvable root yields notFound.
func (s *Service) usersUnderPath(ctx context.Context, client keycloak.AdminAPI, path string, notFound error) ([]keycloak.User, error) {
	g, err := client.GetGroupByPath(ctx, path)
	if err != nil || g == nil {
		return nil, notFound
	}

	seen := make(map[string]keycloak.User)
	s.collectMembers(ctx, client, *g, seen)

	users := make([]keycloak.User, 0, len(seen))
	for _, u := range seen {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	s.enrich(ctx, client, users)
	return users, nil
}

// collectByPath is the fail-soft variant used for the unfiltered union: a
// subtree the caller's token still names but the provider no longer serves
// is skipped.
func (s *Service) collectByPath(ctx context.Context, client keycloak.AdminAPI, path string, seen map[string]keycloak.User) {
	g, err := client.GetGroupByPath(ctx, path)
	if err != nil || g == nil {
		return
	}
	s.collectMembers(ctx, client, *g, seen)
}

// collectMembers walks a group subtree, deduplicating users by id.
// Unreadable subgroups are skipped rather than failing the whole walk.
func (s *Service) collectMembers(ctx context.Context, client keycloak.AdminAPI, g keycloak.Group, seen map[string]keycloak.User) {
	members, err := client.GetGroupMembers(ctx, g.ID)
	if err != nil {
		s.logger.WithError(err).WithField("group", g.Path).Warn("skipping unreadable group during member walk")
	} else {
		for _, m := range members {
			seen[m.ID] = m
		}
	}

	for _, sub := range g.SubGroups {
		fresh, err := client.GetGroup(ctx, sub.ID)
		if err != nil {
			s.logger.WithError(err).WithField("group", sub.Path).Warn("skipping unreadable group during member walk")
			continue
		}
		s.collectMembers(ctx, client, *fresh, seen)
	}
}

// enrich attaches each user's group paths; per-user failures leave the
// paths empty.
func (s *Service) enrich(ctx context.Context, client keycloak.AdminAPI, users []keycloak.User) {
	for i := range users {
		paths, err := client.GetUserGroupPaths(ctx, users[i].ID)
		if err != nil {
			continue
		}
		users[i].Groups = paths
	}
}

// Create creates a user and binds them into each requested organization's
// user subgroup. Super admins may target any organization, or none at all;
// org admins only organizations they administer, defaulting to all of them
// when the request names none.
func (s *Service) Create(ctx context.Context, sc scope.CallerScope, req CreateUserRequest) (*CreateResult, error) {
	if req.Username == "" {
		return nil, apperrors.BadRequest("username is required")
	}

	orgNames := scope.NormalizeAll(req.Orgs)

	if !sc.IsSuperAdmin {
		if len(sc.AdminOrgs) == 0 {
			return nil, authz.ErrNoListingAuthority()
		}
		if len(orgNames) == 0 {
			orgNames = scope.SortedOrgs(sc.AdminOrgs)
		}
		var outside []string
		for _, org := range orgNames {
			if !sc.AdminOf(org) {
				outside = append(outside, org)
			}
		}
		if len(outside) > 0 {
			return nil, &authz.ForbiddenError{
				Reason: fmt.Sprintf("not an admin of: %s", strings.Join(outside, ", ")),
			}
		}
	}

	client := s.admin.Admin(ctx)

	// All target organizations must exist before the user is created. A
	// present org whose user subgroup is gone is structural damage, not a
	// caller mistake.
	userGroupIDs := make([]string, 0, len(orgNames))
	for _, org := range orgNames {
		if g, err := client.GetGroupByPath(ctx, scope.OrgPath(org)); err != nil || g == nil {
			return nil, apperrors.NotFound("organization '%s' not found", org)
		}
		g, err := client.GetGroupByPath(ctx, scope.OrgRolePath(org, scope.RoleUser))
		if err != nil || g == nil {
			return nil, fmt.Errorf("organization '%s' is missing its %s role group", org, scope.RoleUser)
		}
		userGroupIDs = append(userGroupIDs, g.ID)
	}

	userID, err := client.CreateUser(ctx, keycloak.UserSpec{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		if keycloak.IsConflict(err) {
			return nil, apperrors.Conflict("user '%s' already exists", req.Username)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	for i, groupID := range userGroupIDs {
		if err := client.AddUserToGroup(ctx, userID, groupID); err != nil {
			return nil, fmt.Errorf("binding user into organization '%s': %w", orgNames[i], err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"username": req.Username, "orgs": strings.Join(orgNames, ","),
	}).Info("user created")
	return &CreateResult{ID: userID, Username: req.Username, Orgs: orgNames}, nil
}

// Get fetches a user if the caller can reach them: super admins always,
// others only when the user belongs to one of the caller's admin
// organizations or managed teams.
func (s *Service) Get(ctx context.Context, sc scope.CallerScope, userID string) (*keycloak.User, error) {
	client := s.admin.Admin(ctx)

	if !sc.IsSuperAdmin {
		paths, err := client.GetUserGroupPaths(ctx, userID)
		if err != nil {
			return nil, apperrors.NotFound("user not found")
		}
		if !userInScope(sc, paths) {
			return nil, authz.ErrCannotViewUser()
		}
	}

	user, err := client.GetUser(ctx, userID)
	if err != nil {
		if keycloak.IsNotFound(err) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	if paths, err := client.GetUserGroupPaths(ctx, userID); err == nil {
		user.Groups = paths
	}
	return user, nil
}

// userInScope reports whether any of the user's group paths fall under the
// caller's admin organizations or managed teams. Membership in the org or
// team group itself counts, not only in its role subgroups.
func userInScope(sc scope.CallerScope, paths []string) bool {
	for _, path := range paths {
		segments := scope.Segments(path)
		if len(segments) >= 1 && sc.AdminOf(segments[0]) {
			return true
		}
		if len(segments) >= 2 && sc.ManagerOf(segments[0], segments[1]) {
			return true
		}
	}
	return false
}

// Delete removes a user from the realm.
func (s *Service) Delete(ctx context.Context, userID string) error {
	client := s.admin.Admin(ctx)

	if err := client.DeleteUser(ctx, userID); err != nil {
		if keycloak.IsNotFound(err) {
			return apperrors.NotFound("user not found")
		}
		return fmt.Errorf("deleting user: %w", err)
	}

	s.logger.WithField("user_id", userID).Info("user deleted")
	return nil
}
