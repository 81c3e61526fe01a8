// Package teams manages team lifecycle inside an organization: the team
// group, its fixed manager/member role subgroups, and role membership.
package teams

import (
	"context"
	"fmt"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/apperrors"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// Team is the service view over a team's group.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Org  string `json:"org"`
	Path string `json:"path"`
}

// CreateTeamRequest describes a team to create. ManagerUsername optionally
// names the initial manager.
type CreateTeamRequest struct {
	Name            string `json:"name"`
	ManagerUsername string `json:"manager_username,omitempty"`
}

// Service implements team lifecycle over the identity provider's group
// tree. A fresh admin client is acquired per operation.
type Service struct {
	admin  keycloak.Source
	logger *observability.Logger
}

// NewService creates the team service.
func NewService(admin keycloak.Source, logger *observability.Logger) *Service {
	return &Service{admin: admin, logger: logger}
}

// List returns the teams of an organization: the subgroups of the org root
// minus the fixed admin/user role subgroups.
func (s *Service) List(ctx context.Context, orgName string) ([]Team, error) {
	org := scope.Normalize(orgName)
	client := s.admin.Admin(ctx)

	g, err := client.GetGroupByPath(ctx, scope.OrgPath(org))
	if err != nil || g == nil {
		return nil, apperrors.NotFound("organization '%s' not found", org)
	}

	out := []Team{}
	for _, sub := range g.SubGroups {
		if sub.Name == scope.RoleAdmin || sub.Name == scope.RoleUser {
			continue
		}
		out = append(out, Team{ID: sub.ID, Name: sub.Name, Org: org, Path: sub.Path})
	}
	return out, nil
}

// Create provisions a team under an existing organization: the team group
// plus its manager and member subgroups, and optionally the initial manager
// binding. Like organization creation there is no rollback on partial
// failure.
func (s *Service) Create(ctx context.Context, orgName string, req CreateTeamRequest) (*Team, error) {
	org := scope.Normalize(orgName)

	name, err := scope.ValidateName(req.Name, scope.KindTeam)
	if err != nil {
		return nil, err
	}

	client := s.admin.Admin(ctx)

	parent, err := client.GetGroupByPath(ctx, scope.OrgPath(org))
	if err != nil || parent == nil {
		return nil, apperrors.NotFound("organization '%s' not found", org)
	}

	teamID, err := client.CreateChildGroup(ctx, parent.ID, name)
	if err != nil {
		if keycloak.IsConflict(err) {
			return nil, apperrors.Conflict("team '%s' already exists in organization '%s'", name, org)
		}
		return nil, fmt.Errorf("creating team group: %w", err)
	}

	managerID, err := client.CreateChildGroup(ctx, teamID, scope.RoleManager)
	if err != nil {
		return nil, fmt.Errorf("creating manager subgroup: %w", err)
	}
	if _, err := client.CreateChildGroup(ctx, teamID, scope.RoleMember); err != nil {
		return nil, fmt.Errorf("creating member subgroup: %w", err)
	}

	if req.ManagerUsername != "" {
		userID, err := client.GetUserID(ctx, req.ManagerUsername)
		if err != nil {
			return nil, fmt.Errorf("resolving initial manager: %w", err)
		}
		if userID == "" {
			return nil, apperrors.NotFound("user '%s' not found", req.ManagerUsername)
		}
		if err := client.AddUserToGroup(ctx, userID, managerID); err != nil {
			return nil, fmt.Errorf("binding initial manager: %w", err)
		}
	}

	s.logger.WithFields(map[string]interface{}{"org": org, "team": name}).Info("team created")
	return &Team{ID: teamID, Name: name, Org: org, Path: scope.TeamPath(org, name)}, nil
}

// Delete removes the team and its role subgroups.
func (s *Service) Delete(ctx context.Context, orgName, teamName string) error {
	org, team := scope.Normalize(orgName), scope.Normalize(teamName)
	client := s.admin.Admin(ctx)

	g, err := client.GetGroupByPath(ctx, scope.TeamPath(org, team))
	if err != nil || g == nil {
		return apperrors.NotFound("team '%s' not found in organization '%s'", team, org)
	}
	if err := client.DeleteGroup(ctx, g.ID); err != nil {
		return fmt.Errorf("deleting team group: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{"org": org, "team": team}).Info("team deleted")
	return nil
}

// AddManager binds a user into the team's manager subgroup.
func (s *Service) AddManager(ctx context.Context, orgName, teamName, username string) error {
	return s.addRole(ctx, orgName, teamName, scope.RoleManager, username)
}

// RemoveManager removes a user from the team's manager subgroup.
func (s *Service) RemoveManager(ctx context.Context, orgName, teamName, username string) error {
	return s.removeRole(ctx, orgName, teamName, scope.RoleManager, username)
}

// AddMember binds a user into the team's member subgroup.
func (s *Service) AddMember(ctx context.Context, orgName, teamName, username string) error {
	return s.addRole(ctx, orgName, teamName, scope.RoleMember, username)
}

// RemoveMember removes a user from the team's member subgroup.
func (s *Service) RemoveMember(ctx context.Context, orgName, teamName, username string) error {
	return s.removeRole(ctx, orgName, teamName, scope.RoleMember, username)
}

func (s *Service) resolveRoleBinding(ctx context.Context, client keycloak.AdminAPI, orgName, teamName, role, username string) (userID, groupID string, err error) {
	org, team := scope.Normalize(orgName), scope.Normalize(teamName)

	g, err := client.GetGroupByPath(ctx, scope.TeamRolePath(org, team, role))
	if err != nil || g == nil {
		return "", "", apperrors.NotFound("team '%s' not found in organization '%s'", team, org)
	}

	userID, err = client.GetUserID(ctx, username)
	if err != nil {
		return "", "", fmt.Errorf("resolving user '%s': %w", username, err)
	}
	if userID == "" {
		return "", "", apperrors.NotFound("user '%s' not found", username)
	}
	return userID, g.ID, nil
}

func (s *Service) addRole(ctx context.Context, orgName, teamName, role, username string) error {
	client := s.admin.Admin(ctx)

	userID, groupID, err := s.resolveRoleBinding(ctx, client, orgName, teamName, role, username)
	if err != nil {
		return err
	}
	if err := client.AddUserToGroup(ctx, userID, groupID); err != nil {
		return fmt.Errorf("adding '%s' to %s group: %w", username, role, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"org": scope.Normalize(orgName), "team": scope.Normalize(teamName),
		"role": role, "username": username,
	}).Info("team role granted")
	return nil
}

func (s *Service) removeRole(ctx context.Context, orgName, teamName, role, username string) error {
	client := s.admin.Admin(ctx)

	userID, groupID, err := s.resolveRoleBinding(ctx, client, orgName, teamName, role, username)
	if err != nil {
		return err
	}
	if err := client.RemoveUserFromGroup(ctx, userID, groupID); err != nil {
		if keycloak.IsNotFound(err) || keycloak.IsBadRequest(err) {
			return apperrors.NotFound("user '%s' does not hold the %s role in team '%s'",
				username, role, scope.Normalize(teamName))
		}
		return fmt.Errorf("removing '%s' from %s group: %w", username, role, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"org": scope.Normalize(orgName), "team": scope.Normalize(teamName),
		"role": role, "username": username,
	}).Info("team role revoked")
	return nil
}
