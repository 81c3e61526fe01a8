// Package orgs manages organization lifecycle: the organization root group,
// its fixed admin/user role subgroups, and role membership.
package orgs

import (
	"context"
	"fmt"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/apperrors"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
)

// Organization is the service view over an organization's root group.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// CreateOrgRequest describes an organization to create. AdminUsername
// optionally names the initial admin.
type CreateOrgRequest struct {
	Name          string `json:"name"`
	AdminUsername string `json:"admin_username,omitempty"`
}

// Service implements organization lifecycle over the identity provider's
// group tree. A fresh admin client is acquired per operation.
type Service struct {
	admin  keycloak.Source
	logger *observability.Logger
}

// NewService creates the organization service.
func NewService(admin keycloak.Source, logger *observability.Logger) *Service {
	return &Service{admin: admin, logger: logger}
}

// List returns the organizations visible to the caller. Super admins see
// every top-level group except the super-admin singleton; everyone else
// sees the organizations derived from their own group paths. Organizations
// whose group has disappeared since the token was issued are skipped.
func (s *Service) List(ctx context.Context, sc scope.CallerScope) ([]Organization, error) {
	client := s.admin.Admin(ctx)

	if sc.IsSuperAdmin {
		groups, err := client.ListTopLevelGroups(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing top-level groups: %w", err)
		}
		out := []Organization{}
		for _, g := range groups {
			if g.Name == scope.SuperAdminName {
				continue
			}
			out = append(out, Organization{ID: g.ID, Name: g.Name, Path: g.Path})
		}
		return out, nil
	}

	out := []Organization{}
	for _, org := range scope.SortedOrgs(sc.MemberOrgs) {
		g, err := client.GetGroupByPath(ctx, scope.OrgPath(org))
		if err != nil || g == nil {
			continue
		}
		out = append(out, Organization{ID: g.ID, Name: g.Name, Path: g.Path})
	}
	return out, nil
}

// Create provisions a new organization: the root group plus its admin and
// user subgroups, and optionally the initial admin binding. There is no
// rollback; a failure after the root group exists leaves the partial
// structure in place and surfaces the error.
func (s *Service) Create(ctx context.Context, req CreateOrgRequest) (*Organization, error) {
	name, err := scope.ValidateName(req.Name, scope.KindOrganization)
	if err != nil {
		return nil, err
	}

	client := s.admin.Admin(ctx)

	rootID, err := client.CreateGroup(ctx, name)
	if err != nil {
		if keycloak.IsConflict(err) {
			return nil, apperrors.Conflict("organization '%s' already exists", name)
		}
		return nil, fmt.Errorf("creating organization group: %w", err)
	}

	adminID, err := client.CreateChildGroup(ctx, rootID, scope.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("creating admin subgroup: %w", err)
	}
	if _, err := client.CreateChildGroup(ctx, rootID, scope.RoleUser); err != nil {
		return nil, fmt.Errorf("creating user subgroup: %w", err)
	}

	if req.AdminUsername != "" {
		userID, err := client.GetUserID(ctx, req.AdminUsername)
		if err != nil {
			return nil, fmt.Errorf("resolving initial admin: %w", err)
		}
		if userID == "" {
			return nil, apperrors.NotFound("user '%s' not found", req.AdminUsername)
		}
		if err := client.AddUserToGroup(ctx, userID, adminID); err != nil {
			return nil, fmt.Errorf("binding initial admin: %w", err)
		}
	}

	s.logger.WithField("org", name).Info("organization created")
	return &Organization{ID: rootID, Name: name, Path: scope.OrgPath(name)}, nil
}

// Delete removes the organization and, through the provider's cascade, all
// of its teams and role subgroups.
func (s *Service) Delete(ctx context.Context, orgName string) error {
	org := scope.Normalize(orgName)
	client := s.admin.Admin(ctx)

	g, err := client.GetGroupByPath(ctx, scope.OrgPath(org))
	if err != nil || g == nil {
		return apperrors.NotFound("organization '%s' not found", org)
	}
	if err := client.DeleteGroup(ctx, g.ID); err != nil {
		return fmt.Errorf("deleting organization group: %w", err)
	}

	s.logger.WithField("org", org).Info("organization deleted")
	return nil
}

// AddAdmin binds a user into the organization's admin subgroup.
func (s *Service) AddAdmin(ctx context.Context, orgName, username string) error {
	return s.addRole(ctx, orgName, scope.RoleAdmin, username)
}

// RemoveAdmin removes a user from the organization's admin subgroup.
func (s *Service) RemoveAdmin(ctx context.Context, orgName, username string) error {
	return s.removeRole(ctx, orgName, scope.RoleAdmin, username)
}

// AddUser binds a user into the organization's user subgroup.
func (s *Service) AddUser(ctx context.Context, orgName, username string) error {
	return s.addRole(ctx, orgName, scope.RoleUser, username)
}

// RemoveUser removes a user from the organization's user subgroup.
func (s *Service) RemoveUser(ctx context.Context, orgName, username string) error {
	return s.removeRole(ctx, orgName, scope.RoleUser, username)
}

// resolveRoleBinding resolves the role subgroup and the user for a
// membership change. A missing role subgroup means the organization (or its
// structure) is gone, which callers see as not-found.
func (s *Service) resolveRoleBinding(ctx context.Context, client keycloak.AdminAPI, orgName, role, username string) (userID, groupID string, err error) {
	org := scope.Normalize(orgName)

	g, err := client.GetGroupByPath(ctx, scope.OrgRolePath(org, role))
	if err != nil || g == nil {
		return "", "", apperrors.NotFound("organization '%s' not found", org)
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

func (s *Service) addRole(ctx context.Context, orgName, role, username string) error {
	client := s.admin.Admin(ctx)

	userID, groupID, err := s.resolveRoleBinding(ctx, client, orgName, role, username)
	if err != nil {
		return err
	}
	if err := client.AddUserToGroup(ctx, userID, groupID); err != nil {
		return fmt.Errorf("adding '%s' to %s group: %w", username, role, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"org": scope.Normalize(orgName), "role": role, "username": username,
	}).Info("organization role granted")
	return nil
}

func (s *Service) removeRole(ctx context.Context, orgName, role, username string) error {
	client := s.admin.Admin(ctx)

	userID, groupID, err := s.resolveRoleBinding(ctx, client, orgName, role, username)
	if err != nil {
		return err
	}
	if err := client.RemoveUserFromGroup(ctx, userID, groupID); err != nil {
		if keycloak.IsNotFound(err) || keycloak.IsBadRequest(err) {
			return apperrors.NotFound("user '%s' does not hold the %s role in organization '%s'",
				username, role, scope.Normalize(orgName))
		}
		return fmt.Errorf("removing '%s' from %s group: %w", username, role, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"org": scope.Normalize(orgName), "role": role, "username": username,
	}).Info("organization role revoked")
	return nil
}
