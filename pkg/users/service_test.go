package users

import (
	"context"
	"io"
	"testing"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/apperrors"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/authz"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/keycloak"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/observability"
	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *keycloak.Fake) {
	t.Helper()
	fake := keycloak.NewFake()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewService(fake, logger), fake
}

// seedRealm builds:
//
//	/acme            admins: alice   users: bob
//	/acme/payments   managers: carol members: dave
//	/globex          users: erin
func seedRealm(t *testing.T, fake *keycloak.Fake) map[string]string {
	t.Helper()
	ctx := context.Background()
	ids := map[string]string{}

	mustGroup := func(name, parentPath string) string {
		var id string
		var err error
		if parentPath == "" {
			id, err = fake.CreateGroup(ctx, name)
		} else {
			id, err = fake.CreateChildGroup(ctx, fake.GroupIDByPath(parentPath), name)
		}
		require.NoError(t, err)
		return id
	}
	mustUser := func(username string) string {
		id, err := fake.CreateUser(ctx, keycloak.UserSpec{Username: username})
		require.NoError(t, err)
		ids[username] = id
		return id
	}
	bind := func(userID, path string) {
		require.NoError(t, fake.AddUserToGroup(ctx, userID, fake.GroupIDByPath(path)))
	}

	mustGroup("acme", "")
	mustGroup("admin", "/acme")
	mustGroup("user", "/acme")
	mustGroup("payments", "/acme")
	mustGroup("manager", "/acme/payments")
	mustGroup("member", "/acme/payments")
	mustGroup("globex", "")
	mustGroup("admin", "/globex")
	mustGroup("user", "/globex")

	bind(mustUser("alice"), "/acme/admin")
	bind(mustUser("bob"), "/acme/user")
	bind(mustUser("carol"), "/acme/payments/manager")
	bind(mustUser("dave"), "/acme/payments/member")
	bind(mustUser("erin"), "/globex/user")

	return ids
}

func usernames(users []keycloak.User) []string {
	out := []string{}
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestListScopedUsersSuperAdmin(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	users, err := svc.ListScopedUsers(context.Background(), scope.Compute([]string{"/super-admin"}), "", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol", "dave", "erin"}, usernames(users))
}

func TestListScopedUsersOrgFilter(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	sc := scope.Compute([]string{"/acme/admin"})

	users, err := svc.ListScopedUsers(context.Background(), sc, "acme", "")
	require.NoError(t, err)
	// The whole subtree: admins, users, and all team roles.
	assert.ElementsMatch(t, []string{"alice", "bob", "carol", "dave"}, usernames(users))
}

func TestListScopedUsersTeamFilter(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	sc := scope.Compute([]string{"/acme/payments/manager"})

	users, err := svc.ListScopedUsers(context.Background(), sc, "acme", "payments")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"carol", "dave"}, usernames(users))
}

func TestListScopedUsersGroupPathsAttached(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	users, err := svc.ListScopedUsers(context.Background(), scope.Compute([]string{"/acme/admin"}), "acme", "")
	require.NoError(t, err)

	for _, u := range users {
		if u.Username == "dave" {
			assert.Contains(t, u.Groups, "/acme/payments/member")
		}
	}
}

func TestListScopedUsersFilterAuthority(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	ctx := context.Background()

	// A team manager cannot list the whole org.
	_, err := svc.ListScopedUsers(ctx, scope.Compute([]string{"/acme/payments/manager"}), "acme", "")
	assert.True(t, authz.IsForbidden(err))

	// An admin of another org cannot list acme.
	_, err = svc.ListScopedUsers(ctx, scope.Compute([]string{"/globex/admin"}), "acme", "")
	assert.True(t, authz.IsForbidden(err))
}

func TestListScopedUsersTeamWithoutOrg(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	_, err := svc.ListScopedUsers(context.Background(), scope.Compute([]string{"/super-admin"}), "", "payments")
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestListScopedUsersUnknownFilterTarget(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	ctx := context.Background()

	_, err := svc.ListScopedUsers(ctx, scope.Compute([]string{"/super-admin"}), "ghost", "")
	require.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "organization 'ghost' not found", err.Error())

	_, err = svc.ListScopedUsers(ctx, scope.Compute([]string{"/super-admin"}), "acme", "ghost")
	require.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "team 'ghost' not found in organization 'acme'", err.Error())
}

func TestListScopedUsersUnfilteredUnion(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	// Admin of globex and manager of acme/payments: union of both walks,
	// deduplicated.
	sc := scope.Compute([]string{"/globex/admin", "/acme/payments/manager"})

	users, err := svc.ListScopedUsers(context.Background(), sc, "", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"carol", "dave", "erin"}, usernames(users))
}

func TestListScopedUsersNoAuthority(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	// A plain org user or team member holds no listing authority.
	_, err := svc.ListScopedUsers(context.Background(), scope.Compute([]string{"/acme/user", "/acme/payments/member"}), "", "")
	assert.True(t, authz.IsForbidden(err))
}

func TestListScopedUsersToleratesUnreadableSubgroup(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	fake.FailGroups[fake.GroupIDByPath("/acme/payments")] = true

	users, err := svc.ListScopedUsers(context.Background(), scope.Compute([]string{"/acme/admin"}), "acme", "")
	require.NoError(t, err)
	// The payments subtree is skipped, the rest of the walk survives.
	assert.ElementsMatch(t, []string{"alice", "bob"}, usernames(users))
}

func TestCreateAsSuperAdmin(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	res, err := svc.Create(context.Background(), scope.Compute([]string{"/super-admin"}), CreateUserRequest{
		Username: "frank",
		Password: "hunter2",
		Orgs:     []string{"acme", "globex"},
	})
	require.NoError(t, err)

	assert.True(t, fake.IsMember(res.ID, fake.GroupIDByPath("/acme/user")))
	assert.True(t, fake.IsMember(res.ID, fake.GroupIDByPath("/globex/user")))
	assert.Equal(t, "hunter2", fake.PasswordsSet[res.ID])
}

func TestCreateAsOrgAdminSubsetRule(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	ctx := context.Background()
	sc := scope.Compute([]string{"/acme/admin"})

	res, err := svc.Create(ctx, sc, CreateUserRequest{
		Username: "frank", Password: "x", Orgs: []string{"acme"},
	})
	require.NoError(t, err)
	assert.True(t, fake.IsMember(res.ID, fake.GroupIDByPath("/acme/user")))

	_, err = svc.Create(ctx, sc, CreateUserRequest{
		Username: "grace", Password: "x", Orgs: []string{"acme", "globex"},
	})
	require.True(t, authz.IsForbidden(err))
	assert.Contains(t, err.Error(), "globex")
}

func TestCreateWithoutAuthority(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	_, err := svc.Create(context.Background(), scope.Compute([]string{"/acme/user"}), CreateUserRequest{
		Username: "frank", Password: "x", Orgs: []string{"acme"},
	})
	assert.True(t, authz.IsForbidden(err))
}

func TestCreateUnknownOrg(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	_, err := svc.Create(context.Background(), scope.Compute([]string{"/super-admin"}), CreateUserRequest{
		Username: "frank", Password: "x", Orgs: []string{"acme", "ghost"},
	})
	require.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "organization 'ghost' not found", err.Error())
}

func TestCreateOrgMissingUserSubgroup(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	ctx := context.Background()

	// An org group without its user subgroup is structural damage, not a
	// caller mistake: neither 404 nor 400.
	_, err := fake.CreateGroup(ctx, "ruined")
	require.NoError(t, err)

	_, err = svc.Create(ctx, scope.Compute([]string{"/super-admin"}), CreateUserRequest{
		Username: "frank", Password: "x", Orgs: []string{"ruined"},
	})
	require.Error(t, err)
	assert.False(t, apperrors.IsNotFound(err))
	assert.False(t, apperrors.IsBadRequest(err))
}

func TestCreateOrgAdminDefaultsToAdminOrgs(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	sc := scope.Compute([]string{"/acme/admin"})

	// No orgs in the request: the user lands in every org the caller
	// administers.
	res, err := svc.Create(context.Background(), sc, CreateUserRequest{
		Username: "frank", Password: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, res.Orgs)
	assert.True(t, fake.IsMember(res.ID, fake.GroupIDByPath("/acme/user")))
}

func TestCreateSuperAdminWithoutOrgs(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	res, err := svc.Create(context.Background(), scope.Compute([]string{"/super-admin"}), CreateUserRequest{
		Username: "frank", Password: "x",
	})
	require.NoError(t, err)
	assert.Empty(t, res.Orgs)

	paths, err := fake.GetUserGroupPaths(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestCreateConflict(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)

	_, err := svc.Create(context.Background(), scope.Compute([]string{"/super-admin"}), CreateUserRequest{
		Username: "alice", Password: "x", Orgs: []string{"acme"},
	})
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateValidation(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	ctx := context.Background()
	sc := scope.Compute([]string{"/super-admin"})

	_, err := svc.Create(ctx, sc, CreateUserRequest{Password: "x", Orgs: []string{"acme"}})
	assert.True(t, apperrors.IsBadRequest(err))
}

func TestGetSuperAdmin(t *testing.T) {
	svc, fake := newService(t)
	ids := seedRealm(t, fake)

	user, err := svc.Get(context.Background(), scope.Compute([]string{"/super-admin"}), ids["erin"])
	require.NoError(t, err)
	assert.Equal(t, "erin", user.Username)
	assert.Contains(t, user.Groups, "/globex/user")
}

func TestGetReachability(t *testing.T) {
	svc, fake := newService(t)
	ids := seedRealm(t, fake)
	ctx := context.Background()

	// An acme admin can reach anyone inside acme, including team members.
	admin := scope.Compute([]string{"/acme/admin"})
	_, err := svc.Get(ctx, admin, ids["dave"])
	require.NoError(t, err)

	// But not users of another organization.
	_, err = svc.Get(ctx, admin, ids["erin"])
	assert.True(t, authz.IsForbidden(err))

	// A team manager reaches their team's members...
	manager := scope.Compute([]string{"/acme/payments/manager"})
	_, err = svc.Get(ctx, manager, ids["dave"])
	require.NoError(t, err)

	// ...but not org-level users outside the team.
	_, err = svc.Get(ctx, manager, ids["bob"])
	assert.True(t, authz.IsForbidden(err))
}

func TestGetReachabilityRootGroups(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	ctx := context.Background()

	// Direct membership in the org or team group itself, outside any role
	// subgroup, still puts the user in reach.
	inOrgRoot, err := fake.CreateUser(ctx, keycloak.UserSpec{Username: "sam"})
	require.NoError(t, err)
	require.NoError(t, fake.AddUserToGroup(ctx, inOrgRoot, fake.GroupIDByPath("/acme")))

	inTeamRoot, err := fake.CreateUser(ctx, keycloak.UserSpec{Username: "tess"})
	require.NoError(t, err)
	require.NoError(t, fake.AddUserToGroup(ctx, inTeamRoot, fake.GroupIDByPath("/acme/payments")))

	admin := scope.Compute([]string{"/acme/admin"})
	_, err = svc.Get(ctx, admin, inOrgRoot)
	require.NoError(t, err)
	_, err = svc.Get(ctx, admin, inTeamRoot)
	require.NoError(t, err)

	manager := scope.Compute([]string{"/acme/payments/manager"})
	_, err = svc.Get(ctx, manager, inTeamRoot)
	require.NoError(t, err)

	// The org root is still beyond a team manager's reach.
	_, err = svc.Get(ctx, manager, inOrgRoot)
	assert.True(t, authz.IsForbidden(err))
}

func TestGetUnknownUser(t *testing.T) {
	svc, fake := newService(t)
	seedRealm(t, fake)
	ctx := context.Background()

	_, err := svc.Get(ctx, scope.Compute([]string{"/super-admin"}), "nope")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Get(ctx, scope.Compute([]string{"/acme/admin"}), "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDelete(t *testing.T) {
	svc, fake := newService(t)
	ids := seedRealm(t, fake)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, ids["bob"]))

	err := svc.Delete(ctx, ids["bob"])
	assert.True(t, apperrors.IsNotFound(err))
}
