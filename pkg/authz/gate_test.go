package authz

import (
	"testing"

	"github.com/Ahmad2Einieh/new-keycloack/pkg/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSuperAdmin(t *testing.T) {
	assert.NoError(t, RequireSuperAdmin(scope.Compute([]string{"/super-admin"})))

	err := RequireSuperAdmin(scope.Compute([]string{"/acme/admin"}))
	require.Error(t, err)
	assert.True(t, IsForbidden(err))
	assert.Contains(t, err.Error(), "super admin")
}

func TestRequireOrgAdmin(t *testing.T) {
	t.Run("super admin bypass", func(t *testing.T) {
		sc := scope.Compute([]string{"/super-admin"})
		assert.NoError(t, RequireOrgAdmin(sc, "acme"))
	})

	t.Run("org admin allowed", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/admin"})
		assert.NoError(t, RequireOrgAdmin(sc, "acme"))
	})

	t.Run("request path parameter is normalized", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/admin"})
		assert.NoError(t, RequireOrgAdmin(sc, " ACME "))
	})

	t.Run("denial names the org", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/admin"})
		err := RequireOrgAdmin(sc, "beta")
		require.Error(t, err)
		assert.True(t, IsForbidden(err))
		assert.Contains(t, err.Error(), `"beta"`)
	})

	t.Run("plain org membership is not admin", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/user"})
		assert.Error(t, RequireOrgAdmin(sc, "acme"))
	})
}

func TestRequireTeamManager(t *testing.T) {
	t.Run("manager allowed", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/payments/manager"})
		assert.NoError(t, RequireTeamManager(sc, "acme", "payments"))
	})

	t.Run("org admin supersedes team manager", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/admin"})
		assert.NoError(t, RequireTeamManager(sc, "acme", "payments"))
	})

	t.Run("super admin bypass", func(t *testing.T) {
		sc := scope.Compute([]string{"/super-admin"})
		assert.NoError(t, RequireTeamManager(sc, "acme", "payments"))
	})

	t.Run("manager of another org's team is denied with specifics", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/payments/manager"})
		err := RequireTeamManager(sc, "beta", "payments")
		require.Error(t, err)
		assert.True(t, IsForbidden(err))
		assert.Contains(t, err.Error(), `"payments"`)
		assert.Contains(t, err.Error(), `"beta"`)
	})

	t.Run("team member is not a manager", func(t *testing.T) {
		sc := scope.Compute([]string{"/acme/payments/member"})
		assert.Error(t, RequireTeamManager(sc, "acme", "payments"))
	})
}

func TestIsForbidden(t *testing.T) {
	assert.True(t, IsForbidden(ErrNotOrgAdmin("acme")))
	assert.True(t, IsForbidden(ErrNoListingAuthority()))
	assert.True(t, IsForbidden(ErrCannotViewUser()))
	assert.False(t, IsForbidden(assert.AnError))
	assert.False(t, IsForbidden(nil))
}
