package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "acme", Normalize(" Acme "))
	assert.Equal(t, "payments", Normalize("PAYMENTS"))
	assert.Equal(t, "", Normalize("   "))
}

func TestNormalizeAll(t *testing.T) {
	assert.Nil(t, NormalizeAll(nil))
	assert.Equal(t, []string{"acme", "beta"}, NormalizeAll([]string{" Acme", "BETA "}))
	assert.Equal(t, []string{}, NormalizeAll([]string{}))
}

func TestValidateName(t *testing.T) {
	t.Run("normalizes valid names", func(t *testing.T) {
		name, err := ValidateName(" Acme ", KindOrganization)
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
	})

	t.Run("rejects empty names", func(t *testing.T) {
		_, err := ValidateName("   ", KindOrganization)
		require.Error(t, err)
		var invalid *InvalidNameError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, KindOrganization, invalid.Kind)
	})

	t.Run("rejects reserved names case-insensitively", func(t *testing.T) {
		for _, raw := range []string{"Admin", "super-admin", "USER", "manager", "member", "admins", "roles"} {
			_, err := ValidateName(raw, KindTeam)
			var reserved *ReservedNameError
			require.ErrorAs(t, err, &reserved, "name %q must be reserved", raw)
			assert.Equal(t, raw, reserved.Name)
		}
	})

	t.Run("error messages name the kind", func(t *testing.T) {
		_, err := ValidateName("admin", KindOrganization)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "organization")
		assert.Contains(t, err.Error(), "reserved")
	})
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("ADMIN"))
	assert.True(t, IsReserved(" member "))
	assert.False(t, IsReserved("acme"))
}

func TestIsNameError(t *testing.T) {
	assert.True(t, IsNameError(&InvalidNameError{Kind: KindTeam}))
	assert.True(t, IsNameError(&ReservedNameError{Kind: KindTeam, Name: "admin"}))
	assert.False(t, IsNameError(assert.AnError))
	assert.False(t, IsNameError(nil))
}
