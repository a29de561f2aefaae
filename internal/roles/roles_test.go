package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsForTable(t *testing.T) {
	cases := map[Role][]Permission{
		Viewer:     {PermissionContent},
		Editor:     {PermissionContent, PermissionUsers},
		Manager:    {PermissionContent, PermissionUsers, PermissionSettings},
		SuperAdmin: {PermissionContent, PermissionUsers, PermissionSettings, PermissionSuper},
	}

	for role, expected := range cases {
		assert.Equal(t, expected, PermissionsFor(role), string(role))
	}
	assert.Nil(t, PermissionsFor(Role("owner")))
}

func TestPermissionsAreMonotonicAcrossRanks(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		lower := PermissionsFor(all[i-1])
		higher := PermissionsFor(all[i])
		for _, p := range lower {
			assert.Contains(t, higher, p, "%s must include %s from %s", all[i], p, all[i-1])
		}
	}
}

func TestOnlySuperAdminHoldsSuper(t *testing.T) {
	for _, role := range All() {
		assert.Equal(t, role == SuperAdmin, Grants(role, PermissionSuper), string(role))
	}
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	perms := PermissionsFor(Viewer)
	perms[0] = PermissionSuper
	assert.Equal(t, []Permission{PermissionContent}, PermissionsFor(Viewer))
}

func TestRankAndAssignment(t *testing.T) {
	assert.Equal(t, 0, Rank(Viewer))
	assert.Equal(t, 3, Rank(SuperAdmin))
	assert.Equal(t, -1, Rank(Role("ghost")))

	assert.True(t, CanAssign(Manager, Editor))
	assert.True(t, CanAssign(Editor, Editor))
	assert.False(t, CanAssign(Editor, Manager))
	assert.False(t, CanAssign(Role("ghost"), Viewer))

	assert.True(t, HasMinimumRole(SuperAdmin, Manager))
	assert.False(t, HasMinimumRole(Viewer, Editor))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, Manager, role)

	_, err = ParseRole("owner")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestValidatePermissions(t *testing.T) {
	require.NoError(t, ValidatePermissions(Editor, []Permission{PermissionContent}))
	require.NoError(t, ValidatePermissions(SuperAdmin, PermissionsFor(SuperAdmin)))

	require.ErrorIs(t, ValidatePermissions(Editor, []Permission{PermissionSettings}), ErrPermissionsExceedRole)
	require.ErrorIs(t, ValidatePermissions(SuperAdmin, []Permission{PermissionSuper}), ErrPermissionsExceedRole)
	require.ErrorIs(t, ValidatePermissions(Viewer, []Permission{"root"}), ErrUnknownPermission)
	require.ErrorIs(t, ValidatePermissions(Role("ghost"), nil), ErrUnknownRole)
	require.ErrorIs(t, ValidatePermissions(Editor, []Permission{PermissionContent, PermissionContent}), ErrDuplicatePermission)
}

func TestEqualIgnoresOrder(t *testing.T) {
	assert.True(t, Equal([]Permission{PermissionUsers, PermissionContent}, PermissionsFor(Editor)))
	assert.False(t, Equal(PermissionsFor(Viewer), PermissionsFor(Editor)))
}

func TestEqualComparesSetsBothWays(t *testing.T) {
	repeated := []Permission{PermissionContent, PermissionContent}
	widened := []Permission{PermissionContent, PermissionUsers}

	assert.False(t, Equal(repeated, widened))
	assert.False(t, Equal(widened, repeated))
	assert.True(t, Equal(repeated, []Permission{PermissionContent}))
	assert.True(t, Equal(nil, []Permission{}))
	assert.Equal(t, []Permission{PermissionUsers, PermissionContent}, Normalize([]Permission{PermissionUsers, PermissionContent, PermissionUsers}))
}
