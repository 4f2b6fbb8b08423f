package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
)

func TestCombine_EmptyResolvedSet(t *testing.T) {
	combined, err := Combine([]string{"Ghost"}, nil)
	require.ErrorIs(t, err, ErrNoRolesResolved)
	assert.Nil(t, combined)
}

func TestCombine_PermissionUnion(t *testing.T) {
	roles := []models.Role{
		{
			Name:       "Viewer",
			Precedence: 2,
			Permissions: models.PermissionSet{
				{Page: PageUsers, Actions: []string{ActionRead}},
			},
		},
		{
			Name:       "Cleaner",
			Precedence: 3,
			Permissions: models.PermissionSet{
				{Page: PageUsers, Actions: []string{ActionDeleteUser, ActionRead}},
			},
		},
	}

	combined, err := Combine([]string{"Viewer", "Cleaner"}, roles)
	require.NoError(t, err)

	actions := combined.Permissions.ActionsFor(PageUsers)
	assert.ElementsMatch(t, []string{ActionRead, ActionDeleteUser}, actions,
		"union must contain both grants, with duplicates collapsed")
	assert.Len(t, combined.Permissions, 1, "one entry per distinct page")
}

func TestCombine_HighestPrecedenceSelection(t *testing.T) {
	roles := []models.Role{
		{Name: "B", Precedence: 3},
		{Name: "A", Precedence: 1},
	}

	combined, err := Combine([]string{"A", "B"}, roles)
	require.NoError(t, err)

	assert.Equal(t, "A", combined.HighestRole)
	assert.Equal(t, 1, combined.HighestPrecedence)
}

func TestCombine_EchoesRequestedNames(t *testing.T) {
	roles := []models.Role{{Name: "Editor", Precedence: 2}}

	// "Ghost" does not resolve; the partial match is non-fatal and the
	// requested set is echoed back untouched.
	combined, err := Combine([]string{"Editor", "Ghost"}, roles)
	require.NoError(t, err)

	assert.Equal(t, []string{"Editor", "Ghost"}, combined.Roles)
	assert.Equal(t, "Editor", combined.HighestRole)
}

func TestCombine_EqualPrecedenceFirstSeenWins(t *testing.T) {
	// Equal precedence values violate the density invariant, but the fold
	// must not crash on a drifted store: the first role seen keeps the spot.
	roles := []models.Role{
		{Name: "First", Precedence: 2},
		{Name: "Second", Precedence: 2},
	}

	combined, err := Combine([]string{"First", "Second"}, roles)
	require.NoError(t, err)

	assert.Equal(t, "First", combined.HighestRole)
	assert.Equal(t, 2, combined.HighestPrecedence)
}

func TestCombine_MergesAcrossPages(t *testing.T) {
	roles := []models.Role{
		{
			Name:       "Admin",
			Precedence: 1,
			Permissions: models.PermissionSet{
				{Page: PageSettings, Actions: []string{ActionCreateRole, ActionDeleteRole}},
				{Page: PageUsers, Actions: []string{ActionRead}},
			},
		},
		{
			Name:       "Reporter",
			Precedence: 4,
			Permissions: models.PermissionSet{
				{Page: PageReport, Actions: []string{ActionReadUsers}},
				{Page: PageUsers, Actions: []string{ActionReadDetails}},
			},
		},
	}

	combined, err := Combine([]string{"Admin", "Reporter"}, roles)
	require.NoError(t, err)

	assert.Len(t, combined.Permissions, 3)
	assert.ElementsMatch(t,
		[]string{ActionRead, ActionReadDetails},
		combined.Permissions.ActionsFor(PageUsers),
	)
	assert.ElementsMatch(t,
		[]string{ActionCreateRole, ActionDeleteRole},
		combined.Permissions.ActionsFor(PageSettings),
	)
	assert.ElementsMatch(t,
		[]string{ActionReadUsers},
		combined.Permissions.ActionsFor(PageReport),
	)
}

func TestHighestPrecedenceRole(t *testing.T) {
	allRoles := []models.Role{
		{Name: "Super Admin", Precedence: 1},
		{Name: "Editor", Precedence: 2},
		{Name: "Viewer", Precedence: 3},
	}

	tests := []struct {
		name      string
		roleNames []string
		want      string
	}{
		{"single match", []string{"Viewer"}, "Viewer"},
		{"picks minimum precedence", []string{"Viewer", "Editor"}, "Editor"},
		{"ignores unknown names", []string{"Ghost", "Viewer"}, "Viewer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HighestPrecedenceRole(tt.roleNames, allRoles)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}

	assert.Nil(t, HighestPrecedenceRole([]string{"Ghost"}, allRoles))
	assert.Nil(t, HighestPrecedenceRole(nil, allRoles))
}
