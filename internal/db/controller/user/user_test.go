package user

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.User{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedUsers(t *testing.T, db *gorm.DB) {
	t.Helper()

	users := []models.User{
		{Username: "alice", FirstName: "Alice", LastName: "A", Email: "alice@example.com",
			Roles: models.RoleNames{"Editor", "Viewer"}},
		{Username: "bob", FirstName: "Bob", LastName: "B", Email: "bob@example.com",
			Roles: models.RoleNames{"Viewer"}},
		{Username: "carol", FirstName: "Carol", LastName: "C", Email: "carol@example.com",
			Roles: models.RoleNames{"Super Admin"}},
	}

	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}
}

func TestGetByLoginID(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db)

	byUsername, err := GetByLoginID(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", byUsername.Username)

	byEmail, err := GetByLoginID(db, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob", byEmail.Username)

	_, err = GetByLoginID(db, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestWithRole(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db)

	holders, err := WithRole(db, "Viewer")
	require.NoError(t, err)
	require.Len(t, holders, 2)

	names := []string{holders[0].Username, holders[1].Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)

	// "Admin" is a plain substring of "Super Admin" but not a quoted element
	// of anyone's role list, so it must not match.
	holders, err = WithRole(db, "Admin")
	require.NoError(t, err)
	assert.Empty(t, holders)
}

func TestPullRole(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db)

	require.NoError(t, PullRole(db, "Viewer"))

	alice, err := GetByLoginID(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNames{"Editor"}, alice.Roles)

	bob, err := GetByLoginID(db, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob.Roles)

	carol, err := GetByLoginID(db, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNames{"Super Admin"}, carol.Roles, "unrelated users untouched")
}

func TestRenameRole(t *testing.T) {
	db := setupTestDB(t)
	seedUsers(t, db)

	require.NoError(t, RenameRole(db, "Viewer", "Reader"))

	alice, err := GetByLoginID(db, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNames{"Editor", "Reader"}, alice.Roles, "position preserved")

	bob, err := GetByLoginID(db, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.RoleNames{"Reader"}, bob.Roles)
}

func TestNilDB(t *testing.T) {
	_, err := GetByID(nil, 1)
	assert.ErrorIs(t, err, ErrDBNil)

	_, err = WithRole(nil, "Viewer")
	assert.ErrorIs(t, err, ErrDBNil)

	assert.ErrorIs(t, PullRole(nil, "Viewer"), ErrDBNil)
	assert.ErrorIs(t, RenameRole(nil, "a", "b"), ErrDBNil)
}

func TestRoleSetPattern_EncodesAndEscapes(t *testing.T) {
	// The pattern must match the JSON encoding of the name, with LIKE
	// metacharacters neutralized.
	assert.Equal(t, `%"Viewer"%`, RoleSetPattern("Viewer"))
	assert.Equal(t, `%"a\"b"%`, RoleSetPattern(`a"b`))
	assert.Equal(t, `%"a\\b"%`, RoleSetPattern(`a\b`))
	assert.Equal(t, `%"100!%"%`, RoleSetPattern("100%"))
	assert.Equal(t, `%"read!_only"%`, RoleSetPattern("read_only"))
}

func TestRoleCascades_SpecialCharacterNames(t *testing.T) {
	// Role names are unrestricted strings; the stored JSON escapes quotes
	// and backslashes, and LIKE treats % and _ specially. The cascades must
	// still find every holder.
	names := []string{`a"b`, `a\b`, `100%`, `read_only`}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			db := setupTestDB(t)

			holder := models.User{
				Username:  "jdoe",
				FirstName: "Jane",
				LastName:  "Doe",
				Roles:     models.RoleNames{name, "Viewer"},
			}
			require.NoError(t, db.Create(&holder).Error)

			holders, err := WithRole(db, name)
			require.NoError(t, err)
			require.Len(t, holders, 1, "holder of %q not found", name)

			require.NoError(t, RenameRole(db, name, "Renamed"))

			reloaded, err := GetByID(db, holder.ID)
			require.NoError(t, err)
			assert.Equal(t, models.RoleNames{"Renamed", "Viewer"}, reloaded.Roles)

			require.NoError(t, PullRole(db, "Renamed"))

			reloaded, err = GetByID(db, holder.ID)
			require.NoError(t, err)
			assert.Equal(t, models.RoleNames{"Viewer"}, reloaded.Roles)
		})
	}
}
