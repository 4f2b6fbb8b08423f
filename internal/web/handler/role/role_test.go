package role

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/GoUserPanel/GoUserPanel/internal/auth"
	"github.com/GoUserPanel/GoUserPanel/internal/config"
	"github.com/GoUserPanel/GoUserPanel/internal/db/models"
	"github.com/GoUserPanel/GoUserPanel/internal/rbac"
	"github.com/GoUserPanel/GoUserPanel/internal/web/session"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB

	superAdmin models.User
	manager    models.User
	member     models.User

	superAdminRole models.Role
	managerRole    models.Role
	memberRole     models.Role
}

func newTestConfig() *config.Config {
	return &config.Config{
		Title: "test",
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}))

	session.Init(memory.New())

	app := fiber.New()

	var s Service
	s.Init(app, newTestConfig(), db, auth.NewService(db))

	env := &testEnv{app: app, db: db}

	env.superAdminRole = models.Role{Name: "Super Admin", Precedence: 1, Permissions: rbac.Catalog()}
	env.managerRole = models.Role{
		Name:       "Manager",
		Precedence: 2,
		Permissions: models.PermissionSet{
			{Page: rbac.PageDashboard, Actions: []string{rbac.ActionRead}},
			{Page: rbac.PageSettings, Actions: []string{
				rbac.ActionCreateRole,
				rbac.ActionUpdateRole,
				rbac.ActionReadRole,
				rbac.ActionDeleteRole,
				rbac.ActionChangePrecedence,
			}},
		},
	}
	env.memberRole = models.Role{
		Name:       "Member",
		Precedence: 3,
		Permissions: models.PermissionSet{
			{Page: rbac.PageDashboard, Actions: []string{rbac.ActionRead}},
			{Page: rbac.PageTask, Actions: []string{rbac.ActionRead, rbac.ActionCreate}},
		},
	}

	require.NoError(t, db.Create(&env.superAdminRole).Error)
	require.NoError(t, db.Create(&env.managerRole).Error)
	require.NoError(t, db.Create(&env.memberRole).Error)

	env.superAdmin = models.User{
		Username: "root", Password: models.HashPassword("pw"),
		Roles: models.RoleNames{"Super Admin"},
	}
	env.manager = models.User{
		Username: "manager", Password: models.HashPassword("pw"),
		Roles: models.RoleNames{"Manager"},
	}
	env.member = models.User{
		Username: "member", Password: models.HashPassword("pw"),
		Roles: models.RoleNames{"Member"},
	}

	require.NoError(t, db.Create(&env.superAdmin).Error)
	require.NoError(t, db.Create(&env.manager).Error)
	require.NoError(t, db.Create(&env.member).Error)

	return env
}

func loginAs(t *testing.T, u models.User) string {
	t.Helper()

	sessionID := session.GenerateSessionID()
	data := session.Data{UserID: u.ID, Username: u.Username}
	require.NoError(t, data.Write(sessionID, time.Minute))

	return sessionID
}

func doRequest(t *testing.T, app *fiber.App, method, target, sessionID string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionID})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	fields := map[string]json.RawMessage{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &fields)
	}

	return resp, fields
}

func TestCombinedRole(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.member)

	resp, fields := doRequest(t, env.app, fiber.MethodPost, "/role/combinedRole", sid,
		fiber.Map{"roles": []string{"Manager", "Member", "Ghost"}})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var combined rbac.CombinedRole
	raw, _ := json.Marshal(fields)
	require.NoError(t, json.Unmarshal(raw, &combined))

	assert.Equal(t, "Manager", combined.HighestRole)
	assert.Equal(t, 2, combined.HighestPrecedence)
	assert.Equal(t, []string{"Manager", "Member", "Ghost"}, combined.Roles)

	// union of Manager and Member dashboard/task/settings grants
	assert.True(t, combined.Permissions.Allows(rbac.PageTask, rbac.ActionCreate))
	assert.True(t, combined.Permissions.Allows(rbac.PageSettings, rbac.ActionCreateRole))
	assert.False(t, combined.Permissions.Allows(rbac.PageUsers, rbac.ActionRead))
}

func TestCombinedRole_NoneResolved(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.member)

	resp, _ := doRequest(t, env.app, fiber.MethodPost, "/role/combinedRole", sid,
		fiber.Map{"roles": []string{"Ghost", "Phantom"}})

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCombinedRole_EmptyInput(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.member)

	resp, _ := doRequest(t, env.app, fiber.MethodPost, "/role/combinedRole", sid,
		fiber.Map{"roles": []string{}})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCombinedRole_Unauthenticated(t *testing.T) {
	env := setupEnv(t)

	resp, _ := doRequest(t, env.app, fiber.MethodPost, "/role/combinedRole", "",
		fiber.Map{"roles": []string{"Member"}})

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateRole(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, fields := doRequest(t, env.app, fiber.MethodPost, "/role", sid, fiber.Map{
		"name": "Support",
		"permissions": models.PermissionSet{
			{Page: rbac.PageDashboard, Actions: []string{rbac.ActionRead}},
		},
	})

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created models.Role
	require.NoError(t, json.Unmarshal(fields["role"], &created))
	assert.Equal(t, "Support", created.Name)
	assert.Equal(t, 4, created.Precedence, "new role gets appended at the lowest authority rank")
}

func TestCreateRole_WithoutPermissionsGetsStarterSet(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, fields := doRequest(t, env.app, fiber.MethodPost, "/role", sid, fiber.Map{
		"name": "Support",
	})

	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var created models.Role
	require.NoError(t, json.Unmarshal(fields["role"], &created))
	assert.Equal(t, rbac.DefaultPermissions(), created.Permissions)
}

func TestCreateRole_DuplicateName(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, _ := doRequest(t, env.app, fiber.MethodPost, "/role", sid, fiber.Map{"name": "Member"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateRole_UnknownPermissionPage(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, _ := doRequest(t, env.app, fiber.MethodPost, "/role", sid, fiber.Map{
		"name": "Support",
		"permissions": models.PermissionSet{
			{Page: "Billing", Actions: []string{rbac.ActionRead}},
		},
	})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateRole_Forbidden(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.member)

	resp, _ := doRequest(t, env.app, fiber.MethodPost, "/role", sid, fiber.Map{"name": "Support"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGetRole_NotFound(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, _ := doRequest(t, env.app, fiber.MethodGet, "/role/999", sid, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListRolesArray(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.member)

	resp, fields := doRequest(t, env.app, fiber.MethodGet, "/role/rolesArray", sid, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var entries []roleArrayEntry
	require.NoError(t, json.Unmarshal(fields["roles"], &entries))
	require.Len(t, entries, 3)

	assert.Equal(t, "Super Admin", entries[0].Name)
	assert.Equal(t, 1, entries[0].Precedence)
	assert.Equal(t, "Member", entries[2].Name)
}

func TestAssignableRoles(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.manager)

	resp, fields := doRequest(t, env.app, fiber.MethodGet, "/role/assignable", sid, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Only roles of strictly lower authority than the caller's highest role
	// are offered.
	var entries []roleArrayEntry
	require.NoError(t, json.Unmarshal(fields["roles"], &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Member", entries[0].Name)
}

func TestAssignableRoles_RolelessCaller(t *testing.T) {
	env := setupEnv(t)

	nobody := models.User{Username: "nobody", Password: models.HashPassword("pw")}
	require.NoError(t, env.db.Create(&nobody).Error)

	sid := loginAs(t, nobody)
	resp, fields := doRequest(t, env.app, fiber.MethodGet, "/role/assignable", sid, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var entries []roleArrayEntry
	require.NoError(t, json.Unmarshal(fields["roles"], &entries))
	assert.Empty(t, entries)
}

func TestUpdateRole_HigherAuthorityDenied(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.manager)

	resp, _ := doRequest(t, env.app, fiber.MethodPatch,
		"/role/"+itoa(env.superAdminRole.ID), sid, fiber.Map{"name": "Renamed"})

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUpdateRole_OwnRoleDenied(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.manager)

	resp, _ := doRequest(t, env.app, fiber.MethodPatch,
		"/role/"+itoa(env.managerRole.ID), sid, fiber.Map{"name": "Renamed"})

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "equal precedence must be rejected")
}

func TestUpdateRole_RenameCascades(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, _ := doRequest(t, env.app, fiber.MethodPatch,
		"/role/"+itoa(env.memberRole.ID), sid, fiber.Map{"name": "Basic"})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var holder models.User
	require.NoError(t, env.db.First(&holder, env.member.ID).Error)
	assert.Equal(t, models.RoleNames{"Basic"}, holder.Roles)
}

func TestDeleteRole_CascadesAndCompacts(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, _ := doRequest(t, env.app, fiber.MethodDelete,
		"/role/"+itoa(env.managerRole.ID), sid, nil)

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var holder models.User
	require.NoError(t, env.db.First(&holder, env.manager.ID).Error)
	assert.Empty(t, []string(holder.Roles))

	var member models.Role
	require.NoError(t, env.db.First(&member, env.memberRole.ID).Error)
	assert.Equal(t, 2, member.Precedence, "gap left by the deleted role is closed")
}

func TestDeleteRole_Forbidden(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.manager)

	resp, _ := doRequest(t, env.app, fiber.MethodDelete,
		"/role/"+itoa(env.superAdminRole.ID), sid, nil)

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUpdatePrecedences_Swap(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	// create a fourth role so Manager and the new one can swap
	support := models.Role{Name: "Support", Precedence: 4}
	require.NoError(t, env.db.Create(&support).Error)

	resp, _ := doRequest(t, env.app, fiber.MethodPatch, "/role/precedence", sid, fiber.Map{
		"updates": []fiber.Map{
			{"_id": env.managerRole.ID, "precedence": 4},
			{"_id": support.ID, "precedence": 2},
		},
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var manager models.Role
	require.NoError(t, env.db.First(&manager, env.managerRole.ID).Error)
	assert.Equal(t, 4, manager.Precedence)
}

func TestUpdatePrecedences_DuplicateTargetsRejected(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, _ := doRequest(t, env.app, fiber.MethodPatch, "/role/precedence", sid, fiber.Map{
		"updates": []fiber.Map{
			{"_id": env.managerRole.ID, "precedence": 2},
			{"_id": env.memberRole.ID, "precedence": 2},
		},
	})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var member models.Role
	require.NoError(t, env.db.First(&member, env.memberRole.ID).Error)
	assert.Equal(t, 3, member.Precedence, "a rejected batch must change nothing")
}

func TestUpdatePrecedences_UnknownRole(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	resp, _ := doRequest(t, env.app, fiber.MethodPatch, "/role/precedence", sid, fiber.Map{
		"updates": []fiber.Map{{"_id": 999, "precedence": 5}},
	})

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestReorder_Compacts(t *testing.T) {
	env := setupEnv(t)
	sid := loginAs(t, env.superAdmin)

	// introduce drift
	require.NoError(t, env.db.Model(&models.Role{}).
		Where("id = ?", env.memberRole.ID).
		UpdateColumn("precedence", 9).Error)

	resp, _ := doRequest(t, env.app, fiber.MethodPost, "/role/reorder", sid, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var member models.Role
	require.NoError(t, env.db.First(&member, env.memberRole.ID).Error)
	assert.Equal(t, 3, member.Precedence)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
