package echoapi

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_accountApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "Pwd.1234!", []string{user.RoleFaculty}, true)
	testutil.CreateUser(t, app.usrRepo, "Gone", "gone_user", "gone@test.local", "Pwd.1234!", []string{user.RoleFaculty}, false)

	tests := []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "faculty", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "nobody", Password: "Pwd.1234!"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, LoginRequest{Username: "gone@test.local", Password: "Pwd.1234!"}),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marshalObj(t, LoginRequest{Username: " FACULTY ", Password: "Pwd.1234!"}))
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		decode(t, rec, &resp)
		require.NotEmpty(t, resp.Token)

		// the token opens authed endpoints
		req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", resp.Token)
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func Test_accountApi_access(t *testing.T) {
	app := setup(t)
	faculty := testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "", []string{user.RoleFaculty}, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other_faculty", "other@test.local", "", []string{user.RoleFaculty}, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin_user", "admin@test.local", "", []string{user.RoleAdmin}, true)
	facultyToken := app.getToken(t, faculty)
	adminToken := app.getToken(t, admin)

	tests := []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/users", token: facultyToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "list", path: "/v1/users", token: adminToken, wantCode: http.StatusOK, wantData: marshalList(t, faculty, other, admin)},
		{
			name: "search", path: "/v1/users?" + url.Values{"search": {"FAC"}}.Encode(), token: adminToken,
			wantCode: http.StatusOK, wantData: marshalList(t, faculty, other),
		},
		{name: "roles", path: "/v1/users/roles", token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, user.Roles)},
		{name: "own profile", path: "/v1/users/" + faculty.ID, token: facultyToken, wantCode: http.StatusOK, wantData: marshalObj(t, faculty)},
		{name: "other profile", path: "/v1/users/" + other.ID, token: facultyToken, wantCode: http.StatusNotFound},
		{name: "admin sees any profile", path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusOK, wantData: marshalObj(t, other)},
		{name: "unknown profile", path: "/v1/users/unknown", token: adminToken, wantCode: http.StatusNotFound},
		{
			name: "faculty cannot change roles", method: http.MethodPut, path: "/v1/users/" + faculty.ID, token: facultyToken,
			body: marshalObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}), wantCode: http.StatusForbidden,
		},
		{name: "no self delete", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	runHTTPTests(t, app, tests)
}

func Test_accountApi_register(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin_user", "admin@test.local", "", []string{user.RoleAdmin}, true)
	adminToken := app.getToken(t, admin)

	tests := []httpTest{
		{
			name: "role above own", method: http.MethodPost, path: "/v1/users/register", token: adminToken,
			body: marshalObj(t, user.NewUser{
				Name: "Owner", Username: "the_owner", Password: "Sup3r.Secret!", PasswordConfirm: "Sup3r.Secret!",
				Roles: []string{user.RoleAdminOwner},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"roles": errNoPermsToSetRoles}),
		},
		{
			name: "weak password", method: http.MethodPost, path: "/v1/users/register", token: adminToken,
			body: marshalObj(t, user.NewUser{
				Name: "Teacher", Username: "teacher", Password: "password", PasswordConfirm: "password",
				Roles: []string{user.RoleFaculty},
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "created", method: http.MethodPost, path: "/v1/users/register", token: adminToken,
			body: marshalObj(t, user.NewUser{
				Name: "Teacher", Username: "teacher", Email: "teacher@test.local",
				Password: "Sup3r.Secret!", PasswordConfirm: "Sup3r.Secret!", Roles: []string{user.RoleFacultyHOD},
			}),
			wantCode: http.StatusCreated,
		},
	}
	runHTTPTests(t, app, tests)

	usr, err := app.deps.UserSvc.GetByUsernameOrEmail("teacher@test.local")
	require.NoError(t, err)
	assert.True(t, usr.IsFaculty())
}

func Test_accountApi_elevate(t *testing.T) {
	app := setup(t)
	faculty := testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "Pwd.1234!", []string{user.RoleFaculty}, true)
	testutil.CreateUser(t, app.usrRepo, "HOD", "hod_user", "hod@test.local", "Pwd.1234!", []string{user.RoleFacultyHOD}, true)
	testutil.CreateUser(t, app.usrRepo, "Admin", "admin_user", "admin@test.local", "Pwd.1234!", []string{user.RoleAdmin}, true)
	facultyToken := app.getToken(t, faculty)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/v1/users/elevate",
			body: marshalObj(t, LoginRequest{Username: "admin_user", Password: "Pwd.1234!"}), wantCode: http.StatusUnauthorized,
		},
		{
			name: "wrong admin password", method: http.MethodPost, path: "/v1/users/elevate", token: facultyToken,
			body:     marshalObj(t, LoginRequest{Username: "admin_user", Password: "wrong"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "not an admin", method: http.MethodPost, path: "/v1/users/elevate", token: facultyToken,
			body:     marshalObj(t, LoginRequest{Username: "hod_user", Password: "Pwd.1234!"}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "only an admin can authorize changes"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("granted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/elevate", facultyToken,
			marshalObj(t, LoginRequest{Username: "ADMIN@test.local", Password: "Pwd.1234!"}))
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp ElevationResponse
		decode(t, rec, &resp)
		assert.Equal(t, elevationHeader, resp.Header)
		assert.Equal(t, 15*60, resp.ExpiresIn)
		assert.True(t, app.auth.elevated(resp.Token, faculty.ID))
		assert.False(t, app.auth.elevated(resp.Token, "someone-else"))
		// a login token is not an elevation token
		assert.False(t, app.auth.elevated(facultyToken, faculty.ID))
	})
}

func Test_accountApi_passwordReset(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, app.usrRepo, "Faculty", "faculty", "faculty@test.local", "Pwd.1234!", []string{user.RoleFaculty}, true)

	for _, email := range []string{"faculty@test.local", "unknown@test.local"} {
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", marshalObj(t, PasswordResetRequest{Email: email}))
		app.serve(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	sent := app.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	link := sent[0].TextContent[strings.Index(sent[0].TextContent, "?")+1:]
	query, err := url.ParseQuery(strings.TrimSpace(strings.SplitN(link, "\n", 2)[0]))
	require.NoError(t, err)
	assert.Equal(t, user.EncodeUID(usr), query.Get("uid"))

	tests := []httpTest{
		{
			name: "invalid token", method: http.MethodPost, path: "/v1/users/password-reset-confirm",
			body: marshalObj(t, user.ResetUserPassword{
				UID: query.Get("uid"), Token: "bad", Password: "N3w.Passw0rd!", PasswordConfirm: "N3w.Passw0rd!",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "reset", method: http.MethodPost, path: "/v1/users/password-reset-confirm",
			body: marshalObj(t, user.ResetUserPassword{
				UID: query.Get("uid"), Token: query.Get("token"), Password: "N3w.Passw0rd!", PasswordConfirm: "N3w.Passw0rd!",
			}),
			wantCode: http.StatusOK,
		},
	}
	runHTTPTests(t, app, tests)

	usr, err = app.deps.UserSvc.GetByID(usr.ID)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("N3w.Passw0rd!"))
}
