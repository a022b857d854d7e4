package echoapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
	sheetsvc "github.com/trezcool/danhgia/services/sheets"
)

func TestAuth_login(t *testing.T) {
	env := setup(t)

	tests := []httpTest{
		{
			name:     "wrong password",
			body:     marchallObj(t, session.Credentials{Username: "teacher", Password: "nope"}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "Invalid credentials"}),
		},
		{
			name:     "missing password",
			body:     []byte(`{"username": "teacher"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"password": "this field is required"}`),
		},
		{
			name:     "case-insensitive username",
			body:     marchallObj(t, session.Credentials{Username: " Teacher ", Password: "teacher"}),
			wantCode: http.StatusOK,
			wantData: []byte(`{
				"user": {"id": "2", "username": "teacher", "name": "John Doe", "role": "Teacher", "teamId": "MATH"},
				"roleLabel": "Giáo viên",
				"evalType": "GV"
			}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/auth/login", tt.body)
			env.server.ServeHTTP(rec, req)
			checkCode(t, tt, rec)

			var got map[string]interface{}
			unmarchallObj(t, rec.Body.Bytes(), &got)
			delete(got, "expiresAt")
			ok, err := jsonBytesEqual(t, marchallObj(t, got), tt.wantData)
			require.NoError(t, err)
			assert.True(t, ok, "data = %s", rec.Body.String())
		})
	}
}

func TestAuth_session(t *testing.T) {
	env := setup(t)

	// anonymous
	req, rec := newRequest(http.MethodGet, "/api/auth/me")
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthenticated)}, rec)

	sid := login(t, env.server, "staff")

	req, rec = newAuthRequest(http.MethodGet, "/api/auth/me", sid)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var me MeResponse
	unmarchallObj(t, rec.Body.Bytes(), &me)
	assert.Equal(t, "4", me.User.ID)
	assert.Equal(t, user.EvalTypeNV, me.EvalType)
	require.NotNil(t, me.ExpiresAt)
	assert.True(t, me.ExpiresAt.After(time.Now()))

	// logging out twice is fine
	for i := 0; i < 2; i++ {
		req, rec = newAuthRequest(http.MethodPost, "/api/auth/logout", sid)
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/auth/me", sid)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func sessionCookieOf(rec interface{ Result() *http.Response }) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	return nil
}

func TestAuth_expiredSession(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	usr := user.User{ID: "2", Username: "teacher", Name: "John Doe", Role: user.RoleTeacher, TeamID: "MATH"}
	token, err := env.mock.IssueToken(usr, time.Now().Add(-time.Second))
	require.NoError(t, err)
	require.NoError(t, env.store.Save(ctx, session.Session{ID: "expired", Token: token, User: usr}))

	req, rec := newAuthRequest(http.MethodGet, "/api/auth/me", "expired")
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthenticated)}, rec)

	c := sessionCookieOf(rec)
	require.NotNil(t, c, "cookie cleared")
	assert.True(t, c.MaxAge < 0)

	_, err = env.store.Get(ctx, "expired")
	assert.Equal(t, session.ErrNotFound, err, "expired session purged")

	// the dashboard stays public
	req, rec = newAuthRequest(http.MethodGet, "/api/dashboard", "expired")
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_rejectedToken(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	// signed with another secret: readable, but refused by the API
	conf := &core.Config{SecretKey: "other-secret"}
	usr := user.User{ID: "2", Username: "teacher", Role: user.RoleTeacher, TeamID: "MATH"}
	token, err := sheetsvc.NewMock(conf).IssueToken(usr, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, env.store.Save(ctx, session.Session{ID: "forged", Token: token, User: usr}))

	req, rec := newAuthRequest(http.MethodGet, "/api/config", "forged")
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "Invalid or expired token"})}, rec)

	_, err = env.store.Get(ctx, "forged")
	assert.Equal(t, session.ErrNotFound, err, "rejected session dropped")
}
