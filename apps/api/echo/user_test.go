package echoapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/danhgia/core/user"
	xlsxsvc "github.com/trezcool/danhgia/services/spreadsheet"
)

func TestUsers_permissions(t *testing.T) {
	env := setup(t)
	sid := login(t, env.server, "principal")

	for _, path := range []string{"/api/users", "/api/users/export", "/api/users/template"} {
		req, rec := newAuthRequest(http.MethodGet, path, sid)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	}

	req, rec := newRequest(http.MethodGet, "/api/users")
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errUnauthenticated)}, rec)
}

func TestUsers_query(t *testing.T) {
	env := setup(t)
	sid := login(t, env.server, "admin")

	tests := []httpTest{
		{
			name:     "by team",
			path:     "/api/users?team=math&ordering=-name",
			wantCode: http.StatusOK,
			wantData: []byte(`[
				{"id": "6", "username": "dung", "name": "Phạm Thị Dung", "role": "Teacher", "teamId": "MATH", "email": "dung@example.edu.vn"},
				{"id": "3", "username": "leader", "name": "Nguyễn Văn An", "role": "TeamLeader", "teamId": "MATH"},
				{"id": "2", "username": "teacher", "name": "John Doe", "role": "Teacher", "teamId": "MATH"}
			]`),
		},
		{
			name:     "by role & search",
			path:     "/api/users?role=teacher&search=JOHN",
			wantCode: http.StatusOK,
			wantData: []byte(`[{"id": "2", "username": "teacher", "name": "John Doe", "role": "Teacher", "teamId": "MATH"}]`),
		},
		{
			name:     "no match",
			path:     "/api/users?search=zzz",
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, sid)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUsers_crud(t *testing.T) {
	env := setup(t)
	sid := login(t, env.server, "admin")

	nu := user.NewUser{Username: "Hoa", Password: "Xk9#pq2!", Name: "Võ Thị Hoa", Role: "staff", TeamID: " Vp "}
	tests := []httpTest{
		{
			name:     "invalid",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username": "h!", "password": "hoa", "name": "Hoa", "role": "Janitor", "teamId": "VP"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"username": "username must be at least 3 characters in length",
				"password": "password must contain at least 6 characters",
				"role": "invalid role"
			}`),
		},
		{
			name:     "created",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     marchallObj(t, nu),
			wantCode: http.StatusCreated,
			wantData: marchallObj(t, SuccessResponse{Success: "User created."}),
		},
		{
			name:     "duplicate username",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     marchallObj(t, nu),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "a user with this username already exists"}`),
		},
		{
			name:     "update unknown",
			method:   http.MethodPut,
			path:     "/api/users/404",
			body:     []byte(`{"username": "ghost", "name": "Ghost", "role": "Teacher", "teamId": "MATH"}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name:     "update",
			method:   http.MethodPut,
			path:     "/api/users/2",
			body:     []byte(`{"username": "teacher", "name": "John Smith", "role": "TeamLeader", "teamId": "MATH"}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: "User updated."}),
		},
		{
			name:     "delete self",
			method:   http.MethodDelete,
			path:     "/api/users/1",
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, sid, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec := newAuthRequest(http.MethodGet, "/api/users?search=hoa", sid)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	unmarchallObj(t, rec.Body.Bytes(), &users)
	require.Len(t, users, 1)
	assert.Equal(t, "hoa", users[0].Username)
	assert.Equal(t, user.RoleStaff, users[0].Role)
	assert.Equal(t, "Vp", users[0].TeamID, "team codes are kept as entered")

	req, rec = newAuthRequest(http.MethodDelete, "/api/users/"+users[0].ID, sid)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/api/users/"+users[0].ID, sid)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers_spreadsheets(t *testing.T) {
	env := setup(t)
	sid := login(t, env.server, "admin")

	req, rec := newAuthRequest(http.MethodGet, "/api/users/template", sid)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="users_template.xlsx"`, rec.Header().Get("Content-Disposition"))
	template := rec.Body.Bytes()

	upload := func(data []byte) *http.Request {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		if data != nil {
			fw, err := w.CreateFormFile("file", "users.xlsx")
			require.NoError(t, err)
			_, _ = fw.Write(data)
		}
		require.NoError(t, w.Close())
		req, _ := newAuthRequest(http.MethodPost, "/api/users/import", sid, body.Bytes())
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req
	}

	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, upload(nil))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"file": "an .xlsx file is required"}`)}, rec)

	// errors point at spreadsheet rows, blank ones included
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &xlsxsvc.Headers))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]interface{}{"", "hoa", "Xk9#pq2!", "Võ Thị Hoa", "Janitor", "VP", ""}))
	var withBlank bytes.Buffer
	_, err := wb.WriteTo(&withBlank)
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, upload(withBlank.Bytes()))
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: []byte(`{"row 3: role": "invalid role"}`)}, rec)

	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, upload(template))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, ImportResponse{Success: "Users imported.", Count: 3})}, rec)

	// importing again clashes with the existing usernames
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, upload(template))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: []byte(`{
			"row 2: username": "a user with this username already exists",
			"row 3: username": "a user with this username already exists",
			"row 4: username": "a user with this username already exists"
		}`),
	}, rec)

	req, rec = newAuthRequest(http.MethodGet, "/api/users/export", sid)
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	exported, err := xlsxsvc.ReadUsers(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Len(t, exported, 9)
	assert.Equal(t, "nguyenvana", exported[6].Username)
	assert.Empty(t, exported[6].Password)
}
