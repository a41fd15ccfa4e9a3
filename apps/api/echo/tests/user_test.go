package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	grp := createGroup(t, "G-101")
	student := createStudent(t, "hero@test.cd", "Hero", grp.ID)
	teacher := createTeacher(t, "teacher@test.cd", "Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")
	curatorToken := getToken(t, curator)

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	newUsr := func(email, role, groupID string) []byte {
		return marchallObj(t, user.NewUser{
			Email:    email,
			Password: "s3cr3t-pwd",
			FullName: "New User",
			Role:     role,
			GroupID:  groupID,
		})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student cannot register users", token: getToken(t, student), wantCode: http.StatusForbidden,
			body: newUsr("new@test.cd", policy.RoleStudent, ""), wantData: forbidden,
		},
		{
			name: "Teacher cannot register users", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			body: newUsr("new@test.cd", policy.RoleStudent, ""), wantData: forbidden,
		},
		{
			name: "required fields", token: curatorToken, body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":     "this field is required",
				"password":  "this field is required",
				"full_name": "this field is required",
				"role":      "this field is required",
			}),
		},
		{
			name: "invalid role", token: curatorToken, wantCode: http.StatusBadRequest,
			body:     newUsr("new@test.cd", "principal", ""),
			wantData: marchallObj(t, map[string]string{"role": "must be one of: student, teacher, curator"}),
		},
		{
			name: "group only for students", token: curatorToken, wantCode: http.StatusBadRequest,
			body:     newUsr("new@test.cd", policy.RoleTeacher, grp.ID),
			wantData: marchallObj(t, map[string]string{"group_id": "only students can be assigned to a group"}),
		},
		{
			name: "unknown group", token: curatorToken, wantCode: http.StatusNotFound,
			body:     newUsr("new@test.cd", policy.RoleStudent, "b3cfa0a8-22f9-4fb6-9e41-b6d1b0f77f93"),
			wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
		{
			name: "duplicate email", token: curatorToken, wantCode: http.StatusConflict,
			body:     newUsr(student.Email, policy.RoleStudent, ""),
			wantData: marchallObj(t, httpErr{Error: "a user with this email already exists"}),
		},
		{
			name: "Curator registers a student", token: curatorToken, wantCode: http.StatusCreated,
			body: newUsr("new@test.cd", policy.RoleStudent, grp.ID),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/users"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess ID & timestamps on success.. check the fields
			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if usr.Email != "new@test.cd" || usr.Role != policy.RoleStudent {
					t.Errorf("failed! unexpected user %+v", usr)
				}
				if !usr.GroupID.Valid || usr.GroupID.String != grp.ID {
					t.Errorf("failed! group not assigned: %+v", usr.GroupID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	student := createStudent(t, "hero@test.cd", "Hero", "")
	teacher := createTeacher(t, "teacher@test.cd", "Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Student cannot list users", token: getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "Teacher cannot list users", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "Curator gets all", token: getToken(t, curator), wantCode: http.StatusOK,
			wantData: marchallList(t, student, teacher, curator),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/api/users"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	student := createStudent(t, "hero@test.cd", "Hero", "")
	other := createStudent(t, "other@test.cd", "Other", "")
	curator := createCurator(t, "admin@test.cd", "Admin")

	tests := []httpTest{
		{name: "Auth required", path: "/api/users/" + student.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student reads own profile", path: "/api/users/" + student.ID, token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, student),
		},
		{
			name: "Student cannot read others", path: "/api/users/" + other.ID, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Curator reads anyone", path: "/api/users/" + other.ID, token: getToken(t, curator),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "unknown user", path: "/api/users/b3cfa0a8-22f9-4fb6-9e41-b6d1b0f77f93", token: getToken(t, curator),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_update(t *testing.T) {
	app := setup(t)

	grp := createGroup(t, "G-101")
	student := createStudent(t, "hero@test.cd", "Hero", "")
	teacher := createTeacher(t, "teacher@test.cd", "Teacher")
	busyTeacher := createTeacher(t, "busy@test.cd", "Busy Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")
	curatorToken := getToken(t, curator)

	createSubject(t, "Maths", busyTeacher.ID)

	sPtr := func(s string) *string { return &s }

	type wantUser struct {
		fullName string
		role     string
		groupID  string
	}
	tests := []httpTest{
		{
			name: "Auth required", path: "/api/users/" + student.ID,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Teacher cannot update", path: "/api/users/" + teacher.ID, token: getToken(t, teacher),
			body:     marchallObj(t, user.UpdateUser{FullName: sPtr("New Name")}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Student cannot update others", path: "/api/users/" + curator.ID, token: getToken(t, student),
			body:     marchallObj(t, user.UpdateUser{FullName: sPtr("New Name")}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Student can only rename themselves", path: "/api/users/" + student.ID, token: getToken(t, student),
			body:     marchallObj(t, user.UpdateUser{Email: sPtr("evil@test.cd")}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "students can only change their full name"}),
		},
		{
			name: "empty update", path: "/api/users/" + student.ID, token: curatorToken,
			body:     marchallObj(t, user.UpdateUser{}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "nothing to update"}),
		},
		{
			name: "duplicate email", path: "/api/users/" + student.ID, token: curatorToken,
			body:     marchallObj(t, user.UpdateUser{Email: sPtr(teacher.Email)}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "a user with this email already exists"}),
		},
		{
			name: "group only for students", path: "/api/users/" + teacher.ID, token: curatorToken,
			body:     marchallObj(t, user.UpdateUser{GroupID: sPtr(grp.ID)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"group_id": "only students can be assigned to a group"}),
		},
		{
			name: "teachers with subjects keep their role", path: "/api/users/" + busyTeacher.ID, token: curatorToken,
			body:     marchallObj(t, user.UpdateUser{Role: sPtr(policy.RoleCurator)}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "cannot change role of a teacher who still owns subjects"}),
		},
		{
			name: "Student renames themselves", path: "/api/users/" + student.ID, token: getToken(t, student),
			body:     marchallObj(t, user.UpdateUser{FullName: sPtr("Super Hero")}),
			wantCode: http.StatusOK, extra: wantUser{fullName: "Super Hero", role: policy.RoleStudent},
		},
		{
			name: "Curator assigns a group", path: "/api/users/" + student.ID, token: curatorToken,
			body:     marchallObj(t, user.UpdateUser{GroupID: sPtr(grp.ID)}),
			wantCode: http.StatusOK, extra: wantUser{fullName: "Super Hero", role: policy.RoleStudent, groupID: grp.ID},
		},
		{
			name: "Promotion to teacher drops the group", path: "/api/users/" + student.ID, token: curatorToken,
			body:     marchallObj(t, user.UpdateUser{Role: sPtr(policy.RoleTeacher)}),
			wantCode: http.StatusOK, extra: wantUser{fullName: "Super Hero", role: policy.RoleTeacher},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if want, ok := tt.extra.(wantUser); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if usr.FullName != want.fullName || usr.Role != want.role {
					t.Errorf("failed! unexpected user %+v", usr)
				}
				if want.groupID == "" && usr.GroupID.Valid {
					t.Errorf("failed! group should not be set: %+v", usr.GroupID)
				}
				if want.groupID != "" && usr.GroupID.String != want.groupID {
					t.Errorf("failed! group = %v; want %v", usr.GroupID.String, want.groupID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)

	student := createStudent(t, "hero@test.cd", "Hero", "")
	teacher := createTeacher(t, "teacher@test.cd", "Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")
	curatorToken := getToken(t, curator)

	tests := []httpTest{
		{name: "Auth required", path: "/api/users/" + student.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student cannot delete", path: "/api/users/" + student.ID, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Teacher cannot delete", path: "/api/users/" + student.ID, token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Curator cannot delete themselves", path: "/api/users/" + curator.ID, token: curatorToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "cannot delete own account"}),
		},
		{
			name: "unknown user", path: "/api/users/b3cfa0a8-22f9-4fb6-9e41-b6d1b0f77f93", token: curatorToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{name: "Curator deletes a user", path: "/api/users/" + student.ID, token: curatorToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		tt.method = http.MethodDelete

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusNoContent {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
