package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/group"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/subject"
	"github.com/trezcool/shule/core/user"
)

func Test_gradeApi_create(t *testing.T) {
	app := setup(t)

	grp := createGroup(t, "G-101")
	student := createStudent(t, "hero@test.cd", "Hero", grp.ID)
	teacher := createTeacher(t, "teacher@test.cd", "Teacher")
	otherTeacher := createTeacher(t, "other@test.cd", "Other Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")

	maths := createSubject(t, "Maths", teacher.ID)
	physics := createSubject(t, "Physics", otherTeacher.ID)

	newGrade := func(studentID, subjectID string, val int, date string) []byte {
		return marchallObj(t, grade.NewGrade{
			StudentID: studentID,
			SubjectID: subjectID,
			Grade:     val,
			WorkType:  "exam",
			Date:      date,
		})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student cannot record grades", token: getToken(t, student), wantCode: http.StatusForbidden,
			body: newGrade(student.ID, maths.ID, 5, "2026-05-01"), wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: getToken(t, teacher), body: []byte("{}"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"student_id": "this field is required",
				"subject_id": "this field is required",
				"grade":      "this field is required",
				"work_type":  "this field is required",
				"date":       "this field is required",
			}),
		},
		{
			name: "grade above scale", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			body:     newGrade(student.ID, maths.ID, 6, "2026-05-01"),
			wantData: marchallObj(t, map[string]string{"grade": "grade must be 5 or less"}),
		},
		{
			name: "grade below scale", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			body:     newGrade(student.ID, maths.ID, -1, "2026-05-01"),
			wantData: marchallObj(t, map[string]string{"grade": "grade must be 1 or greater"}),
		},
		{
			name: "invalid date", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			body:     newGrade(student.ID, maths.ID, 5, "01/05/2026"),
			wantData: marchallObj(t, map[string]string{"date": "must be a valid date in YYYY-MM-DD format"}),
		},
		{
			name: "unknown student", token: getToken(t, teacher), wantCode: http.StatusNotFound,
			body:     newGrade("b3cfa0a8-22f9-4fb6-9e41-b6d1b0f77f93", maths.ID, 5, "2026-05-01"),
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "referent must be a student", token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			body:     newGrade(otherTeacher.ID, maths.ID, 5, "2026-05-01"),
			wantData: marchallObj(t, map[string]string{"student_id": "user is not a student"}),
		},
		{
			name: "unknown subject", token: getToken(t, teacher), wantCode: http.StatusNotFound,
			body:     newGrade(student.ID, "b3cfa0a8-22f9-4fb6-9e41-b6d1b0f77f93", 5, "2026-05-01"),
			wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
		{
			name: "Teacher cannot grade another teacher's subject", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			body:     newGrade(student.ID, physics.ID, 5, "2026-05-01"),
			wantData: marchallObj(t, httpErr{Error: "subject is taught by another teacher"}),
		},
		{
			name: "Teacher grades own subject", token: getToken(t, teacher), wantCode: http.StatusCreated,
			body: newGrade(student.ID, maths.ID, 5, "2026-05-01"),
		},
		{
			name: "Curator grades any subject", token: getToken(t, curator), wantCode: http.StatusCreated,
			body: newGrade(student.ID, physics.ID, 3, "2026-05-02"),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/grades"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var grd grade.Grade
				if err := json.Unmarshal(rec.Body.Bytes(), &grd); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				var body grade.NewGrade
				if err := json.Unmarshal(tt.body, &body); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if grd.ID == "" || grd.StudentID != body.StudentID || grd.SubjectID != body.SubjectID ||
					grd.Grade != body.Grade || grd.WorkType != body.WorkType || grd.Date != body.Date ||
					grd.StudentName != student.FullName {
					t.Errorf("failed! unexpected grade %+v", grd)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("rejected submissions leave no rows behind", func(t *testing.T) {
		teacherToken := getToken(t, teacher)
		for i := 0; i < 2; i++ {
			req, rec := newAuthRequest(http.MethodPost, "/api/grades", teacherToken, newGrade(student.ID, maths.ID, 6, "2026-05-03"))
			app.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
			}
		}

		req, rec := newAuthRequest(http.MethodGet, "/api/grades", getToken(t, curator))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var grades []grade.Grade
		if err := json.Unmarshal(rec.Body.Bytes(), &grades); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(grades) != 2 {
			t.Errorf("failed! %d grades stored; want 2", len(grades))
		}
	})
}

func Test_gradeApi_query(t *testing.T) {
	app := setup(t)

	grp1 := createGroup(t, "G-101")
	grp2 := createGroup(t, "G-102")
	student1 := createStudent(t, "hero@test.cd", "Hero", grp1.ID)
	student2 := createStudent(t, "villain@test.cd", "Villain", grp2.ID)
	teacher1 := createTeacher(t, "teacher@test.cd", "Teacher")
	teacher2 := createTeacher(t, "other@test.cd", "Other Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")

	maths := createSubject(t, "Maths", teacher1.ID)
	physics := createSubject(t, "Physics", teacher2.ID)

	grd1 := createGrade(t, student1.ID, maths.ID, 5, "exam", "2026-05-01")
	grd2 := createGrade(t, student2.ID, maths.ID, 2, "homework", "2026-05-02")
	grd3 := createGrade(t, student1.ID, physics.ID, 4, "quiz", "2026-05-03")

	student1Token := getToken(t, student1)
	curatorToken := getToken(t, curator)

	tests := []httpTest{
		{name: "Auth required", path: "/api/grades", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student sees own grades only", path: "/api/grades", token: student1Token,
			wantCode: http.StatusOK, wantData: marchallList(t, grd1, grd3),
		},
		{
			name: "Student may filter on themselves", path: "/api/grades?student_id=" + student1.ID, token: student1Token,
			wantCode: http.StatusOK, wantData: marchallList(t, grd1, grd3),
		},
		{
			name: "Student cannot filter on another student", path: "/api/grades?student_id=" + student2.ID, token: student1Token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Teacher sees own subjects' grades only", path: "/api/grades", token: getToken(t, teacher1),
			wantCode: http.StatusOK, wantData: marchallList(t, grd1, grd2),
		},
		{
			name: "Teacher filters stay scoped to own subjects", path: "/api/grades?student_id=" + student1.ID, token: getToken(t, teacher1),
			wantCode: http.StatusOK, wantData: marchallList(t, grd1),
		},
		{
			name: "Another teacher sees their own", path: "/api/grades", token: getToken(t, teacher2),
			wantCode: http.StatusOK, wantData: marchallList(t, grd3),
		},
		{
			name: "Curator sees everything", path: "/api/grades", token: curatorToken,
			wantCode: http.StatusOK, wantData: marchallList(t, grd1, grd2, grd3),
		},
		{
			name: "Curator filters by student", path: "/api/grades?student_id=" + student1.ID, token: curatorToken,
			wantCode: http.StatusOK, wantData: marchallList(t, grd1, grd3),
		},
		{
			name: "Curator filters by subject", path: "/api/grades?subject_id=" + maths.ID, token: curatorToken,
			wantCode: http.StatusOK, wantData: marchallList(t, grd1, grd2),
		},
		{
			name: "Curator filters by group", path: "/api/grades?group_id=" + grp1.ID, token: curatorToken,
			wantCode: http.StatusOK, wantData: marchallList(t, grd1, grd3),
		},
		{
			name: "Curator combines filters", path: "/api/grades?group_id=" + grp1.ID + "&subject_id=" + maths.ID, token: curatorToken,
			wantCode: http.StatusOK, wantData: marchallList(t, grd1),
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

func Test_gradeApi_update(t *testing.T) {
	app := setup(t)

	student := createStudent(t, "hero@test.cd", "Hero", "")
	teacher1 := createTeacher(t, "teacher@test.cd", "Teacher")
	teacher2 := createTeacher(t, "other@test.cd", "Other Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")

	maths := createSubject(t, "Maths", teacher1.ID)
	grd := createGrade(t, student.ID, maths.ID, 2, "exam", "2026-05-01")

	tests := []httpTest{
		{name: "Auth required", path: "/api/grades/" + grd.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student cannot update grades", path: "/api/grades/" + grd.ID, token: getToken(t, student),
			body: marchallObj(t, grade.UpdateGrade{Grade: intPtr(5)}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "nothing to update", path: "/api/grades/" + grd.ID, token: getToken(t, teacher1),
			body: marchallObj(t, grade.UpdateGrade{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "nothing to update"}),
		},
		{
			name: "invalid date", path: "/api/grades/" + grd.ID, token: getToken(t, teacher1),
			body: marchallObj(t, grade.UpdateGrade{Date: strPtr("May 1st")}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "must be a valid date in YYYY-MM-DD format"}),
		},
		{
			name: "Not Found", path: "/api/grades/b3cfa0a8-22f9-4fb6-9e41-b6d1b0f77f93", token: getToken(t, teacher1),
			body: marchallObj(t, grade.UpdateGrade{Grade: intPtr(5)}), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "grade not found"}),
		},
		{
			name: "Another teacher cannot touch the grade", path: "/api/grades/" + grd.ID, token: getToken(t, teacher2),
			body: marchallObj(t, grade.UpdateGrade{Grade: intPtr(5)}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Owning teacher corrects the grade", path: "/api/grades/" + grd.ID, token: getToken(t, teacher1),
			body: marchallObj(t, grade.UpdateGrade{Grade: intPtr(4), WorkType: strPtr("retake")}), wantCode: http.StatusOK,
		},
		{
			name: "Curator corrects any grade", path: "/api/grades/" + grd.ID, token: getToken(t, curator),
			body: marchallObj(t, grade.UpdateGrade{Date: strPtr("2026-05-02")}), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var got grade.Grade
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				var body grade.UpdateGrade
				if err := json.Unmarshal(tt.body, &body); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if got.ID != grd.ID ||
					(body.Grade != nil && got.Grade != *body.Grade) ||
					(body.WorkType != nil && got.WorkType != *body.WorkType) ||
					(body.Date != nil && got.Date != *body.Date) {
					t.Errorf("failed! unexpected grade %+v", got)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_gradeApi_destroy(t *testing.T) {
	app := setup(t)

	student := createStudent(t, "hero@test.cd", "Hero", "")
	teacher1 := createTeacher(t, "teacher@test.cd", "Teacher")
	teacher2 := createTeacher(t, "other@test.cd", "Other Teacher")
	curator := createCurator(t, "admin@test.cd", "Admin")

	maths := createSubject(t, "Maths", teacher1.ID)
	grd1 := createGrade(t, student.ID, maths.ID, 2, "exam", "2026-05-01")
	grd2 := createGrade(t, student.ID, maths.ID, 3, "homework", "2026-05-02")

	tests := []httpTest{
		{name: "Auth required", path: "/api/grades/" + grd1.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student cannot delete grades", path: "/api/grades/" + grd1.ID, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Not Found", path: "/api/grades/b3cfa0a8-22f9-4fb6-9e41-b6d1b0f77f93", token: getToken(t, teacher1),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "grade not found"}),
		},
		{
			name: "Another teacher cannot delete the grade", path: "/api/grades/" + grd1.ID, token: getToken(t, teacher2),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Owning teacher deletes the grade", path: "/api/grades/" + grd1.ID, token: getToken(t, teacher1), wantCode: http.StatusNoContent},
		{name: "Curator deletes any grade", path: "/api/grades/" + grd2.ID, token: getToken(t, curator), wantCode: http.StatusNoContent},
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

// Test_gradeApi_recordingFlow drives the whole chain over the API: the
// curator builds the school, a teacher records a grade and the student finds
// it back verbatim.
func Test_gradeApi_recordingFlow(t *testing.T) {
	app := setup(t)

	curator := createCurator(t, "admin@test.cd", "Admin")
	curatorToken := getToken(t, curator)

	do := func(t *testing.T, method, path, token string, body []byte, wantCode int, out interface{}) {
		t.Helper()
		req, rec := newAuthRequest(method, path, token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("%s %s failed! code = %v; wantCode %v; body %s", method, path, rec.Code, wantCode, rec.Body.String())
		}
		if out != nil {
			if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
				t.Fatalf("json.Unmarshal(): %v", err)
			}
		}
	}

	var grp group.Group
	do(t, http.MethodPost, "/api/groups", curatorToken,
		marchallObj(t, group.NewGroup{Name: "G-101"}), http.StatusCreated, &grp)

	var teacher, idleTeacher, student user.User
	do(t, http.MethodPost, "/api/users", curatorToken,
		marchallObj(t, user.NewUser{Email: "teacher@test.cd", Password: "s3cr3t-pwd", FullName: "Teacher", Role: policy.RoleTeacher}),
		http.StatusCreated, &teacher)
	do(t, http.MethodPost, "/api/users", curatorToken,
		marchallObj(t, user.NewUser{Email: "idle@test.cd", Password: "s3cr3t-pwd", FullName: "Idle Teacher", Role: policy.RoleTeacher}),
		http.StatusCreated, &idleTeacher)
	do(t, http.MethodPost, "/api/users", curatorToken,
		marchallObj(t, user.NewUser{Email: "hero@test.cd", Password: "s3cr3t-pwd", FullName: "Hero", Role: policy.RoleStudent, GroupID: grp.ID}),
		http.StatusCreated, &student)

	var maths subject.Subject
	do(t, http.MethodPost, "/api/subjects", curatorToken,
		marchallObj(t, subject.NewSubject{Name: "Maths", TeacherID: teacher.ID}), http.StatusCreated, &maths)

	posted := grade.NewGrade{StudentID: student.ID, SubjectID: maths.ID, Grade: 5, WorkType: "exam", Date: "2026-05-04"}
	var grd grade.Grade
	do(t, http.MethodPost, "/api/grades", getToken(t, teacher), marchallObj(t, posted), http.StatusCreated, &grd)

	// the student finds exactly that grade, fields intact
	var grades []grade.Grade
	do(t, http.MethodGet, "/api/grades", getToken(t, student), nil, http.StatusOK, &grades)
	if len(grades) != 1 {
		t.Fatalf("failed! %d grades returned; want 1", len(grades))
	}
	got := grades[0]
	if got.ID != grd.ID || got.StudentID != posted.StudentID || got.SubjectID != posted.SubjectID ||
		got.Grade != posted.Grade || got.WorkType != posted.WorkType || got.Date != posted.Date {
		t.Errorf("failed! unexpected grade %+v", got)
	}

	// a teacher without subjects cannot record anything
	var e httpErr
	do(t, http.MethodPost, "/api/grades", getToken(t, idleTeacher), marchallObj(t, posted), http.StatusForbidden, &e)
	if e.Error != "subject is taught by another teacher" {
		t.Errorf("failed! error = %q", e.Error)
	}
}
