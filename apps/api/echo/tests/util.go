package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/grade"
	"github.com/trezcool/shule/core/group"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/subject"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	dummydb "github.com/trezcool/shule/storage/database/dummy"
)

var (
	conf *core.Config

	usrRepo  user.Repository
	grpRepo  group.Repository
	subjRepo subject.Repository
	grdRepo  grade.Repository

	usrSvc *user.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	conf = &core.Config{
		Debug:     false,
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Shule",
		SecretKey: "sekrit",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 2 * time.Hour,
		},
	}

	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	uRepo := dummydb.NewUserRepository(db)
	gRepo := dummydb.NewGroupRepository(db)
	sRepo := dummydb.NewSubjectRepository(db)
	grRepo := dummydb.NewGradeRepository(db)
	usrRepo, grpRepo, subjRepo, grdRepo = uRepo, gRepo, sRepo, grRepo

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc = user.NewService(uRepo, gRepo, sRepo, mailSvc, conf)
	grpSvc := group.NewService(gRepo, uRepo)
	subjSvc := subject.NewService(sRepo, uRepo, grRepo)
	grdSvc := grade.NewService(grRepo, uRepo, sRepo)

	validate := validator.New()
	translator := newTranslator(t)
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up server
	return NewServer(
		"", /* addr */
		ServerDeps{
			Conf:       conf,
			Logger:     testLogger{t: t},
			UserSvc:    usrSvc,
			GroupSvc:   grpSvc,
			SubjectSvc: subjSvc,
			GradeSvc:   grdSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
}

func newTranslator(t *testing.T) ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, ok := uni.GetTranslator("en")
	if !ok {
		t.Fatal("newTranslator() failed")
	}
	return translator
}

type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Logf("DEBUG: %s %v", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Logf("INFO: %s %v", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Logf("WARN: %s %v", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Logf("ERROR: %s %v", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatalf("FATAL: %s %v", msg, args) }

// Fixtures

func createUser(t *testing.T, email, name, role, groupID, pwd string) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Email:     email,
		FullName:  name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if groupID != "" {
		usr.GroupID.SetValid(groupID)
	}
	require.NoError(t, usr.SetPassword(pwd))

	usr, err := usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func createStudent(t *testing.T, email, name, groupID string) user.User {
	return createUser(t, email, name, policy.RoleStudent, groupID, "s3cr3t-pwd")
}

func createTeacher(t *testing.T, email, name string) user.User {
	return createUser(t, email, name, policy.RoleTeacher, "", "s3cr3t-pwd")
}

func createCurator(t *testing.T, email, name string) user.User {
	return createUser(t, email, name, policy.RoleCurator, "", "s3cr3t-pwd")
}

func createGroup(t *testing.T, name string) group.Group {
	grp, err := grpRepo.CreateGroup(context.Background(), group.Group{Name: name, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	return grp
}

func createSubject(t *testing.T, name, teacherID string) subject.Subject {
	subj, err := subjRepo.CreateSubject(context.Background(), subject.Subject{
		Name:      name,
		TeacherID: teacherID,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return subj
}

func createGrade(t *testing.T, studentID, subjectID string, val int, workType, date string) grade.Grade {
	grd, err := grdRepo.CreateGrade(context.Background(), grade.Grade{
		StudentID: studentID,
		SubjectID: subjectID,
		Grade:     val,
		WorkType:  workType,
		Date:      date,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return grd
}

// HTTP helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr, conf)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	s1, ok1 := j1.([]interface{})
	s2, ok2 := j2.([]interface{})
	if ok1 && ok2 {
		return assert.ElementsMatch(t, s1, s2), nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
