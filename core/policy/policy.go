// Package policy holds the single authorization table of the app: which
// role may attempt which action. Ownership-scoped rules (a teacher may
// only touch grades of their own subjects, a student may only read their
// own rows) further narrow these grants inside the services; the table is
// the only place a role name gates an operation.
package policy

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleCurator = "curator"
)

var (
	AllRoles = []string{RoleStudent, RoleTeacher, RoleCurator}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Curator", Value: RoleCurator},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID    string
	Email string
	Role  string
}

func (i Identity) IsStudent() bool { return i.Role == RoleStudent }
func (i Identity) IsTeacher() bool { return i.Role == RoleTeacher }
func (i Identity) IsCurator() bool { return i.Role == RoleCurator }

// Action enumerates every protected operation of the API.
type Action int

const (
	RegisterUser Action = iota
	ListUsers
	ViewUser // own-only unless curator
	UpdateUser
	DeleteUser

	ListGroups // visibility narrowed per role
	ViewGroup
	CreateGroup
	UpdateGroup
	DeleteGroup

	ListSubjects
	ViewSubject
	CreateSubject
	UpdateSubject
	DeleteSubject

	ListGrades
	CreateGrade
	UpdateGrade
	DeleteGrade
)

// grants maps each action to the roles allowed to attempt it.
var grants = map[Action][]string{
	RegisterUser: {RoleCurator},
	ListUsers:    {RoleCurator},
	ViewUser:     {RoleStudent, RoleTeacher, RoleCurator},
	UpdateUser:   {RoleStudent, RoleCurator},
	DeleteUser:   {RoleCurator},

	ListGroups:  {RoleStudent, RoleTeacher, RoleCurator},
	ViewGroup:   {RoleStudent, RoleTeacher, RoleCurator},
	CreateGroup: {RoleCurator},
	UpdateGroup: {RoleCurator},
	DeleteGroup: {RoleCurator},

	ListSubjects:  {RoleStudent, RoleTeacher, RoleCurator},
	ViewSubject:   {RoleStudent, RoleTeacher, RoleCurator},
	CreateSubject: {RoleCurator},
	UpdateSubject: {RoleCurator},
	DeleteSubject: {RoleCurator},

	ListGrades:  {RoleStudent, RoleTeacher, RoleCurator},
	CreateGrade: {RoleTeacher, RoleCurator},
	UpdateGrade: {RoleTeacher, RoleCurator},
	DeleteGrade: {RoleTeacher, RoleCurator},
}

// Can reports whether the identity's role may attempt the action.
func Can(ident Identity, action Action) bool {
	for _, role := range grants[action] {
		if ident.Role == role {
			return true
		}
	}
	return false
}
