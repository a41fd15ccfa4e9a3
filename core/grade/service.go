package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/subject"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("grade not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrForbidden       = core.NewPermissionError("permission denied")
	ErrNotOwnSubject   = core.NewPermissionError("subject is taught by another teacher")
	ErrNothingToUpdate = errors.New("nothing to update")

	errNotAStudent = "user is not a student"
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		// FilterGrades applies AND operation on set QueryFilter fields,
		// ordered by date then creation time, most recent first.
		FilterGrades(ctx context.Context, filter QueryFilter) ([]Grade, error)
		GetGradeByID(ctx context.Context, id string) (Grade, error)
		// UpdateGrade applies the non-nil fields of ug to the stored row.
		UpdateGrade(ctx context.Context, id string, ug UpdateGrade) (Grade, error)
		DeleteGrade(ctx context.Context, id string) error
	}

	// UserGetter resolves the student referent; implemented by the user
	// repository.
	UserGetter interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	// SubjectGetter resolves the subject referent; implemented by the
	// subject repository.
	SubjectGetter interface {
		GetSubjectByID(ctx context.Context, id string) (subject.Subject, error)
	}

	Service struct {
		repo     Repository
		users    UserGetter
		subjects SubjectGetter
	}
)

func NewService(repo Repository, users UserGetter, subjects SubjectGetter) *Service {
	return &Service{repo: repo, users: users, subjects: subjects}
}

// Query lists grades within the identity's visibility: students their own
// rows, teachers the rows of their own subjects, curators everything.
// Filters naming rows outside that visibility are refused, not narrowed.
func (svc *Service) Query(ctx context.Context, ident policy.Identity, filter QueryFilter) ([]Grade, error) {
	if !policy.Can(ident, policy.ListGrades) {
		return nil, ErrForbidden
	}
	switch {
	case ident.IsStudent():
		if filter.StudentID != "" && filter.StudentID != ident.ID {
			return nil, ErrForbidden
		}
		return svc.repo.FilterGrades(ctx, QueryFilter{StudentID: ident.ID})
	case ident.IsTeacher():
		filter.TeacherID = ident.ID
		return svc.repo.FilterGrades(ctx, filter)
	default:
		return svc.repo.FilterGrades(ctx, filter)
	}
}

// Create records a grade; teachers only for subjects they own.
func (svc *Service) Create(ctx context.Context, ident policy.Identity, ng NewGrade) (Grade, error) {
	if !policy.Can(ident, policy.CreateGrade) {
		return Grade{}, ErrForbidden
	}

	student, err := svc.users.GetUserByID(ctx, ng.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Grade{}, ErrStudentNotFound
		}
		return Grade{}, errors.Wrap(err, "finding student")
	}
	if !student.IsStudent() {
		return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: errNotAStudent})
	}

	subj, err := svc.subjects.GetSubjectByID(ctx, ng.SubjectID)
	if err != nil {
		return Grade{}, err
	}
	if ident.IsTeacher() && subj.TeacherID != ident.ID {
		return Grade{}, ErrNotOwnSubject
	}

	return svc.repo.CreateGrade(ctx, Grade{
		StudentID: ng.StudentID,
		SubjectID: ng.SubjectID,
		Grade:     ng.Grade,
		WorkType:  ng.WorkType,
		Date:      ng.Date,
		CreatedAt: time.Now().UTC(),
	})
}

// getOwned loads the grade and enforces teacher ownership via its subject.
func (svc *Service) getOwned(ctx context.Context, ident policy.Identity, id string) (Grade, error) {
	grd, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if ident.IsTeacher() && grd.TeacherID != ident.ID {
		return Grade{}, ErrForbidden
	}
	return grd, nil
}

func (svc *Service) Update(ctx context.Context, ident policy.Identity, id string, ug UpdateGrade) (Grade, error) {
	if !policy.Can(ident, policy.UpdateGrade) {
		return Grade{}, ErrForbidden
	}
	if _, err := svc.getOwned(ctx, ident, id); err != nil {
		return Grade{}, err
	}
	return svc.repo.UpdateGrade(ctx, id, ug)
}

func (svc *Service) Delete(ctx context.Context, ident policy.Identity, id string) error {
	if !policy.Can(ident, policy.DeleteGrade) {
		return ErrForbidden
	}
	if _, err := svc.getOwned(ctx, ident, id); err != nil {
		return err
	}
	return svc.repo.DeleteGrade(ctx, id)
}
