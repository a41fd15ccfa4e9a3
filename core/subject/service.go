package subject

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("subject not found")
	ErrTeacherNotFound = core.NewNotFoundError("teacher not found")
	ErrHasGrades       = core.NewConflictError("cannot delete a subject that still has grades")
	ErrForbidden       = core.NewPermissionError("permission denied")
	ErrNothingToUpdate = errors.New("nothing to update")

	errNotATeacher = "user is not a teacher"
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		// UpdateSubject applies the non-nil fields of us to the stored row.
		UpdateSubject(ctx context.Context, id string, us UpdateSubject) (Subject, error)
		DeleteSubject(ctx context.Context, id string) error
	}

	// UserGetter resolves the teacher referent; implemented by the user
	// repository.
	UserGetter interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	// GradeCounter reports how many grades reference a subject; implemented
	// by the grade repository.
	GradeCounter interface {
		CountGradesBySubject(ctx context.Context, subjectID string) (int, error)
	}

	Service struct {
		repo   Repository
		users  UserGetter
		grades GradeCounter
	}
)

func NewService(repo Repository, users UserGetter, grades GradeCounter) *Service {
	return &Service{repo: repo, users: users, grades: grades}
}

// checkTeacher ensures the referent exists and actually is a teacher.
func (svc *Service) checkTeacher(ctx context.Context, teacherID string) error {
	usr, err := svc.users.GetUserByID(ctx, teacherID)
	if err != nil {
		if core.IsNotFound(err) {
			return ErrTeacherNotFound
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: errNotATeacher})
	}
	return nil
}

// Query lists subjects: teachers see their own only, everyone else all.
func (svc *Service) Query(ctx context.Context, ident policy.Identity) ([]Subject, error) {
	if !policy.Can(ident, policy.ListSubjects) {
		return nil, ErrForbidden
	}
	if ident.IsTeacher() {
		return svc.repo.QuerySubjectsByTeacher(ctx, ident.ID)
	}
	return svc.repo.QueryAllSubjects(ctx)
}

func (svc *Service) Retrieve(ctx context.Context, ident policy.Identity, id string) (Subject, error) {
	if !policy.Can(ident, policy.ViewSubject) {
		return Subject{}, ErrForbidden
	}
	return svc.repo.GetSubjectByID(ctx, id)
}

// GetByID performs an unscoped lookup for in-process collaborators.
func (svc *Service) GetByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *Service) Create(ctx context.Context, ident policy.Identity, ns NewSubject) (Subject, error) {
	if !policy.Can(ident, policy.CreateSubject) {
		return Subject{}, ErrForbidden
	}
	if err := svc.checkTeacher(ctx, ns.TeacherID); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		TeacherID: ns.TeacherID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Update(ctx context.Context, ident policy.Identity, id string, us UpdateSubject) (Subject, error) {
	if !policy.Can(ident, policy.UpdateSubject) {
		return Subject{}, ErrForbidden
	}
	if _, err := svc.repo.GetSubjectByID(ctx, id); err != nil {
		return Subject{}, err
	}
	if us.TeacherID != nil {
		if err := svc.checkTeacher(ctx, *us.TeacherID); err != nil {
			return Subject{}, err
		}
	}
	return svc.repo.UpdateSubject(ctx, id, us)
}

// Delete removes a subject; it is blocked while any grade still references it.
func (svc *Service) Delete(ctx context.Context, ident policy.Identity, id string) error {
	if !policy.Can(ident, policy.DeleteSubject) {
		return ErrForbidden
	}
	if _, err := svc.repo.GetSubjectByID(ctx, id); err != nil {
		return err
	}
	count, err := svc.grades.CountGradesBySubject(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting subject grades")
	}
	if count > 0 {
		return ErrHasGrades
	}
	return svc.repo.DeleteSubject(ctx, id)
}
