package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user not found")
	ErrEmailExists          = core.NewConflictError("a user with this email already exists")
	ErrAuthenticationFailed = core.NewAuthenticationError("invalid email or password")
	ErrNothingToUpdate      = errors.New("nothing to update")
	ErrForbidden            = core.NewPermissionError("permission denied")
	ErrGroupNotFound        = core.NewNotFoundError("group not found")
	ErrCannotDeleteSelf     = core.NewPermissionError("cannot delete own account")
	ErrOwnsSubjects         = core.NewConflictError("cannot change role of a teacher who still owns subjects")

	errGroupOnStudentsOnly = "only students can be assigned to a group"
	errFullNameOnly        = "students can only change their full name"
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// UpdateUser applies the non-nil fields of up to the stored row.
		UpdateUser(ctx context.Context, id string, up Update) (User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	// GroupChecker reports whether a group row exists; implemented by the
	// group repository.
	GroupChecker interface {
		GroupExists(ctx context.Context, id string) (bool, error)
	}

	// SubjectCounter reports how many subjects a teacher owns; implemented by
	// the subject repository.
	SubjectCounter interface {
		CountSubjectsByTeacher(ctx context.Context, teacherID string) (int, error)
	}

	Service struct {
		repo     Repository
		groups   GroupChecker
		subjects SubjectCounter
		mailSvc  core.EmailService
		conf     *core.Config
	}
)

func NewService(repo Repository, groups GroupChecker, subjects SubjectCounter, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		groups:   groups,
		subjects: subjects,
		mailSvc:  mailSvc,
		conf:     conf,
	}
}

// checkEmailUniqueness surfaces ErrEmailExists as-is; it maps to a conflict
// response.
func (svc *Service) checkEmailUniqueness(email string, exclUsers ...User) error {
	return svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers...)
}

// Authenticate verifies the email/password pair. Both an unknown email and a
// password mismatch come back as the same ErrAuthenticationFailed so callers
// cannot probe which accounts exist.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}

	now := time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr.ID, Update{LastLogin: &now})
	return usr, errors.Wrap(err, "setting lastLogin")
}

// Create registers a new user on behalf of ident.
func (svc *Service) Create(ctx context.Context, ident policy.Identity, nu NewUser) (User, error) {
	if !policy.Can(ident, policy.RegisterUser) {
		return User{}, ErrForbidden
	}
	if nu.GroupID != "" {
		exists, err := svc.groups.GroupExists(ctx, nu.GroupID)
		if err != nil {
			return User{}, errors.Wrap(err, "checking group")
		}
		if !exists {
			return User{}, ErrGroupNotFound
		}
	}

	now := time.Now().UTC()
	usr := User{
		Email:     nu.Email,
		FullName:  nu.FullName,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nu.GroupID != "" {
		usr.GroupID.SetValid(nu.GroupID)
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeEmail(usr)
	return usr, nil
}

func (svc *Service) sendWelcomeEmail(usr User) {
	body := fmt.Sprintf(
		"Hello %s,\n\nAn account has been created for you on %s.\nLog in with your email address: %s\n",
		usr.FullName, svc.conf.AppName, usr.Email,
	)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject: "Your account is ready",
		BodyStr: body,
	})
}

func (svc *Service) Query(ctx context.Context, ident policy.Identity) ([]User, error) {
	if !policy.Can(ident, policy.ListUsers) {
		return nil, ErrForbidden
	}
	return svc.repo.QueryAllUsers(ctx)
}

// Retrieve returns a single profile; non-curators may only read their own.
func (svc *Service) Retrieve(ctx context.Context, ident policy.Identity, id string) (User, error) {
	if !policy.Can(ident, policy.ViewUser) {
		return User{}, ErrForbidden
	}
	if !ident.IsCurator() && ident.ID != id {
		return User{}, ErrForbidden
	}
	return svc.repo.GetUserByID(ctx, id)
}

// Me returns ident's own profile with its group name resolved.
func (svc *Service) Me(ctx context.Context, ident policy.Identity) (User, error) {
	return svc.repo.GetUserByID(ctx, ident.ID)
}

// GetByID performs an unscoped lookup for in-process collaborators.
func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, ident policy.Identity, id string, uu UpdateUser) (User, error) {
	if !policy.Can(ident, policy.UpdateUser) {
		return User{}, ErrForbidden
	}
	if !ident.IsCurator() {
		// students may only rename themselves
		if ident.ID != id {
			return User{}, ErrForbidden
		}
		if uu.Email != nil || uu.Password != nil || uu.Role != nil || uu.GroupID != nil {
			return User{}, core.NewPermissionError(errFullNameOnly)
		}
	}

	orig, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if uu.Email != nil && *uu.Email != orig.Email {
		if err = svc.checkEmailUniqueness(*uu.Email, orig); err != nil {
			return User{}, err
		}
	}

	if uu.Role != nil && *uu.Role != orig.Role && orig.IsTeacher() {
		// subjects must always point at a teacher; reassign them first
		cnt, err := svc.subjects.CountSubjectsByTeacher(ctx, id)
		if err != nil {
			return User{}, errors.Wrap(err, "counting subjects")
		}
		if cnt > 0 {
			return User{}, ErrOwnsSubjects
		}
	}

	role := orig.Role
	if uu.Role != nil {
		role = *uu.Role
	}
	up := Update{
		Email:    uu.Email,
		FullName: uu.FullName,
		Role:     uu.Role,
	}
	if uu.GroupID != nil {
		var gid null.String
		if *uu.GroupID != "" {
			if role != policy.RoleStudent {
				return User{}, core.NewValidationError(nil, core.FieldError{Field: "group_id", Error: errGroupOnStudentsOnly})
			}
			exists, err := svc.groups.GroupExists(ctx, *uu.GroupID)
			if err != nil {
				return User{}, errors.Wrap(err, "checking group")
			}
			if !exists {
				return User{}, ErrGroupNotFound
			}
			gid.SetValid(*uu.GroupID)
		}
		up.GroupID = &gid
	} else if uu.Role != nil && role != policy.RoleStudent && orig.GroupID.Valid {
		// leaving the student role drops the group assignment
		up.GroupID = &null.String{}
	}
	if uu.Password != nil {
		tmp := User{}
		if err = tmp.SetPassword(*uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
		up.PasswordHash = tmp.PasswordHash
	}

	return svc.repo.UpdateUser(ctx, id, up)
}

func (svc *Service) Delete(ctx context.Context, ident policy.Identity, id string) error {
	if !policy.Can(ident, policy.DeleteUser) {
		return ErrForbidden
	}
	if ident.ID == id {
		return ErrCannotDeleteSelf
	}
	return svc.repo.DeleteUser(ctx, id)
}
