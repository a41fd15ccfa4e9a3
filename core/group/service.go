package group

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
	ErrNotFound    = core.NewNotFoundError("group not found")
	ErrNameExists  = core.NewConflictError("a group with this name already exists")
	ErrHasStudents = core.NewConflictError("cannot delete a group that still has students")
	ErrForbidden   = core.NewPermissionError("permission denied")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name string, excluded ...Group) error
		CreateGroup(ctx context.Context, grp Group) (Group, error)
		QueryAllGroups(ctx context.Context) ([]Group, error)
		// QueryGroupsTaughtBy returns the groups containing at least one
		// student graded in one of the teacher's subjects, resolved through
		// an explicit subjects -> grades -> students -> group join.
		QueryGroupsTaughtBy(ctx context.Context, teacherID string) ([]Group, error)
		GetGroupByID(ctx context.Context, id string) (Group, error)
		UpdateGroup(ctx context.Context, id string, name string) (Group, error)
		DeleteGroup(ctx context.Context, id string) error
	}

	// MemberDirectory resolves group membership; implemented by the user
	// repository.
	MemberDirectory interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
		QueryUsersByGroup(ctx context.Context, groupID string) ([]user.User, error)
		CountUsersByGroup(ctx context.Context, groupID string) (int, error)
	}

	Service struct {
		repo    Repository
		members MemberDirectory
	}
)

func NewService(repo Repository, members MemberDirectory) *Service {
	return &Service{repo: repo, members: members}
}

func (svc *Service) checkNameUniqueness(ctx context.Context, name string, exclGroups ...Group) error {
	return svc.repo.CheckNameUniqueness(ctx, name, exclGroups...)
}

// Query lists groups the identity may see: students their own group,
// teachers the groups they actually teach, curators everything.
func (svc *Service) Query(ctx context.Context, ident policy.Identity) ([]Group, error) {
	if !policy.Can(ident, policy.ListGroups) {
		return nil, ErrForbidden
	}
	switch {
	case ident.IsCurator():
		return svc.repo.QueryAllGroups(ctx)
	case ident.IsTeacher():
		return svc.repo.QueryGroupsTaughtBy(ctx, ident.ID)
	default:
		self, err := svc.members.GetUserByID(ctx, ident.ID)
		if err != nil {
			return nil, errors.Wrap(err, "finding own user")
		}
		if !self.GroupID.Valid {
			return []Group{}, nil
		}
		grp, err := svc.repo.GetGroupByID(ctx, self.GroupID.String)
		if err != nil {
			return nil, err
		}
		return []Group{grp}, nil
	}
}

// Retrieve returns a group with its ordered member list; students are
// restricted to their own group.
func (svc *Service) Retrieve(ctx context.Context, ident policy.Identity, id string) (Detail, error) {
	if !policy.Can(ident, policy.ViewGroup) {
		return Detail{}, ErrForbidden
	}
	if ident.IsStudent() {
		self, err := svc.members.GetUserByID(ctx, ident.ID)
		if err != nil {
			return Detail{}, errors.Wrap(err, "finding own user")
		}
		if !self.GroupID.Valid || self.GroupID.String != id {
			return Detail{}, ErrForbidden
		}
	}

	grp, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	students, err := svc.members.QueryUsersByGroup(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing group members")
	}
	return Detail{Group: grp, Students: students}, nil
}

func (svc *Service) Create(ctx context.Context, ident policy.Identity, ng NewGroup) (Group, error) {
	if !policy.Can(ident, policy.CreateGroup) {
		return Group{}, ErrForbidden
	}
	if err := svc.checkNameUniqueness(ctx, ng.Name); err != nil {
		return Group{}, err
	}
	return svc.repo.CreateGroup(ctx, Group{
		Name:      ng.Name,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) Update(ctx context.Context, ident policy.Identity, id string, ug UpdateGroup) (Group, error) {
	if !policy.Can(ident, policy.UpdateGroup) {
		return Group{}, ErrForbidden
	}
	grp, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if err = svc.checkNameUniqueness(ctx, ug.Name, grp); err != nil {
		return Group{}, err
	}
	return svc.repo.UpdateGroup(ctx, id, ug.Name)
}

// Delete removes a group; it is blocked while any user still references it.
func (svc *Service) Delete(ctx context.Context, ident policy.Identity, id string) error {
	if !policy.Can(ident, policy.DeleteGroup) {
		return ErrForbidden
	}
	if _, err := svc.repo.GetGroupByID(ctx, id); err != nil {
		return err
	}
	count, err := svc.members.CountUsersByGroup(ctx, id)
	if err != nil {
		return errors.Wrap(err, "counting group members")
	}
	if count > 0 {
		return ErrHasStudents
	}
	return svc.repo.DeleteGroup(ctx, id)
}
