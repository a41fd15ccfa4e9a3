package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// get loads a user with its group name resolved. Callers hold the lock.
func (repo *userRepository) get(id string) (user.User, bool) {
	usr, ok := repo.db.user[id]
	if !ok {
		return user.User{}, false
	}
	u := *usr
	if u.GroupID.Valid {
		if grp, ok := repo.db.group[u.GroupID.String]; ok {
			u.GroupName.SetValid(grp.Name)
		}
	}
	return u, true
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.user))
	for id := range repo.db.user {
		u, _ := repo.get(id)
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.user {
		if usr.Email != email {
			continue
		}
		isExcluded := false
		for _, ex := range excluded {
			if ex.ID == usr.ID {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr.ID = uuid.New().String()
	usr.UpdatedAt = usr.CreatedAt
	repo.db.user[usr.ID] = &usr

	u, _ := repo.get(usr.ID)
	return u, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.get(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for id, usr := range repo.db.user {
		if usr.Email == email {
			u, _ := repo.get(id)
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, id string, up user.Update) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	usr, ok := repo.db.user[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if up.IsZero() {
		u, _ := repo.get(id)
		return u, nil
	}
	if up.Email != nil {
		usr.Email = *up.Email
	}
	if up.FullName != nil {
		usr.FullName = *up.FullName
	}
	if up.Role != nil {
		usr.Role = *up.Role
	}
	if up.GroupID != nil {
		usr.GroupID = *up.GroupID
	}
	if up.PasswordHash != nil {
		usr.PasswordHash = up.PasswordHash
	}
	if up.LastLogin != nil {
		usr.LastLogin.SetValid(up.LastLogin.UTC())
	} else {
		usr.UpdatedAt = time.Now().UTC()
	}

	u, _ := repo.get(id)
	return u, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.user[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.user, id)

	// emulate FK cascades: drop the user's grades, then their subjects and
	// the grades recorded in them
	for gid, grd := range repo.db.grade {
		if grd.StudentID == id {
			delete(repo.db.grade, gid)
		}
	}
	for sid, subj := range repo.db.subject {
		if subj.TeacherID != id {
			continue
		}
		delete(repo.db.subject, sid)
		for gid, grd := range repo.db.grade {
			if grd.SubjectID == sid {
				delete(repo.db.grade, gid)
			}
		}
	}
	return nil
}

func (repo *userRepository) QueryUsersByGroup(ctx context.Context, groupID string) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, u := range repo.query() {
		if u.GroupID.Valid && u.GroupID.String == groupID {
			users = append(users, u)
		}
	}
	return users, nil
}

func (repo *userRepository) CountUsersByGroup(ctx context.Context, groupID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var cnt int
	for _, usr := range repo.db.user {
		if usr.GroupID.Valid && usr.GroupID.String == groupID {
			cnt++
		}
	}
	return cnt, nil
}
