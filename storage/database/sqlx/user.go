package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/user"
)

const userSelect = `
SELECT u.id, u.email, u.full_name, u.role, u.group_id, g.name AS group_name,
       u.password_hash, u.created_at, u.updated_at, u.last_login
FROM "user" u
         LEFT JOIN "group" g ON g.id = u.group_id`

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...user.User) error {
	q := `SELECT EXISTS(SELECT 1 FROM "user" WHERE email = ?)`
	args := []interface{}{email}

	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, usr := range excluded {
			ids = append(ids, usr.ID)
		}
		var err error
		q, args, err = sqlx.In(`SELECT EXISTS(SELECT 1 FROM "user" WHERE email = ? AND id NOT IN (?))`, email, ids)
		if err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	q := `
INSERT INTO "user" (id, email, full_name, role, group_id, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := repo.db.ExecContext(ctx, q,
		usr.ID, usr.Email, usr.FullName, usr.Role, usr.GroupID, usr.PasswordHash, usr.CreatedAt.UTC())
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, userSelect+` ORDER BY u.full_name`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, userSelect+` WHERE u.id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, userSelect+` WHERE u.email = $1`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, id string, up user.Update) (user.User, error) {
	if up.IsZero() {
		// an empty SET clause is invalid SQL
		return repo.GetUserByID(ctx, id)
	}

	cols := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	set := func(col string, val interface{}) {
		args = append(args, val)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if up.Email != nil {
		set("email", *up.Email)
	}
	if up.FullName != nil {
		set("full_name", *up.FullName)
	}
	if up.Role != nil {
		set("role", *up.Role)
	}
	if up.GroupID != nil {
		set("group_id", *up.GroupID)
	}
	if up.PasswordHash != nil {
		set("password_hash", up.PasswordHash)
	}
	if up.LastLogin != nil {
		set("last_login", up.LastLogin.UTC())
	} else {
		// LastLogin stamps do not count as profile edits
		cols = append(cols, "updated_at = (now() AT TIME ZONE 'utc')")
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = $%d`, strings.Join(cols, ", "), len(args))
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, id)
}

func (repo userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo userRepository) QueryUsersByGroup(ctx context.Context, groupID string) ([]user.User, error) {
	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, userSelect+` WHERE u.group_id = $1 ORDER BY u.full_name`, groupID); err != nil {
		return nil, errors.Wrap(err, "querying group members")
	}
	return users, nil
}

func (repo userRepository) CountUsersByGroup(ctx context.Context, groupID string) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM "user" WHERE group_id = $1`, groupID); err != nil {
		return 0, errors.Wrap(err, "counting group members")
	}
	return cnt, nil
}
