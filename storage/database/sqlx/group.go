package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/group"
)

const groupSelect = `
SELECT g.id, g.name, g.created_at,
       (SELECT COUNT(*) FROM "user" u WHERE u.group_id = g.id) AS student_count
FROM "group" g`

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo groupRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return group.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo groupRepository) CheckNameUniqueness(ctx context.Context, name string, excluded ...group.Group) error {
	q := `SELECT EXISTS(SELECT 1 FROM "group" WHERE name = ?)`
	args := []interface{}{name}

	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, grp := range excluded {
			ids = append(ids, grp.ID)
		}
		var err error
		q, args, err = sqlx.In(`SELECT EXISTS(SELECT 1 FROM "group" WHERE name = ? AND id NOT IN (?))`, name, ids)
		if err != nil {
			return errors.Wrap(err, "checking group name uniqueness")
		}
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking group name uniqueness")
	}
	if exists {
		return group.ErrNameExists
	}
	return nil
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	grp.ID = uuid.New().String()
	q := `INSERT INTO "group" (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := repo.db.ExecContext(ctx, q, grp.ID, grp.Name, grp.CreatedAt.UTC()); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return grp, nil
}

func (repo groupRepository) QueryAllGroups(ctx context.Context) ([]group.Group, error) {
	groups := make([]group.Group, 0)
	if err := repo.db.SelectContext(ctx, &groups, groupSelect+` ORDER BY g.name`); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	return groups, nil
}

func (repo groupRepository) QueryGroupsTaughtBy(ctx context.Context, teacherID string) ([]group.Group, error) {
	q := `
SELECT DISTINCT g.id, g.name, g.created_at,
                (SELECT COUNT(*) FROM "user" u WHERE u.group_id = g.id) AS student_count
FROM "group" g
         JOIN "user" st ON st.group_id = g.id
         JOIN grade gr ON gr.student_id = st.id
         JOIN subject s ON s.id = gr.subject_id
WHERE s.teacher_id = $1
ORDER BY g.name`
	groups := make([]group.Group, 0)
	if err := repo.db.SelectContext(ctx, &groups, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying taught groups")
	}
	return groups, nil
}

func (repo groupRepository) GetGroupByID(ctx context.Context, id string) (group.Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return group.Group{}, group.ErrNotFound
	}
	var grp group.Group
	if err := repo.db.GetContext(ctx, &grp, groupSelect+` WHERE g.id = $1`, id); err != nil {
		return group.Group{}, repo.trapNoRowsErr(err, "finding group by ID")
	}
	return grp, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, id, name string) (group.Group, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE "group" SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return group.Group{}, group.ErrNotFound
	}
	return repo.GetGroupByID(ctx, id)
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id string) error {
	// users.group_id FK is ON DELETE SET NULL; members are detached, not removed
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "group" WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return group.ErrNotFound
	}
	return nil
}

func (repo groupRepository) GroupExists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM "group" WHERE id = $1)`, id); err != nil {
		return false, errors.Wrap(err, "checking group existence")
	}
	return exists, nil
}
