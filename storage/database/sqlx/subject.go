package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/subject"
)

const subjectSelect = `
SELECT s.id, s.name, s.teacher_id, u.full_name AS teacher_name, s.created_at
FROM subject s
         JOIN "user" u ON u.id = s.teacher_id`

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func (repo subjectRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return subject.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo subjectRepository) CreateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	subj.ID = uuid.New().String()
	q := `INSERT INTO subject (id, name, teacher_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, subj.ID, subj.Name, subj.TeacherID, subj.CreatedAt.UTC()); err != nil {
		return subject.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return repo.GetSubjectByID(ctx, subj.ID)
}

func (repo subjectRepository) QueryAllSubjects(ctx context.Context) ([]subject.Subject, error) {
	subjects := make([]subject.Subject, 0)
	if err := repo.db.SelectContext(ctx, &subjects, subjectSelect+` ORDER BY s.name`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo subjectRepository) QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]subject.Subject, error) {
	subjects := make([]subject.Subject, 0)
	if err := repo.db.SelectContext(ctx, &subjects, subjectSelect+` WHERE s.teacher_id = $1 ORDER BY s.name`, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying subjects by teacher")
	}
	return subjects, nil
}

func (repo subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	if _, err := uuid.Parse(id); err != nil {
		return subject.Subject{}, subject.ErrNotFound
	}
	var subj subject.Subject
	if err := repo.db.GetContext(ctx, &subj, subjectSelect+` WHERE s.id = $1`, id); err != nil {
		return subject.Subject{}, repo.trapNoRowsErr(err, "finding subject by ID")
	}
	return subj, nil
}

func (repo subjectRepository) UpdateSubject(ctx context.Context, id string, us subject.UpdateSubject) (subject.Subject, error) {
	cols := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	set := func(col string, val interface{}) {
		args = append(args, val)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if us.Name != nil {
		set("name", *us.Name)
	}
	if us.TeacherID != nil {
		set("teacher_id", *us.TeacherID)
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE subject SET %s WHERE id = $%d`, strings.Join(cols, ", "), len(args))
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return repo.GetSubjectByID(ctx, id)
}

func (repo subjectRepository) CountSubjectsByTeacher(ctx context.Context, teacherID string) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM subject WHERE teacher_id = $1`, teacherID); err != nil {
		return 0, errors.Wrap(err, "counting subjects by teacher")
	}
	return cnt, nil
}

func (repo subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM subject WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.ErrNotFound
	}
	return nil
}
