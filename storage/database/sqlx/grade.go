package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/grade"
)

const gradeSelect = `
SELECT gr.id, gr.student_id, gr.subject_id, gr.grade, gr.work_type,
       to_char(gr.date, 'YYYY-MM-DD') AS date,
       s.name AS subject_name, st.full_name AS student_name, s.teacher_id, gr.created_at
FROM grade gr
         JOIN subject s ON s.id = gr.subject_id
         JOIN "user" st ON st.id = gr.student_id`

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo gradeRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return grade.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	grd.ID = uuid.New().String()
	q := `
INSERT INTO grade (id, student_id, subject_id, grade, work_type, date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q,
		grd.ID, grd.StudentID, grd.SubjectID, grd.Grade, grd.WorkType, grd.Date, grd.CreatedAt.UTC())
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return repo.GetGradeByID(ctx, grd.ID)
}

func (repo gradeRepository) FilterGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	where := func(col string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if filter.StudentID != "" {
		where("gr.student_id", filter.StudentID)
	}
	if filter.GroupID != "" {
		where("st.group_id", filter.GroupID)
	}
	if filter.SubjectID != "" {
		where("gr.subject_id", filter.SubjectID)
	}
	if filter.TeacherID != "" {
		where("s.teacher_id", filter.TeacherID)
	}

	q := gradeSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY gr.date DESC, gr.created_at DESC"

	grades := make([]grade.Grade, 0)
	if err := repo.db.SelectContext(ctx, &grades, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

func (repo gradeRepository) GetGradeByID(ctx context.Context, id string) (grade.Grade, error) {
	if _, err := uuid.Parse(id); err != nil {
		return grade.Grade{}, grade.ErrNotFound
	}
	var grd grade.Grade
	if err := repo.db.GetContext(ctx, &grd, gradeSelect+` WHERE gr.id = $1`, id); err != nil {
		return grade.Grade{}, repo.trapNoRowsErr(err, "finding grade by ID")
	}
	return grd, nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, id string, ug grade.UpdateGrade) (grade.Grade, error) {
	cols := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	set := func(col string, val interface{}) {
		args = append(args, val)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if ug.Grade != nil {
		set("grade", *ug.Grade)
	}
	if ug.WorkType != nil {
		set("work_type", *ug.WorkType)
	}
	if ug.Date != nil {
		set("date", *ug.Date)
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE grade SET %s WHERE id = $%d`, strings.Join(cols, ", "), len(args))
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return grade.Grade{}, grade.ErrNotFound
	}
	return repo.GetGradeByID(ctx, id)
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM grade WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return grade.ErrNotFound
	}
	return nil
}

func (repo gradeRepository) CountGradesBySubject(ctx context.Context, subjectID string) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM grade WHERE subject_id = $1`, subjectID); err != nil {
		return 0, errors.Wrap(err, "counting grades by subject")
	}
	return cnt, nil
}
