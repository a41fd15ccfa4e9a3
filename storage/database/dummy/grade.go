package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/grade"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db}
}

// get loads a grade with its joined names and teacher resolved. Callers hold
// the lock.
func (repo *gradeRepository) get(id string) (grade.Grade, bool) {
	grd, ok := repo.db.grade[id]
	if !ok {
		return grade.Grade{}, false
	}
	g := *grd
	if subj, ok := repo.db.subject[g.SubjectID]; ok {
		g.SubjectName = subj.Name
		g.TeacherID = subj.TeacherID
	}
	if st, ok := repo.db.user[g.StudentID]; ok {
		g.StudentName = st.FullName
	}
	return g, true
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grd.ID = uuid.New().String()
	repo.db.grade[grd.ID] = &grd

	g, _ := repo.get(grd.ID)
	return g, nil
}

func (repo *gradeRepository) FilterGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	grades := make([]grade.Grade, 0)
	for id := range repo.db.grade {
		g, _ := repo.get(id)
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.GroupID != "" {
			st, ok := repo.db.user[g.StudentID]
			if !ok || !st.GroupID.Valid || st.GroupID.String != filter.GroupID {
				continue
			}
		}
		if filter.SubjectID != "" && g.SubjectID != filter.SubjectID {
			continue
		}
		if filter.TeacherID != "" && g.TeacherID != filter.TeacherID {
			continue
		}
		grades = append(grades, g)
	}

	// most recent first
	sort.Slice(grades, func(i, j int) bool {
		if grades[i].Date != grades[j].Date {
			return grades[i].Date > grades[j].Date
		}
		return grades[i].CreatedAt.After(grades[j].CreatedAt)
	})
	return grades, nil
}

func (repo *gradeRepository) GetGradeByID(ctx context.Context, id string) (grade.Grade, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if grd, ok := repo.get(id); ok {
		return grd, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, id string, ug grade.UpdateGrade) (grade.Grade, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grd, ok := repo.db.grade[id]
	if !ok {
		return grade.Grade{}, grade.ErrNotFound
	}
	if ug.Grade != nil {
		grd.Grade = *ug.Grade
	}
	if ug.WorkType != nil {
		grd.WorkType = *ug.WorkType
	}
	if ug.Date != nil {
		grd.Date = *ug.Date
	}

	g, _ := repo.get(id)
	return g, nil
}

func (repo *gradeRepository) DeleteGrade(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.grade[id]; !ok {
		return grade.ErrNotFound
	}
	delete(repo.db.grade, id)
	return nil
}

func (repo *gradeRepository) CountGradesBySubject(ctx context.Context, subjectID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var cnt int
	for _, grd := range repo.db.grade {
		if grd.SubjectID == subjectID {
			cnt++
		}
	}
	return cnt, nil
}
