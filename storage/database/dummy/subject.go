package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/subject"
)

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) *subjectRepository {
	return &subjectRepository{db: db}
}

// get loads a subject with its teacher name resolved. Callers hold the lock.
func (repo *subjectRepository) get(id string) (subject.Subject, bool) {
	subj, ok := repo.db.subject[id]
	if !ok {
		return subject.Subject{}, false
	}
	s := *subj
	if usr, ok := repo.db.user[s.TeacherID]; ok {
		s.TeacherName = usr.FullName
	}
	return s, true
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	subj.ID = uuid.New().String()
	repo.db.subject[subj.ID] = &subj

	s, _ := repo.get(subj.ID)
	return s, nil
}

func (repo *subjectRepository) QueryAllSubjects(ctx context.Context) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]subject.Subject, 0, len(repo.db.subject))
	for id := range repo.db.subject {
		s, _ := repo.get(id)
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *subjectRepository) QuerySubjectsByTeacher(ctx context.Context, teacherID string) ([]subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]subject.Subject, 0)
	for id, subj := range repo.db.subject {
		if subj.TeacherID == teacherID {
			s, _ := repo.get(id)
			subjects = append(subjects, s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if subj, ok := repo.get(id); ok {
		return subj, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, id string, us subject.UpdateSubject) (subject.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	subj, ok := repo.db.subject[id]
	if !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	if us.Name != nil {
		subj.Name = *us.Name
	}
	if us.TeacherID != nil {
		subj.TeacherID = *us.TeacherID
		subj.TeacherName = ""
	}

	s, _ := repo.get(id)
	return s, nil
}

func (repo *subjectRepository) CountSubjectsByTeacher(ctx context.Context, teacherID string) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cnt := 0
	for _, subj := range repo.db.subject {
		if subj.TeacherID == teacherID {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.subject[id]; !ok {
		return subject.ErrNotFound
	}
	delete(repo.db.subject, id)

	// emulate ON DELETE CASCADE on grades.subject_id
	for gid, grd := range repo.db.grade {
		if grd.SubjectID == id {
			delete(repo.db.grade, gid)
		}
	}
	return nil
}
