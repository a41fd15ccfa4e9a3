package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db}
}

// get loads a group with its student count resolved. Callers hold the lock.
func (repo *groupRepository) get(id string) (group.Group, bool) {
	grp, ok := repo.db.group[id]
	if !ok {
		return group.Group{}, false
	}
	g := *grp
	for _, usr := range repo.db.user {
		if usr.GroupID.Valid && usr.GroupID.String == id {
			g.StudentCount++
		}
	}
	return g, true
}

func (repo *groupRepository) CheckNameUniqueness(ctx context.Context, name string, excluded ...group.Group) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, grp := range repo.db.group {
		if grp.Name != name {
			continue
		}
		isExcluded := false
		for _, ex := range excluded {
			if ex.ID == grp.ID {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			return group.ErrNameExists
		}
	}
	return nil
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp.ID = uuid.New().String()
	repo.db.group[grp.ID] = &grp
	return grp, nil
}

func (repo *groupRepository) QueryAllGroups(ctx context.Context) ([]group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	groups := make([]group.Group, 0, len(repo.db.group))
	for id := range repo.db.group {
		g, _ := repo.get(id)
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *groupRepository) QueryGroupsTaughtBy(ctx context.Context, teacherID string) ([]group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	// subjects -> grades -> students -> groups
	subjectIDs := make(map[string]bool)
	for id, subj := range repo.db.subject {
		if subj.TeacherID == teacherID {
			subjectIDs[id] = true
		}
	}
	groupIDs := make(map[string]bool)
	for _, grd := range repo.db.grade {
		if !subjectIDs[grd.SubjectID] {
			continue
		}
		if st, ok := repo.db.user[grd.StudentID]; ok && st.GroupID.Valid {
			groupIDs[st.GroupID.String] = true
		}
	}

	groups := make([]group.Group, 0, len(groupIDs))
	for id := range groupIDs {
		if g, ok := repo.get(id); ok {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups, nil
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id string) (group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if grp, ok := repo.get(id); ok {
		return grp, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, id, name string) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	grp, ok := repo.db.group[id]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	grp.Name = name

	g, _ := repo.get(id)
	return g, nil
}

func (repo *groupRepository) DeleteGroup(ctx context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.group[id]; !ok {
		return group.ErrNotFound
	}
	delete(repo.db.group, id)

	// emulate ON DELETE SET NULL on users.group_id
	for _, usr := range repo.db.user {
		if usr.GroupID.Valid && usr.GroupID.String == id {
			usr.GroupID.Valid = false
			usr.GroupID.String = ""
		}
	}
	return nil
}

func (repo *groupRepository) GroupExists(ctx context.Context, id string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.group[id]
	return ok, nil
}
