package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CreateGroup(_ context.Context, g group.ObservationGroup) (group.ObservationGroup, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g.ID = uuid.NewString()
	g.TeacherIDs = repo.knownTeachers(g.TeacherIDs)
	stored := g
	repo.db.groups[g.ID] = &stored
	return g, nil
}

func (repo *groupRepository) GetGroupByID(_ context.Context, id string) (group.ObservationGroup, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		cp := *g
		cp.TeacherIDs = append([]string{}, g.TeacherIDs...)
		return cp, nil
	}
	return group.ObservationGroup{}, group.ErrNotFound
}

func (repo *groupRepository) ReplaceGroupTeachers(_ context.Context, groupID string, teacherIDs []string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	g, ok := repo.db.groups[groupID]
	if !ok {
		return group.ErrNotFound
	}
	g.TeacherIDs = repo.knownTeachers(teacherIDs)
	return nil
}

func (repo *groupRepository) ListGroupMembers(_ context.Context, groupID string) ([]teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	g, ok := repo.db.groups[groupID]
	if !ok {
		return nil, group.ErrNotFound
	}
	members := make([]teacher.Teacher, 0, len(g.TeacherIDs))
	for _, id := range g.TeacherIDs {
		t, ok := repo.db.teachers[id]
		if !ok {
			continue
		}
		member := *t
		if p, ok := repo.db.people[t.PersonID]; ok {
			member.Email = p.Email
		}
		members = append(members, member)
	}
	return members, nil
}

// knownTeachers drops IDs of missing teachers, like a foreign key would. The lock must be held.
func (repo *groupRepository) knownTeachers(ids []string) []string {
	known := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := repo.db.teachers[id]; ok {
			known = append(known, id)
		}
	}
	return known
}
