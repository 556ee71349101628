package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db}
}

var teacherFields = map[string]comparator[teacher.Teacher]{
	"name":                func(a, b teacher.Teacher) int { return strings.Compare(a.Name, b.Name) },
	"subject":             func(a, b teacher.Teacher) int { return strings.Compare(a.Subject, b.Subject) },
	"grade":               func(a, b teacher.Teacher) int { return strings.Compare(a.Grade, b.Grade) },
	"years_of_experience": func(a, b teacher.Teacher) int { return a.YearsOfExperience - b.YearsOfExperience },
	"created_at":          func(a, b teacher.Teacher) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// withEmail must be called with the lock held.
func (repo *teacherRepository) withEmail(t teacher.Teacher) teacher.Teacher {
	if p, ok := repo.db.people[t.PersonID]; ok {
		t.Email = p.Email
	}
	return t
}

func (repo *teacherRepository) CreateTeacher(_ context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.NewString()
	t.Email = ""
	repo.db.teachers[t.ID] = &t
	return repo.withEmail(t), nil
}

func (repo *teacherRepository) CreateTeacherPerson(_ context.Context, p person.Person, t teacher.Teacher) (person.Person, teacher.Teacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.people {
		if existing.Email == p.Email {
			return person.Person{}, teacher.Teacher{}, person.ErrEmailExists
		}
	}
	p.ID = uuid.NewString()
	repo.db.people[p.ID] = &p

	t.ID = uuid.NewString()
	t.PersonID = p.ID
	t.Email = ""
	repo.db.teachers[t.ID] = &t
	return p, repo.withEmail(t), nil
}

func (repo *teacherRepository) GetTeacherByID(_ context.Context, id string) (teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.teachers[id]; ok {
		return repo.withEmail(*t), nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) GetTeacherByPersonID(_ context.Context, personID string) (teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, t := range repo.db.teachers {
		if t.PersonID == personID {
			return repo.withEmail(*t), nil
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) GetTeachersByIDs(_ context.Context, ids ...string) ([]teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := make([]teacher.Teacher, 0, len(ids))
	for _, id := range ids {
		if t, ok := repo.db.teachers[id]; ok {
			teachers = append(teachers, repo.withEmail(*t))
		}
	}
	return teachers, nil
}

func (repo *teacherRepository) QueryTeachers(_ context.Context, ordering ...core.DBOrdering) ([]teacher.Teacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	teachers := make([]teacher.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		teachers = append(teachers, repo.withEmail(*t))
	}
	sortItems(teachers, ordering, teacherFields, func(a, b teacher.Teacher) int { return strings.Compare(a.Name, b.Name) })
	return teachers, nil
}
