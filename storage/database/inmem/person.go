package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
)

type personRepository struct {
	db *DB
}

var _ person.Repository = (*personRepository)(nil)

func NewPersonRepository(db *DB) person.Repository {
	return &personRepository{db: db}
}

var personFields = map[string]comparator[person.Person]{
	"name":       func(a, b person.Person) int { return strings.Compare(a.Name, b.Name) },
	"email":      func(a, b person.Person) int { return strings.Compare(a.Email, b.Email) },
	"role":       func(a, b person.Person) int { return strings.Compare(a.Role, b.Role) },
	"created_at": func(a, b person.Person) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

func (repo *personRepository) CreatePerson(_ context.Context, p person.Person) (person.Person, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.people {
		if existing.Email == p.Email {
			return person.Person{}, person.ErrEmailExists
		}
	}
	p.ID = uuid.NewString()
	repo.db.people[p.ID] = &p
	return p, nil
}

func (repo *personRepository) GetPersonByID(_ context.Context, id string) (person.Person, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.people[id]; ok {
		return *p, nil
	}
	return person.Person{}, person.ErrNotFound
}

func (repo *personRepository) GetPersonByEmail(_ context.Context, email string) (person.Person, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.people {
		if p.Email == email {
			return *p, nil
		}
	}
	return person.Person{}, person.ErrNotFound
}

func (repo *personRepository) QueryPeople(_ context.Context, filter person.QueryFilter, ordering ...core.DBOrdering) ([]person.Person, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	people := make([]person.Person, 0, len(repo.db.people))
	for _, p := range repo.db.people {
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !(containsFold(p.Name, filter.Search) || containsFold(p.Email, filter.Search)) {
			continue
		}
		people = append(people, *p)
	}
	sortItems(people, ordering, personFields, func(a, b person.Person) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return people, nil
}
