package person

import (
	"context"
	"errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

var (
	// errors
	ErrNotFound    = errors.New("person not found")
	ErrEmailExists = errors.New("a person with this email already exists")
)

type Repository interface {
	// CreatePerson returns ErrEmailExists when the storage uniqueness constraint rejects the email.
	CreatePerson(ctx context.Context, p Person) (Person, error)
	GetPersonByID(ctx context.Context, id string) (Person, error)
	GetPersonByEmail(ctx context.Context, email string) (Person, error)
	// QueryPeople applies AND operation on available QueryFilter fields.
	// QueryFilter.Search does a case-insensitive match on one of Person.Name or Person.Email.
	QueryPeople(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Person, error)
}
