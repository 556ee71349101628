package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
)

const personColumns = "id, name, email, role, status, created_at, updated_at"

var personOrderColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

type personRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r personRow) person() person.Person {
	return person.Person{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Role:      r.Role,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type personRepository struct {
	db *sqlx.DB
}

var _ person.Repository = (*personRepository)(nil) // interface compliance check

func NewPersonRepository(db *sqlx.DB) person.Repository {
	return &personRepository{db: db}
}

func (repo *personRepository) CreatePerson(ctx context.Context, p person.Person) (person.Person, error) {
	return insertPerson(ctx, repo.db, p)
}

func insertPerson(ctx context.Context, db sqlx.ExecerContext, p person.Person) (person.Person, error) {
	p.ID = uuid.NewString()
	_, err := db.ExecContext(
		ctx,
		"INSERT INTO people ("+personColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		p.ID, p.Name, p.Email, p.Role, p.Status, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "people_email_key") {
			return person.Person{}, person.ErrEmailExists
		}
		return person.Person{}, errors.Wrap(err, "inserting person")
	}
	return p, nil
}

func (repo *personRepository) get(ctx context.Context, where string, arg interface{}) (person.Person, error) {
	var row personRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+personColumns+" FROM people WHERE "+where, arg); err != nil {
		return person.Person{}, notFound(err, person.ErrNotFound, "selecting person")
	}
	return row.person(), nil
}

func (repo *personRepository) GetPersonByID(ctx context.Context, id string) (person.Person, error) {
	if _, err := uuid.Parse(id); err != nil {
		return person.Person{}, person.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *personRepository) GetPersonByEmail(ctx context.Context, email string) (person.Person, error) {
	return repo.get(ctx, "email = $1", email)
}

func (repo *personRepository) QueryPeople(ctx context.Context, filter person.QueryFilter, ordering ...core.DBOrdering) ([]person.Person, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.Role != "" {
		args = append(args, filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%[1]d OR email ILIKE $%[1]d)", len(args)))
	}

	q := "SELECT " + personColumns + " FROM people"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY " + core.OrderBy(ordering, personOrderColumns, "created_at DESC")

	rows := make([]personRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting people")
	}
	people := make([]person.Person, 0, len(rows))
	for _, row := range rows {
		people = append(people, row.person())
	}
	return people, nil
}
