package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

// teachers carry the email of their Person
const teacherSelect = `SELECT t.id, t.person_id, t.name, p.email, t.subject, t.grade, t.years_of_experience, t.created_at, t.updated_at
FROM teachers t JOIN people p ON p.id = t.person_id`

var teacherOrderColumns = map[string]string{
	"name":                "t.name",
	"subject":             "t.subject",
	"grade":               "t.grade",
	"years_of_experience": "t.years_of_experience",
	"created_at":          "t.created_at",
}

type teacherRow struct {
	ID                string      `db:"id"`
	PersonID          string      `db:"person_id"`
	Name              string      `db:"name"`
	Email             string      `db:"email"`
	Subject           null.String `db:"subject"`
	Grade             null.String `db:"grade"`
	YearsOfExperience int         `db:"years_of_experience"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

func (r teacherRow) teacher() teacher.Teacher {
	return teacher.Teacher{
		ID:                r.ID,
		PersonID:          r.PersonID,
		Name:              r.Name,
		Email:             r.Email,
		Subject:           r.Subject.String,
		Grade:             r.Grade.String,
		YearsOfExperience: r.YearsOfExperience,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

func teachersFromRows(rows []teacherRow) []teacher.Teacher {
	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.teacher())
	}
	return teachers
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	id, err := insertTeacher(ctx, repo.db, t)
	if err != nil {
		return teacher.Teacher{}, err
	}
	return repo.GetTeacherByID(ctx, id)
}

func (repo *teacherRepository) CreateTeacherPerson(ctx context.Context, p person.Person, t teacher.Teacher) (person.Person, teacher.Teacher, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return person.Person{}, teacher.Teacher{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }() // no-op once committed

	p, err = insertPerson(ctx, tx, p)
	if err != nil {
		return person.Person{}, teacher.Teacher{}, err
	}
	t.PersonID = p.ID
	id, err := insertTeacher(ctx, tx, t)
	if err != nil {
		return person.Person{}, teacher.Teacher{}, err
	}
	if err = tx.Commit(); err != nil {
		return person.Person{}, teacher.Teacher{}, errors.Wrap(err, "committing teacher")
	}

	t, err = repo.GetTeacherByID(ctx, id)
	if err != nil {
		return person.Person{}, teacher.Teacher{}, err
	}
	return p, t, nil
}

func insertTeacher(ctx context.Context, db sqlx.ExecerContext, t teacher.Teacher) (string, error) {
	t.ID = uuid.NewString()
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO teachers (id, person_id, name, subject, grade, years_of_experience, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.PersonID, t.Name,
		null.NewString(t.Subject, t.Subject != ""), null.NewString(t.Grade, t.Grade != ""),
		t.YearsOfExperience, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	if err != nil {
		return "", errors.Wrap(err, "inserting teacher")
	}
	return t.ID, nil
}

func (repo *teacherRepository) get(ctx context.Context, where string, arg interface{}) (teacher.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, teacherSelect+" WHERE "+where, arg); err != nil {
		return teacher.Teacher{}, notFound(err, teacher.ErrNotFound, "selecting teacher")
	}
	return row.teacher(), nil
}

func (repo *teacherRepository) GetTeacherByID(ctx context.Context, id string) (teacher.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return repo.get(ctx, "t.id = $1", id)
}

func (repo *teacherRepository) GetTeacherByPersonID(ctx context.Context, personID string) (teacher.Teacher, error) {
	if _, err := uuid.Parse(personID); err != nil {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return repo.get(ctx, "t.person_id = $1", personID)
}

func (repo *teacherRepository) GetTeachersByIDs(ctx context.Context, ids ...string) ([]teacher.Teacher, error) {
	if len(ids) == 0 {
		return []teacher.Teacher{}, nil
	}
	rows := make([]teacherRow, 0, len(ids))
	if err := repo.db.SelectContext(ctx, &rows, teacherSelect+" WHERE t.id::text = ANY($1) ORDER BY t.name", pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}
	return teachersFromRows(rows), nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) ([]teacher.Teacher, error) {
	rows := make([]teacherRow, 0)
	q := teacherSelect + " ORDER BY " + core.OrderBy(ordering, teacherOrderColumns, "t.name ASC")
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}
	return teachersFromRows(rows), nil
}
