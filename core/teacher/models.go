package teacher

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
)

var Grades = []string{
	"Kindergarten",
	"1st Grade", "2nd Grade", "3rd Grade", "4th Grade", "5th Grade", "6th Grade",
	"7th Grade", "8th Grade", "9th Grade", "10th Grade", "11th Grade", "12th Grade",
	"Specialist/Other",
}

var (
	// errors
	ErrNotFound = errors.New("teacher not found")

	gradeTag  = "grade"
	gradeText = "invalid grade level"
)

// Teacher is the teaching profile of a Person with the Teacher role.
// Email is read from the owning Person.
type Teacher struct {
	ID                string    `json:"id"`
	PersonID          string    `json:"person_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Subject           string    `json:"subject"`
	Grade             string    `json:"grade"`
	YearsOfExperience int       `json:"years_of_experience"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

type Repository interface {
	CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	// CreateTeacherPerson stores p and its teaching profile t together: either both are written or neither is.
	// It returns person.ErrEmailExists when the email is taken.
	CreateTeacherPerson(ctx context.Context, p person.Person, t Teacher) (person.Person, Teacher, error)
	GetTeacherByID(ctx context.Context, id string) (Teacher, error)
	GetTeacherByPersonID(ctx context.Context, personID string) (Teacher, error)
	// GetTeachersByIDs ignores unknown IDs.
	GetTeachersByIDs(ctx context.Context, ids ...string) ([]Teacher, error)
	QueryTeachers(ctx context.Context, ordering ...core.DBOrdering) ([]Teacher, error)
}

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(gradeTag, core.OneOf(Grades...))
	core.RegisterCustomTranslation(validate, translator, gradeTag, gradeText)
}
