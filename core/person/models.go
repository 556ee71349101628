package person

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

// Roles
const (
	RoleTeacher       = "Teacher"
	RoleAdministrator = "Administrator"
	RoleSuperUser     = "Super User"
)

// Statuses
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

var (
	AllRoles    = []string{RoleTeacher, RoleAdministrator, RoleSuperUser}
	AllStatuses = []string{StatusActive, StatusInactive}
)

type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (p Person) IsAdmin() bool {
	return p.Role == RoleAdministrator || p.Role == RoleSuperUser
}

func (p Person) IsTeacher() bool {
	return p.Role == RoleTeacher
}

// NewPerson contains information needed to provision a new Person.
// Subject, Grade and YearsOfExperience only apply to teachers.
type NewPerson struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required,email"`
	Role              string `json:"role" validate:"required,personrole"`
	Status            string `json:"status" validate:"omitempty,personstatus"`
	Subject           string `json:"subject"`
	Grade             string `json:"grade" validate:"omitempty,grade"`
	YearsOfExperience int    `json:"years_of_experience" validate:"gte=0"`
}

func (np *NewPerson) Clean() {
	np.Name = core.CleanString(np.Name)
	np.Email = core.CleanString(np.Email, true /* lower */)
	np.Role = core.CleanString(np.Role)
	np.Status = core.CleanString(np.Status)
	np.Subject = core.CleanString(np.Subject)
	np.Grade = core.CleanString(np.Grade)
	if np.Status == "" {
		np.Status = StatusActive
	}
}

func (np *NewPerson) Validate(validate *validator.Validate) error {
	np.Clean()
	return validate.Struct(np)
}

type QueryFilter struct {
	Search string `query:"search"`
	Role   string `query:"role"`
	Status string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role)
	qf.Status = core.CleanString(qf.Status)
}
