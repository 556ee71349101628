package credential

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

var (
	// errors
	ErrNotFound       = errors.New("credential not found")
	ErrUsernameExists = errors.New("a credential with this username already exists")
)

// Credential is the local login shadowing a Person.
// It is created inactive and becomes active once its owner replaces the one-time password.
type Credential struct {
	ID           string    `json:"id"`
	PersonID     string    `json:"person_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	IsActive     bool      `json:"is_active"`
	ExternalID   string    `json:"external_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (c *Credential) SetPassword(pwd string) error {
	hash, err := HashPassword(pwd)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return nil
}

func (c *Credential) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(c.PasswordHash, []byte(pwd))
}

func HashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
}

type Repository interface {
	// CreateCredential returns ErrUsernameExists when the username is already taken.
	CreateCredential(ctx context.Context, c Credential) (Credential, error)
	GetCredentialByID(ctx context.Context, id string) (Credential, error)
	GetCredentialByEmail(ctx context.Context, email string) (Credential, error)
	GetCredentialByUsernameOrEmail(ctx context.Context, username string) (Credential, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// UpdateCredential saves the password hash, activity flag, external ID and last login.
	UpdateCredential(ctx context.Context, c Credential) (Credential, error)
}

// Activation replaces the one-time password of an inactive Credential.
type Activation struct {
	Email           string `json:"email" validate:"required,email"`
	OneTimePassword string `json:"one_time_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (a *Activation) Validate(validate *validator.Validate) error {
	a.Email = core.CleanString(a.Email, true /* lower */)
	return validate.Struct(a)
}
