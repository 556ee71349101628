package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Nanikworkforce/TET-Bloom/core/credential"
)

const credentialColumns = "id, person_id, username, email, password_hash, is_active, external_id, created_at, updated_at, last_login"

type credentialRow struct {
	ID           string      `db:"id"`
	PersonID     string      `db:"person_id"`
	Username     string      `db:"username"`
	Email        string      `db:"email"`
	PasswordHash []byte      `db:"password_hash"`
	IsActive     bool        `db:"is_active"`
	ExternalID   null.String `db:"external_id"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r credentialRow) credential() credential.Credential {
	c := credential.Credential{
		ID:           r.ID,
		PersonID:     r.PersonID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		ExternalID:   r.ExternalID.String,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		c.LastLogin = r.LastLogin.Time.UTC()
	}
	return c
}

type credentialRepository struct {
	db *sqlx.DB
}

var _ credential.Repository = (*credentialRepository)(nil) // interface compliance check

func NewCredentialRepository(db *sqlx.DB) credential.Repository {
	return &credentialRepository{db: db}
}

func (repo *credentialRepository) CreateCredential(ctx context.Context, c credential.Credential) (credential.Credential, error) {
	c.ID = uuid.NewString()
	_, err := repo.db.ExecContext(
		ctx,
		"INSERT INTO credentials ("+credentialColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		c.ID, c.PersonID, c.Username, c.Email, c.PasswordHash, c.IsActive,
		null.NewString(c.ExternalID, c.ExternalID != ""),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
		null.NewTime(c.LastLogin.UTC(), !c.LastLogin.IsZero()),
	)
	if err != nil {
		if isUniqueViolation(err, "credentials_username_key") {
			return credential.Credential{}, credential.ErrUsernameExists
		}
		return credential.Credential{}, errors.Wrap(err, "inserting credential")
	}
	return c, nil
}

func (repo *credentialRepository) get(ctx context.Context, where string, args ...interface{}) (credential.Credential, error) {
	var row credentialRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+credentialColumns+" FROM credentials WHERE "+where+" LIMIT 1", args...); err != nil {
		return credential.Credential{}, notFound(err, credential.ErrNotFound, "selecting credential")
	}
	return row.credential(), nil
}

func (repo *credentialRepository) GetCredentialByID(ctx context.Context, id string) (credential.Credential, error) {
	if _, err := uuid.Parse(id); err != nil {
		return credential.Credential{}, credential.ErrNotFound
	}
	return repo.get(ctx, "id = $1", id)
}

func (repo *credentialRepository) GetCredentialByEmail(ctx context.Context, email string) (credential.Credential, error) {
	return repo.get(ctx, "email = $1", email)
}

func (repo *credentialRepository) GetCredentialByUsernameOrEmail(ctx context.Context, username string) (credential.Credential, error) {
	return repo.get(ctx, "username = $1 OR email = $1", username)
}

func (repo *credentialRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM credentials WHERE username = $1)", username); err != nil {
		return false, errors.Wrap(err, "checking username")
	}
	return exists, nil
}

// UpdateCredential keeps the stored hash, external ID and last login when c leaves them empty.
func (repo *credentialRepository) UpdateCredential(ctx context.Context, c credential.Credential) (credential.Credential, error) {
	var row credentialRow
	err := repo.db.GetContext(
		ctx,
		&row,
		`UPDATE credentials SET
	password_hash = COALESCE($2, password_hash),
	external_id = COALESCE($3, external_id),
	last_login = COALESCE($4, last_login),
	is_active = $5,
	updated_at = $6
WHERE id = $1
RETURNING `+credentialColumns,
		c.ID,
		null.NewBytes(c.PasswordHash, c.PasswordHash != nil),
		null.NewString(c.ExternalID, c.ExternalID != ""),
		null.NewTime(c.LastLogin.UTC(), !c.LastLogin.IsZero()),
		c.IsActive,
		c.UpdatedAt.UTC(),
	)
	if err != nil {
		return credential.Credential{}, notFound(err, credential.ErrNotFound, "updating credential")
	}
	return row.credential(), nil
}
