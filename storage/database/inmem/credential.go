package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/Nanikworkforce/TET-Bloom/core/credential"
)

type credentialRepository struct {
	db *DB
}

var _ credential.Repository = (*credentialRepository)(nil)

func NewCredentialRepository(db *DB) credential.Repository {
	return &credentialRepository{db: db}
}

func (repo *credentialRepository) find(match func(c *credential.Credential) bool) (credential.Credential, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, c := range repo.db.credentials {
		if match(c) {
			return *c, nil
		}
	}
	return credential.Credential{}, credential.ErrNotFound
}

func (repo *credentialRepository) CreateCredential(_ context.Context, c credential.Credential) (credential.Credential, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.credentials {
		if existing.Username == c.Username {
			return credential.Credential{}, credential.ErrUsernameExists
		}
	}
	c.ID = uuid.NewString()
	repo.db.credentials[c.ID] = &c
	return c, nil
}

func (repo *credentialRepository) GetCredentialByID(_ context.Context, id string) (credential.Credential, error) {
	return repo.find(func(c *credential.Credential) bool { return c.ID == id })
}

func (repo *credentialRepository) GetCredentialByEmail(_ context.Context, email string) (credential.Credential, error) {
	return repo.find(func(c *credential.Credential) bool { return c.Email == email })
}

func (repo *credentialRepository) GetCredentialByUsernameOrEmail(_ context.Context, username string) (credential.Credential, error) {
	return repo.find(func(c *credential.Credential) bool { return c.Username == username || c.Email == username })
}

func (repo *credentialRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := repo.find(func(c *credential.Credential) bool { return c.Username == username })
	switch err {
	case nil:
		return true, nil
	case credential.ErrNotFound:
		return false, nil
	}
	return false, err
}

func (repo *credentialRepository) UpdateCredential(_ context.Context, c credential.Credential) (credential.Credential, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.credentials[c.ID]
	if !ok {
		return credential.Credential{}, credential.ErrNotFound
	}
	if c.PasswordHash != nil {
		orig.PasswordHash = c.PasswordHash
	}
	if c.ExternalID != "" {
		orig.ExternalID = c.ExternalID
	}
	if !c.LastLogin.IsZero() {
		orig.LastLogin = c.LastLogin
	}
	orig.IsActive = c.IsActive
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}
