package identity

import (
	"context"
	"strconv"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
)

// MaxUsernameAttempts bounds the number of usernames tried for one credential.
const MaxUsernameAttempts = 1000

var (
	// errors
	ErrAlreadyExists      = errors.New("no free username could be derived")
	ErrProviderDisabled   = errors.New("external identity provider is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactive           = errors.New("credential is not active")
	ErrAlreadyActive      = errors.New("credential is already active")
	ErrMissingExternalID  = errors.New("identity provider returned no account id")

	errEmptyPasswordHash  = errors.New("password hash is empty")
	errEmptyPersonOrEmail = errors.New("person id and email are required")
)

var (
	NowFunc = time.Now // mockable

	defaultProviderTimeout = 10 * time.Second
)

// Account is what the external identity provider needs to open an account.
type Account struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Provider is an external identity system.
type Provider interface {
	// CreateAccount registers the account and returns its id in the provider.
	CreateAccount(ctx context.Context, acc Account) (string, error)
	// CreateProfile stores the display profile of an account created by CreateAccount.
	CreateProfile(ctx context.Context, externalID string, acc Account) error
}

// Provisioner owns the local credentials and their registration with the external identity provider.
type Provisioner struct {
	repo     credential.Repository
	provider Provider // nil when the provider is not configured
	timeout  time.Duration
}

// NewProvisioner returns a Provisioner. A nil provider switches external registration off.
func NewProvisioner(conf *core.Config, repo credential.Repository, provider Provider) *Provisioner {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	timeout := conf.Identity.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Provisioner{repo: repo, provider: provider, timeout: timeout}
}

// Enabled reports whether an external provider is configured.
func (p *Provisioner) Enabled() bool {
	return p.provider != nil
}

// CreateLocalCredential creates the inactive credential of a person.
// The username is the email; on collision a counter is appended (email1, email2, ...).
func (p *Provisioner) CreateLocalCredential(ctx context.Context, personID, email string, passwordHash []byte) (credential.Credential, error) {
	email = core.CleanString(email, true /* lower */)
	if personID == "" || email == "" {
		return credential.Credential{}, errEmptyPersonOrEmail
	}
	if len(passwordHash) == 0 {
		return credential.Credential{}, errEmptyPasswordHash
	}

	now := NowFunc().UTC()
	for attempt := 0; attempt < MaxUsernameAttempts; attempt++ {
		username := email
		if attempt > 0 {
			username += strconv.Itoa(attempt)
		}

		taken, err := p.repo.UsernameExists(ctx, username)
		if err != nil {
			return credential.Credential{}, errors.Wrap(err, "checking username")
		}
		if taken {
			continue
		}

		cred, err := p.repo.CreateCredential(ctx, credential.Credential{
			PersonID:     personID,
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			IsActive:     false,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		switch errors.Cause(err) {
		case nil:
			return cred, nil
		case credential.ErrUsernameExists: // taken between the check and the insert
			continue
		default:
			return credential.Credential{}, errors.Wrap(err, "creating credential")
		}
	}
	return credential.Credential{}, ErrAlreadyExists
}

// RegisterExternalIdentity opens an account with the external provider and returns its id.
// It fails with a ConfigurationDisabled error wrapping ErrProviderDisabled when no provider is configured.
func (p *Provisioner) RegisterExternalIdentity(ctx context.Context, email, password, name, role string) (string, error) {
	const op = "identity.RegisterExternalIdentity"
	if p.provider == nil {
		return "", core.NewError(core.KindConfigurationDisabled, op, ErrProviderDisabled)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	acc := Account{
		Email:    core.CleanString(email, true /* lower */),
		Password: password,
		Name:     core.CleanString(name),
		Role:     role,
	}
	externalID, err := p.provider.CreateAccount(ctx, acc)
	if err != nil {
		return "", core.NewError(core.KindExternalProvider, op, errors.Wrap(err, "creating account"))
	}
	if externalID == "" {
		return "", core.NewError(core.KindExternalProvider, op, ErrMissingExternalID)
	}
	if err := p.provider.CreateProfile(ctx, externalID, acc); err != nil {
		return externalID, core.NewError(core.KindExternalProvider, op, errors.Wrap(err, "creating profile"))
	}
	return externalID, nil
}

// AttachExternalID records the provider account id on a credential.
func (p *Provisioner) AttachExternalID(ctx context.Context, credentialID, externalID string) error {
	cred, err := p.repo.GetCredentialByID(ctx, credentialID)
	if err != nil {
		return errors.Wrap(err, "finding credential")
	}
	cred.ExternalID = externalID
	cred.UpdatedAt = NowFunc().UTC()
	if _, err := p.repo.UpdateCredential(ctx, cred); err != nil {
		return errors.Wrap(err, "updating credential")
	}
	return nil
}

// ActivateCredential swaps the one-time password of an inactive credential for a chosen one and activates it.
// act must have been validated.
func (p *Provisioner) ActivateCredential(ctx context.Context, act credential.Activation) (credential.Credential, error) {
	cred, err := p.repo.GetCredentialByEmail(ctx, core.CleanString(act.Email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == credential.ErrNotFound {
			return credential.Credential{}, ErrInvalidCredentials
		}
		return credential.Credential{}, errors.Wrap(err, "finding credential")
	}
	if cred.IsActive {
		return credential.Credential{}, ErrAlreadyActive
	}
	if err := cred.CheckPassword(act.OneTimePassword); err != nil {
		return credential.Credential{}, ErrInvalidCredentials
	}
	if err := cred.SetPassword(act.Password); err != nil {
		return credential.Credential{}, errors.Wrap(err, "hashing password")
	}
	cred.IsActive = true
	cred.UpdatedAt = NowFunc().UTC()
	cred, err = p.repo.UpdateCredential(ctx, cred)
	return cred, errors.Wrap(err, "updating credential")
}

// Authenticate checks a username (or email) and password pair against an active credential and records the login.
func (p *Provisioner) Authenticate(ctx context.Context, username, pwd string) (credential.Credential, error) {
	cred, err := p.repo.GetCredentialByUsernameOrEmail(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		if errors.Cause(err) == credential.ErrNotFound {
			return credential.Credential{}, ErrInvalidCredentials
		}
		return credential.Credential{}, errors.Wrap(err, "finding credential")
	}
	if err := cred.CheckPassword(pwd); err != nil {
		return credential.Credential{}, ErrInvalidCredentials
	}
	if !cred.IsActive {
		return credential.Credential{}, ErrInactive
	}
	now := NowFunc().UTC()
	cred.LastLogin = now
	cred.UpdatedAt = now
	cred, err = p.repo.UpdateCredential(ctx, cred)
	return cred, errors.Wrap(err, "setting last login")
}

// ResetPassword sets a new password on the credential matching username (or email) and activates it.
func (p *Provisioner) ResetPassword(ctx context.Context, username, pwd string) error {
	cred, err := p.repo.GetCredentialByUsernameOrEmail(ctx, core.CleanString(username, true /* lower */))
	if err != nil {
		return errors.Wrap(err, "finding credential")
	}
	if err := cred.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	cred.IsActive = true
	cred.UpdatedAt = NowFunc().UTC()
	_, err = p.repo.UpdateCredential(ctx, cred)
	return errors.Wrap(err, "updating credential")
}
