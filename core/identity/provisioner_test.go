package identity_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/storage/database/inmem"
	"github.com/Nanikworkforce/TET-Bloom/tests"
)

type fakeProvider struct {
	id         string
	accountErr error
	profileErr error
	block      bool
	accounts   []identity.Account
	profiles   []string
}

func (p *fakeProvider) CreateAccount(ctx context.Context, acc identity.Account) (string, error) {
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	p.accounts = append(p.accounts, acc)
	return p.id, p.accountErr
}

func (p *fakeProvider) CreateProfile(_ context.Context, externalID string, _ identity.Account) error {
	p.profiles = append(p.profiles, externalID)
	return p.profileErr
}

// takenRepo reports every username as taken.
type takenRepo struct {
	credential.Repository
}

func (takenRepo) UsernameExists(context.Context, string) (bool, error) { return true, nil }

func setup(t *testing.T, provider identity.Provider) (*identity.Provisioner, credential.Repository) {
	t.Helper()
	repo := inmemdb.NewCredentialRepository(inmemdb.NewDB())
	return identity.NewProvisioner(testutil.NewConfig(), repo, provider), repo
}

func hash(t *testing.T, pwd string) []byte {
	t.Helper()
	h, err := credential.HashPassword(pwd)
	require.NoError(t, err)
	return h
}

func TestProvisioner_CreateLocalCredential(t *testing.T) {
	prov, repo := setup(t, nil)
	ctx := context.Background()
	h := hash(t, "Temp0rary")

	tests := []struct {
		name         string
		personID     string
		email        string
		wantUsername string
	}{
		{name: "free email", personID: "p1", email: "Ada@Bloom.test ", wantUsername: "ada@bloom.test"},
		{name: "first collision", personID: "p2", email: "ada@bloom.test", wantUsername: "ada@bloom.test1"},
		{name: "second collision", personID: "p3", email: "ada@bloom.test", wantUsername: "ada@bloom.test2"},
		{name: "other email", personID: "p4", email: "alan@bloom.test", wantUsername: "alan@bloom.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := prov.CreateLocalCredential(ctx, tt.personID, tt.email, h)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsername, cred.Username)
			assert.False(t, cred.IsActive)
			assert.Equal(t, tt.personID, cred.PersonID)
			assert.NoError(t, cred.CheckPassword("Temp0rary"))

			stored, err := repo.GetCredentialByID(ctx, cred.ID)
			require.NoError(t, err)
			assert.Equal(t, cred.Username, stored.Username)
		})
	}
}

func TestProvisioner_CreateLocalCredential_preTakenSuffix(t *testing.T) {
	prov, repo := setup(t, nil)
	ctx := context.Background()
	testutil.CreateCredential(t, repo, "other", "ada@bloom.test", "", false)
	_, err := repo.CreateCredential(ctx, credential.Credential{PersonID: "x", Username: "ada@bloom.test1", Email: "x@bloom.test"})
	require.NoError(t, err)

	cred, err := prov.CreateLocalCredential(ctx, "p1", "ada@bloom.test", hash(t, "pwd"))
	require.NoError(t, err)
	assert.Equal(t, "ada@bloom.test2", cred.Username)
}

func TestProvisioner_CreateLocalCredential_exhausted(t *testing.T) {
	prov := identity.NewProvisioner(testutil.NewConfig(), &takenRepo{}, nil)

	_, err := prov.CreateLocalCredential(context.Background(), "p1", "ada@bloom.test", []byte("hash"))
	assert.Equal(t, identity.ErrAlreadyExists, err)
}

func TestProvisioner_CreateLocalCredential_invalid(t *testing.T) {
	prov, _ := setup(t, nil)

	_, err := prov.CreateLocalCredential(context.Background(), "", "ada@bloom.test", []byte("hash"))
	assert.Error(t, err)
	_, err = prov.CreateLocalCredential(context.Background(), "p1", "ada@bloom.test", nil)
	assert.Error(t, err)
}

func TestProvisioner_RegisterExternalIdentity(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeProvider
		wantID   string
		wantKind core.ErrorKind
		wantIs   error
	}{
		{name: "disabled", provider: nil, wantKind: core.KindConfigurationDisabled, wantIs: identity.ErrProviderDisabled},
		{name: "ok", provider: &fakeProvider{id: "ext-1"}, wantID: "ext-1"},
		{
			name: "account failure", provider: &fakeProvider{accountErr: errors.New("boom")},
			wantKind: core.KindExternalProvider,
		},
		{
			name: "missing id", provider: &fakeProvider{},
			wantKind: core.KindExternalProvider, wantIs: identity.ErrMissingExternalID,
		},
		{
			name: "profile failure", provider: &fakeProvider{id: "ext-2", profileErr: errors.New("boom")},
			wantID: "ext-2", wantKind: core.KindExternalProvider,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var provider identity.Provider
			if tt.provider != nil {
				provider = tt.provider
			}
			prov, _ := setup(t, provider)

			id, err := prov.RegisterExternalIdentity(context.Background(), " Ada@Bloom.test", "Temp0rary", "Ada", "Teacher")
			assert.Equal(t, tt.wantID, id)
			if tt.wantKind == core.KindUnknown {
				require.NoError(t, err)
				require.Len(t, tt.provider.accounts, 1)
				assert.Equal(t, identity.Account{Email: "ada@bloom.test", Password: "Temp0rary", Name: "Ada", Role: "Teacher"}, tt.provider.accounts[0])
				assert.Equal(t, []string{tt.wantID}, tt.provider.profiles)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
			assert.False(t, core.KindOf(err).Fatal())
			if tt.wantIs != nil {
				assert.True(t, errors.Is(err, tt.wantIs), "errors.Is(%v, %v)", err, tt.wantIs)
			}
		})
	}
}

func TestProvisioner_RegisterExternalIdentity_timeout(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Identity.Timeout = 20 * time.Millisecond
	prov := identity.NewProvisioner(conf, inmemdb.NewCredentialRepository(inmemdb.NewDB()), &fakeProvider{block: true})

	start := time.Now()
	_, err := prov.RegisterExternalIdentity(context.Background(), "ada@bloom.test", "pwd", "Ada", "Teacher")
	require.Error(t, err)
	assert.Equal(t, core.KindExternalProvider, core.KindOf(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, int64(time.Since(start)), int64(2*time.Second))
}

func TestProvisioner_AttachExternalID(t *testing.T) {
	prov, repo := setup(t, nil)
	ctx := context.Background()
	cred := testutil.CreateCredential(t, repo, "p1", "ada@bloom.test", "pwd", false)

	require.NoError(t, prov.AttachExternalID(ctx, cred.ID, "ext-9"))
	stored, err := repo.GetCredentialByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "ext-9", stored.ExternalID)
	assert.False(t, stored.IsActive)

	assert.Error(t, prov.AttachExternalID(ctx, "unknown", "ext-9"))
}

func TestProvisioner_ActivateCredential(t *testing.T) {
	prov, repo := setup(t, nil)
	ctx := context.Background()
	testutil.CreateCredential(t, repo, "p1", "ada@bloom.test", "OneTime123", false)
	testutil.CreateCredential(t, repo, "p2", "alan@bloom.test", "Whatever1!", true)

	tests := []struct {
		name    string
		act     credential.Activation
		wantErr error
	}{
		{name: "unknown email", act: credential.Activation{Email: "lol@bloom.test", OneTimePassword: "OneTime123", Password: "N3w-Secret!"}, wantErr: identity.ErrInvalidCredentials},
		{name: "wrong one-time password", act: credential.Activation{Email: "ada@bloom.test", OneTimePassword: "nope", Password: "N3w-Secret!"}, wantErr: identity.ErrInvalidCredentials},
		{name: "already active", act: credential.Activation{Email: "alan@bloom.test", OneTimePassword: "Whatever1!", Password: "N3w-Secret!"}, wantErr: identity.ErrAlreadyActive},
		{name: "ok", act: credential.Activation{Email: "ADA@bloom.test", OneTimePassword: "OneTime123", Password: "N3w-Secret!"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := prov.ActivateCredential(ctx, tt.act)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, cred.IsActive)
			assert.NoError(t, cred.CheckPassword("N3w-Secret!"))
			assert.Error(t, cred.CheckPassword("OneTime123"))
		})
	}
}

func TestProvisioner_Authenticate(t *testing.T) {
	prov, repo := setup(t, nil)
	ctx := context.Background()
	testutil.CreateCredential(t, repo, "p1", "ada@bloom.test", "OneTime123", false)
	testutil.CreateCredential(t, repo, "p2", "alan@bloom.test", "Whatever1!", true)

	tests := []struct {
		name     string
		username string
		pwd      string
		wantErr  error
	}{
		{name: "unknown", username: "lol", pwd: "x", wantErr: identity.ErrInvalidCredentials},
		{name: "bad password", username: "alan@bloom.test", pwd: "x", wantErr: identity.ErrInvalidCredentials},
		{name: "inactive", username: "ada@bloom.test", pwd: "OneTime123", wantErr: identity.ErrInactive},
		{name: "ok", username: " ALAN@bloom.test", pwd: "Whatever1!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := prov.Authenticate(ctx, tt.username, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.False(t, cred.LastLogin.IsZero())
		})
	}
}

func TestProvisioner_ResetPassword(t *testing.T) {
	prov, repo := setup(t, nil)
	ctx := context.Background()
	cred := testutil.CreateCredential(t, repo, "p1", "ada@bloom.test", "OneTime123", false)

	require.NoError(t, prov.ResetPassword(ctx, "ada@bloom.test", "Brand-n3w"))
	stored, err := repo.GetCredentialByID(ctx, cred.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.NoError(t, stored.CheckPassword("Brand-n3w"))

	assert.Error(t, prov.ResetPassword(ctx, "nobody", "x"))
}

func TestMaxUsernameAttempts(t *testing.T) {
	// the last suffix tried is MaxUsernameAttempts-1
	prov, repo := setup(t, nil)
	ctx := context.Background()
	testutil.CreateCredential(t, repo, "p0", "ada@bloom.test", "", false)
	for i := 1; i < identity.MaxUsernameAttempts; i++ {
		_, err := repo.CreateCredential(ctx, credential.Credential{PersonID: "p", Username: "ada@bloom.test" + strconv.Itoa(i)})
		require.NoError(t, err)
	}

	_, err := prov.CreateLocalCredential(ctx, "p1", "ada@bloom.test", []byte("hash"))
	assert.Equal(t, identity.ErrAlreadyExists, err)
}
