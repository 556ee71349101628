package identitysvc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
)

const (
	usersPath       = "/auth/v1/admin/users"
	profilesPathFmt = "/rest/v1/%s"

	defaultTimeout = 10 * time.Second
)

// profile roles
var roles = map[string]string{
	person.RoleSuperUser:     "super_user",
	person.RoleAdministrator: "school_leader",
	person.RoleTeacher:       "teacher",
}

// ErrUnexpectedStatus wraps non-2xx answers of the provider.
var ErrUnexpectedStatus = errors.New("unexpected identity provider status")

type (
	createUserRequest struct {
		Email        string                 `json:"email"`
		Password     string                 `json:"password"`
		EmailConfirm bool                   `json:"email_confirm"`
		UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
	}

	createUserResponse struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}

	profileRequest struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Role     string `json:"role"`
	}

	apiError struct {
		Code             interface{} `json:"code"` // number from auth, string from rest
		Msg              string      `json:"msg"`
		Message          string      `json:"message"`
		ErrorDescription string      `json:"error_description"`
	}
)

func (e apiError) text() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	}
	return e.ErrorDescription
}

// SupabaseProvider registers accounts with a Supabase project: an auth user, then a row in the profile table.
// Both calls authenticate with the project's service-role key.
type SupabaseProvider struct {
	client       *resty.Client
	profileTable string
}

var _ identity.Provider = (*SupabaseProvider)(nil)

// NewProvider returns nil when the provider is not configured, which disables external registration.
func NewProvider(conf *core.Config) identity.Provider {
	if !conf.IdentityEnabled() {
		return nil
	}
	return NewSupabaseProvider(conf)
}

func NewSupabaseProvider(conf *core.Config) *SupabaseProvider {
	timeout := conf.Identity.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// no retries: account creation is not idempotent
	client := resty.New().
		SetBaseURL(conf.Identity.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("apikey", conf.Identity.ServiceKey).
		SetAuthToken(conf.Identity.ServiceKey)

	return &SupabaseProvider{client: client, profileTable: conf.Identity.ProfileTable}
}

func (p *SupabaseProvider) CreateAccount(ctx context.Context, acc identity.Account) (string, error) {
	var (
		result createUserResponse
		apiErr apiError
	)
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(createUserRequest{
			Email:        acc.Email,
			Password:     acc.Password,
			EmailConfirm: true,
			UserMetadata: map[string]interface{}{"fullName": acc.Name, "role": profileRole(acc.Role)},
		}).
		SetResult(&result).
		SetError(&apiErr).
		Post(usersPath)
	if err != nil {
		return "", errors.Wrap(err, "calling auth admin api")
	}
	if resp.IsError() {
		return "", statusError(resp, apiErr)
	}
	return result.ID, nil
}

func (p *SupabaseProvider) CreateProfile(ctx context.Context, externalID string, acc identity.Account) error {
	var apiErr apiError
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(profileRequest{
			ID:       externalID,
			Email:    acc.Email,
			FullName: acc.Name,
			Role:     profileRole(acc.Role),
		}).
		SetError(&apiErr).
		Post(fmt.Sprintf(profilesPathFmt, p.profileTable))
	if err != nil {
		return errors.Wrap(err, "calling rest api")
	}
	if resp.IsError() {
		return statusError(resp, apiErr)
	}
	return nil
}

func profileRole(role string) string {
	if r, ok := roles[role]; ok {
		return r
	}
	return role
}

func statusError(resp *resty.Response, apiErr apiError) error {
	msg := apiErr.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return errors.Wrapf(ErrUnexpectedStatus, "%d %s", resp.StatusCode(), msg)
}
