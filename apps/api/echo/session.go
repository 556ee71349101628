package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
)

type authApi struct {
	deps Deps
}

func registerAuthAPI(g *echo.Group, deps Deps) {
	api := authApi{deps: deps}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/activate", api.activate)
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	cred, err := api.deps.Provisioner.Authenticate(reqCtx, data.Username, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case identity.ErrInvalidCredentials:
			return errAuthenticationFailed
		case identity.ErrInactive:
			return errAccountNotActivated
		}
		return errors.Wrap(err, "authenticating")
	}

	p, err := api.deps.People.GetPersonByID(reqCtx, cred.PersonID)
	if err != nil {
		return errors.Wrap(err, "finding person")
	}
	if p.Status == person.StatusInactive {
		return errAccountDeactivated
	}

	token, err := GenerateToken(api.deps.Config, NewClaims(api.deps.Config, p, cred.Username))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Person: p})
}

func (api *authApi) activate(ctx echo.Context) error {
	var data credential.Activation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Activation")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if _, err := api.deps.Provisioner.ActivateCredential(ctx.Request().Context(), data); err != nil {
		switch errors.Cause(err) {
		case identity.ErrInvalidCredentials:
			return errAuthenticationFailed
		case identity.ErrAlreadyActive:
			return core.NewValidationError(identity.ErrAlreadyActive)
		}
		return errors.Wrap(err, "activating credential")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Your account is active. You can now log in with your new password."})
}
