package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core/group"
)

type groupApi struct {
	deps Deps
}

func registerGroupAPI(g *echo.Group, deps Deps, jwt, admin echo.MiddlewareFunc) {
	api := groupApi{deps: deps}

	gg := g.Group("/groups", jwt, admin)
	gg.POST("", api.create)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id/teachers", api.replaceTeachers)
}

func (api *groupApi) response(ctx context.Context, id string) (GroupResponse, error) {
	g, err := api.deps.Groups.GetGroupByID(ctx, id)
	if err != nil {
		return GroupResponse{}, errors.Wrap(err, "finding group")
	}
	members, err := api.deps.Groups.ListGroupMembers(ctx, id)
	if err != nil {
		return GroupResponse{}, errors.Wrap(err, "listing group members")
	}
	return GroupResponse{ObservationGroup: g, Members: members}, nil
}

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	now := nowFunc().UTC()
	reqCtx := ctx.Request().Context()
	g, err := api.deps.Groups.CreateGroup(reqCtx, group.ObservationGroup{
		Name:       data.Name,
		Note:       data.Note,
		CreatedBy:  claims.Subject,
		TeacherIDs: data.TeacherIDs,
		Status:     data.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return errors.Wrap(err, "creating group")
	}

	res, err := api.response(reqCtx, g.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	res, err := api.response(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

// replaceTeachers swaps the whole member set. Unknown teachers are dropped.
func (api *groupApi) replaceTeachers(ctx echo.Context) error {
	var data group.MemberSet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MemberSet")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	if err := api.deps.Groups.ReplaceGroupTeachers(reqCtx, ctx.Param("id"), data.TeacherIDs); err != nil {
		return errors.Wrap(err, "replacing group teachers")
	}
	res, err := api.response(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}
