package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

var (
	errUnknownTeacher = "teacher does not exist"
	errUnknownGroup   = "observation group does not exist"
)

type scheduleApi struct {
	deps Deps
}

func registerScheduleAPI(g *echo.Group, deps Deps, jwt, admin echo.MiddlewareFunc) {
	api := scheduleApi{deps: deps}

	sg := g.Group("/schedules", jwt, admin)
	sg.POST("", api.create)
	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/notify", api.notify)
	sg.POST("/:id/remind", api.remind)
}

// checkTarget makes sure the teacher or group the schedule points to exists.
func (api *scheduleApi) checkTarget(ctx context.Context, ns schedule.NewSchedule) error {
	if ns.TeacherID != "" {
		if _, err := api.deps.Teachers.GetTeacherByID(ctx, ns.TeacherID); err != nil {
			if errors.Cause(err) == teacher.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: errUnknownTeacher})
			}
			return errors.Wrap(err, "finding teacher")
		}
	}
	if ns.GroupID != "" {
		if _, err := api.deps.Groups.GetGroupByID(ctx, ns.GroupID); err != nil {
			if errors.Cause(err) == group.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "group_id", Error: errUnknownGroup})
			}
			return errors.Wrap(err, "finding group")
		}
	}
	return nil
}

// create stores the schedule and notifies its recipients right away.
// A failed notification does not undo the schedule.
func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	if err := api.checkTarget(reqCtx, data); err != nil {
		return err
	}

	s, err := data.Schedule(nowFunc().UTC())
	if err != nil {
		return errors.Wrap(err, "building schedule")
	}
	if s, err = api.deps.Schedules.CreateSchedule(reqCtx, s); err != nil {
		return errors.Wrap(err, "creating schedule")
	}

	res := ScheduleResponse{Schedule: s}
	result, err := api.deps.Dispatcher.DispatchForSchedule(reqCtx, s)
	if err != nil {
		api.deps.Logger.Error("notifying new schedule", err, map[string]interface{}{"schedule_id": s.ID})
	} else {
		res.Notification = &result
	}
	if fresh, err := api.deps.Schedules.GetScheduleByID(reqCtx, s.ID); err == nil {
		res.Schedule = fresh
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	s, err := api.deps.Schedules.GetScheduleByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *scheduleApi) notify(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	s, err := api.deps.Schedules.GetScheduleByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule")
	}
	result, err := api.deps.Dispatcher.DispatchForSchedule(reqCtx, s)
	if err != nil {
		return errors.Wrap(err, "notifying schedule")
	}
	return ctx.JSON(http.StatusOK, result)
}

// remind sends the reminder. days_until defaults to the days left before the schedule date.
func (api *scheduleApi) remind(ctx echo.Context) error {
	var data ReminderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReminderRequest")
	}
	if err := api.deps.Validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	s, err := api.deps.Schedules.GetScheduleByID(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding schedule")
	}
	days := s.DaysUntil(nowFunc())
	if data.DaysUntil != nil {
		days = *data.DaysUntil
	}

	sent, err := api.deps.Dispatcher.DispatchReminder(reqCtx, s, days)
	if err != nil {
		return errors.Wrap(err, "sending reminder")
	}
	return ctx.JSON(http.StatusOK, ReminderResponse{Sent: sent})
}
