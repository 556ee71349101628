package echoapi

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/notify"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

var orderingParam = "ordering"

// Ordering reads "?ordering=name,-created_at" into DB orderings; a leading "-" sorts descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token  string        `json:"token"`
		Person person.Person `json:"person"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	GroupResponse struct {
		group.ObservationGroup
		Members []teacher.Teacher `json:"members"`
	}

	ScheduleResponse struct {
		schedule.Schedule
		Notification *notify.DispatchResult `json:"notification,omitempty"`
	}

	// ReminderRequest overrides the number of days left before the observation.
	ReminderRequest struct {
		DaysUntil *int `json:"days_until" validate:"omitempty,gte=0"`
	}

	ReminderResponse struct {
		Sent bool `json:"sent"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}
