package group

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

// Statuses
const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

var (
	AllStatuses = []string{StatusScheduled, StatusCompleted, StatusCancelled}

	// errors
	ErrNotFound = errors.New("observation group not found")

	statusTag  = "groupstatus"
	statusText = "invalid status"
)

type ObservationGroup struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Note       string    `json:"note"`
	CreatedBy  string    `json:"created_by"` // Person ID
	TeacherIDs []string  `json:"teacher_ids"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

type NewGroup struct {
	Name       string   `json:"name" validate:"required"`
	Note       string   `json:"note"`
	TeacherIDs []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
	Status     string   `json:"status" validate:"omitempty,groupstatus"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.Note = core.CleanString(ng.Note)
	ng.Status = core.CleanString(ng.Status)
	if ng.Status == "" {
		ng.Status = StatusScheduled
	}
	ng.TeacherIDs = dedupe(ng.TeacherIDs)
	return validate.Struct(ng)
}

// MemberSet replaces the whole member set of a group.
type MemberSet struct {
	TeacherIDs []string `json:"teacher_ids" validate:"omitempty,dive,uuid"`
}

func (ms *MemberSet) Validate(validate *validator.Validate) error {
	ms.TeacherIDs = dedupe(ms.TeacherIDs)
	return validate.Struct(ms)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = core.CleanString(id, true /* lower */)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

type Repository interface {
	CreateGroup(ctx context.Context, g ObservationGroup) (ObservationGroup, error)
	GetGroupByID(ctx context.Context, id string) (ObservationGroup, error)
	// ReplaceGroupTeachers swaps the member set of the group for teacherIDs in one step.
	ReplaceGroupTeachers(ctx context.Context, groupID string, teacherIDs []string) error
	// ListGroupMembers returns the teachers currently in the group.
	ListGroupMembers(ctx context.Context, groupID string) ([]teacher.Teacher, error)
}

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, core.OneOf(AllStatuses...))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
