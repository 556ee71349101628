package schedule

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

// Observation kinds
const (
	KindFormal      = "formal"
	KindWalkThrough = "walk-through"
)

// Statuses
const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

const DateLayout = "2006-01-02"

var (
	AllKinds    = []string{KindFormal, KindWalkThrough}
	AllStatuses = []string{StatusScheduled, StatusCompleted, StatusCancelled}

	kindLabels = map[string]string{
		KindFormal:      "Formal Observation",
		KindWalkThrough: "Walk-through",
	}

	// errors
	ErrNotFound           = errors.New("schedule not found")
	ErrTeacherAndGroupSet = errors.New("a schedule targets either a teacher or a group, not both")

	kindTag    = "obskind"
	kindText   = "invalid observation type"
	statusTag  = "schedulestatus"
	statusText = "invalid status"
)

// KindLabel returns the human readable name of an observation kind.
func KindLabel(kind string) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return kind
}

// Schedule is one planned observation, assigned to a single teacher or to a group.
// The delivery fields only ever go from false to true.
type Schedule struct {
	ID                 string     `json:"id"`
	TeacherID          *string    `json:"teacher_id"`
	GroupID            *string    `json:"group_id"`
	Date               time.Time  `json:"date"` // civil date, UTC midnight
	Time               string     `json:"time"` // HH:MM
	Kind               string     `json:"observation_type"`
	Notes              string     `json:"notes"`
	Status             string     `json:"status"`
	NotificationSent   bool       `json:"notification_sent"`
	NotificationSentAt *time.Time `json:"notification_sent_at"`
	ReminderSent       bool       `json:"reminder_sent"`
	ReminderSentAt     *time.Time `json:"reminder_sent_at"`
	CreatedAt          time.Time  `json:"created_at"` // UTC
	UpdatedAt          time.Time  `json:"updated_at"` // UTC
}

// DaysUntil counts the calendar days from today to the schedule date, negative when in the past.
func (s Schedule) DaysUntil(today time.Time) int {
	t := CivilDate(today)
	return int(CivilDate(s.Date).Sub(t).Hours() / 24)
}

// CivilDate truncates t to midnight UTC of its calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type NewSchedule struct {
	TeacherID string `json:"teacher_id" validate:"omitempty,uuid"`
	GroupID   string `json:"group_id" validate:"omitempty,uuid"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Time      string `json:"time" validate:"required,hhmm"`
	Kind      string `json:"observation_type" validate:"required,obskind"`
	Notes     string `json:"notes"`
	Status    string `json:"status" validate:"omitempty,schedulestatus"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.TeacherID = core.CleanString(ns.TeacherID, true /* lower */)
	ns.GroupID = core.CleanString(ns.GroupID, true /* lower */)
	ns.Date = core.CleanString(ns.Date)
	ns.Time = core.CleanString(ns.Time)
	ns.Kind = core.CleanString(ns.Kind, true /* lower */)
	ns.Notes = core.CleanString(ns.Notes)
	ns.Status = core.CleanString(ns.Status)
	if ns.Status == "" {
		ns.Status = StatusScheduled
	}

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.TeacherID != "" && ns.GroupID != "" {
		return core.NewValidationError(
			ErrTeacherAndGroupSet,
			core.FieldError{Field: "teacher_id", Error: ErrTeacherAndGroupSet.Error()},
			core.FieldError{Field: "group_id", Error: ErrTeacherAndGroupSet.Error()},
		)
	}
	return nil
}

// Schedule converts the validated input into a Schedule ready to be stored.
func (ns NewSchedule) Schedule(now time.Time) (Schedule, error) {
	date, err := time.Parse(DateLayout, ns.Date)
	if err != nil {
		return Schedule{}, err
	}
	s := Schedule{
		Date:      date,
		Time:      ns.Time,
		Kind:      ns.Kind,
		Notes:     ns.Notes,
		Status:    ns.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ns.TeacherID != "" {
		id := ns.TeacherID
		s.TeacherID = &id
	}
	if ns.GroupID != "" {
		id := ns.GroupID
		s.GroupID = &id
	}
	return s, nil
}

type QueryFilter struct {
	Date         *time.Time
	Status       string
	ReminderSent *bool
}

type Repository interface {
	CreateSchedule(ctx context.Context, s Schedule) (Schedule, error)
	GetScheduleByID(ctx context.Context, id string) (Schedule, error)
	QuerySchedules(ctx context.Context, filter QueryFilter) ([]Schedule, error)
	// MarkNotificationSent and MarkReminderSent set the flag to true and record at.
	MarkNotificationSent(ctx context.Context, id string, at time.Time) error
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(kindTag, core.OneOf(AllKinds...))
	core.RegisterCustomTranslation(validate, translator, kindTag, kindText)

	_ = validate.RegisterValidation(statusTag, core.OneOf(AllStatuses...))
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}
