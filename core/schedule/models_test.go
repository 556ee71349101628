package schedule_test

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/tests"
)

const teacherID = "6b0f6f3e-7d2a-4a4e-9d55-1f2b3c4d5e6f"

func TestNewSchedule_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name       string
		ns         schedule.NewSchedule
		wantFields []string
		wantBoth   bool
	}{
		{name: "empty", wantFields: []string{"date", "time", "observation_type"}},
		{
			name:       "bad values",
			ns:         schedule.NewSchedule{TeacherID: "lol", Date: "13/05/2024", Time: "9:30", Kind: "surprise", Status: "Done"},
			wantFields: []string{"teacher_id", "date", "time", "observation_type", "status"},
		},
		{
			name:     "teacher and group",
			ns:       schedule.NewSchedule{TeacherID: teacherID, GroupID: teacherID, Date: "2024-05-13", Time: "09:30", Kind: schedule.KindFormal},
			wantBoth: true,
		},
		{name: "no target", ns: schedule.NewSchedule{Date: "2024-05-13", Time: "23:59", Kind: schedule.KindWalkThrough}},
		{name: "ok", ns: schedule.NewSchedule{TeacherID: " " + teacherID + " ", Date: "2024-05-13", Time: "00:00", Kind: " Formal "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ns.Validate(validate)
			switch {
			case tt.wantFields != nil:
				var vErrs validator.ValidationErrors
				require.True(t, errors.As(err, &vErrs), "got %v", err)
				fields := make([]string, 0, len(vErrs))
				for _, e := range vErrs {
					fields = append(fields, e.Field())
				}
				assert.ElementsMatch(t, tt.wantFields, fields)
			case tt.wantBoth:
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "got %v", err)
				assert.Equal(t, schedule.ErrTeacherAndGroupSet, vErr.Err)
				assert.Len(t, vErr.Fields, 2)
			default:
				require.NoError(t, err)
				assert.Equal(t, schedule.StatusScheduled, tt.ns.Status)
			}
		})
	}
}

func TestNewSchedule_Schedule(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ns := schedule.NewSchedule{TeacherID: teacherID, Date: "2024-05-13", Time: "09:30", Kind: schedule.KindFormal, Status: schedule.StatusScheduled}

	s, err := ns.Schedule(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), s.Date)
	require.NotNil(t, s.TeacherID)
	assert.Equal(t, teacherID, *s.TeacherID)
	assert.Nil(t, s.GroupID)
	assert.Equal(t, now, s.CreatedAt)
	assert.False(t, s.NotificationSent)
	assert.False(t, s.ReminderSent)

	ns.Date = "lol"
	_, err = ns.Schedule(now)
	assert.Error(t, err)
}

func TestSchedule_DaysUntil(t *testing.T) {
	s := schedule.Schedule{Date: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		today time.Time
		want  int
	}{
		{today: time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC), want: 3},
		{today: time.Date(2024, 5, 12, 0, 1, 0, 0, time.UTC), want: 1},
		{today: time.Date(2024, 5, 13, 18, 0, 0, 0, time.UTC), want: 0},
		{today: time.Date(2024, 5, 15, 8, 0, 0, 0, time.UTC), want: -2},
		{today: time.Date(2024, 3, 31, 8, 0, 0, 0, time.UTC), want: 43},
	}
	for _, tt := range tests {
		t.Run(tt.today.Format(time.RFC3339), func(t *testing.T) {
			assert.Equal(t, tt.want, s.DaysUntil(tt.today))
		})
	}
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Formal Observation", schedule.KindLabel(schedule.KindFormal))
	assert.Equal(t, "Walk-through", schedule.KindLabel(schedule.KindWalkThrough))
	assert.Equal(t, "peer-review", schedule.KindLabel("peer-review"))
}
