package mailer_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/mailer"
	"github.com/Nanikworkforce/TET-Bloom/tests"
)

func newComposer(t *testing.T) *mailer.Composer {
	t.Helper()
	c, err := mailer.NewComposer(testutil.NewConfig())
	require.NoError(t, err)
	return c
}

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestComposer_Compose_golden(t *testing.T) {
	c := newComposer(t)

	tests := []struct {
		name        string
		kind        mailer.Kind
		fields      mailer.Fields
		wantSubject string
	}{
		{
			name: "scheduled_notice_teacher",
			kind: mailer.ScheduledNotice,
			fields: mailer.Fields{
				RecipientName:   "Ada Lovelace",
				ObserverName:    "Grace Hopper",
				Date:            time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
				Time:            "09:30",
				ObservationKind: "formal",
				Subject:         "Mathematics",
				Grade:           "5th Grade",
				Notes:           "Focus on group work",
			},
			wantSubject: "New Observation Scheduled - T-TESS Bloom",
		},
		{
			name: "reminder_notice_group",
			kind: mailer.ReminderNotice,
			fields: mailer.Fields{
				RecipientName:   "Alan Turing",
				Date:            time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC),
				Time:            "14:05",
				ObservationKind: "walk-through",
				GroupName:       "Fifth Grade Team",
				DaysUntil:       3,
			},
			wantSubject: "Observation in 3 Days - T-TESS Bloom",
		},
		{
			name: "welcome_notice",
			kind: mailer.WelcomeNotice,
			fields: mailer.Fields{
				RecipientName:     "Ada Lovelace",
				Email:             "ada@bloom.test",
				TemporaryPassword: "Abc123Def456",
			},
			wantSubject: "Welcome to the System",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Compose(tt.kind, tt.fields)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, got.Subject)
			newGolden(t).Assert(t, tt.name, []byte(got.Text))
			assert.Contains(t, got.HTML, "<title>"+tt.wantSubject+"</title>")
		})
	}
}

func TestComposer_Compose_notes(t *testing.T) {
	c := newComposer(t)
	fields := mailer.Fields{RecipientName: "Ada", Date: time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), Time: "09:30"}

	tests := []struct {
		name      string
		notes     string
		wantNotes bool
	}{
		{name: "absent", notes: "", wantNotes: false},
		{name: "blank", notes: "   ", wantNotes: false},
		{name: "present", notes: "Bring the rubric", wantNotes: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields.Notes = tt.notes
			for _, kind := range []mailer.Kind{mailer.ScheduledNotice, mailer.ReminderNotice} {
				got, err := c.Compose(kind, fields)
				require.NoError(t, err)
				assert.Equal(t, tt.wantNotes, strings.Contains(got.Text, "Notes:"), "text, kind %s", kind)
				assert.Equal(t, tt.wantNotes, strings.Contains(got.HTML, "Notes:"), "html, kind %s", kind)
				if tt.wantNotes {
					assert.Contains(t, got.Text, "Notes: Bring the rubric")
				}
			}
		})
	}
}

func TestComposer_Compose_defaults(t *testing.T) {
	c := newComposer(t)

	got, err := c.Compose(mailer.ScheduledNotice, mailer.Fields{})
	require.NoError(t, err)
	assert.Contains(t, got.Text, "Hello Teacher,")
	assert.Contains(t, got.Text, "Date: Not specified")
	assert.Contains(t, got.Text, "Time: Not specified")
	assert.Contains(t, got.Text, "Type: Not specified")
	assert.Contains(t, got.Text, "Subject: Not specified")
	assert.Contains(t, got.Text, "Grade Level: Not specified")
	assert.Contains(t, got.Text, "Observer: Administrator")
}

func TestComposer_Compose_deterministic(t *testing.T) {
	c := newComposer(t)
	fields := mailer.Fields{
		RecipientName:   "Ada",
		Date:            time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC),
		Time:            "09:30",
		ObservationKind: "formal",
		DaysUntil:       1,
	}

	for _, kind := range mailer.AllKinds {
		first, err := c.Compose(kind, fields)
		require.NoError(t, err)
		second, err := c.Compose(kind, fields)
		require.NoError(t, err)
		assert.Equal(t, first, second, "kind %s", kind)
	}
}

func TestComposer_Compose_escapesHTML(t *testing.T) {
	c := newComposer(t)

	got, err := c.Compose(mailer.ScheduledNotice, mailer.Fields{RecipientName: "<b>Eve</b>"})
	require.NoError(t, err)
	assert.NotContains(t, got.HTML, "<b>Eve</b>")
	assert.Contains(t, got.HTML, "&lt;b&gt;Eve&lt;/b&gt;")
	assert.Contains(t, got.Text, "Hello <b>Eve</b>,")
}

func TestComposer_Compose_unknownKind(t *testing.T) {
	c := newComposer(t)
	_, err := c.Compose(mailer.Kind("lol"), mailer.Fields{})
	assert.ErrorIs(t, err, mailer.ErrUnknownKind)
}

func TestNewComposer_badSubject(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Notifications[core.NoticeReminder] = core.NotificationSetting{Enabled: true, Subject: "{{.Timing"}
	_, err := mailer.NewComposer(conf)
	assert.Error(t, err)
}

func TestTimingText(t *testing.T) {
	tests := []struct {
		days        int
		want        string
		wantSubject string
	}{
		{days: -3, want: "in 0 days", wantSubject: "in 0 Days"},
		{days: -1, want: "in 0 days", wantSubject: "in 0 Days"},
		{days: 0, want: "today", wantSubject: "Today"},
		{days: 1, want: "tomorrow", wantSubject: "Tomorrow"},
		{days: 2, want: "in 2 days", wantSubject: "in 2 Days"},
		{days: 14, want: "in 14 days", wantSubject: "in 14 Days"},
	}
	for _, tt := range tests {
		if got := mailer.TimingText(tt.days); got != tt.want {
			t.Errorf("TimingText(%d) = %q, want %q", tt.days, got, tt.want)
		}
		if got := mailer.SubjectTiming(tt.days); got != tt.wantSubject {
			t.Errorf("SubjectTiming(%d) = %q, want %q", tt.days, got, tt.wantSubject)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "00:00", want: "12:00 AM"},
		{in: "09:30", want: "9:30 AM"},
		{in: "12:15", want: "12:15 PM"},
		{in: "23:59", want: "11:59 PM"},
		{in: "", want: mailer.NotSpecified},
		{in: "after lunch", want: "after lunch"},
	}
	for _, tt := range tests {
		if got := mailer.FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
