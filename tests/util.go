package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

// NewConfig returns a configuration suitable for tests, without reading the environment.
func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "T-TESS Bloom",
		SecretKey:        "test-secret-key",
		SiteURL:          "https://bloom.test",
		DefaultFromEmail: mail.Address{Name: "T-TESS Bloom", Address: "noreply@bloom.test"},
		Storage:          core.StorageMemory,
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
			DisableReqLogs:     true,
		},
		Database: core.DatabaseConfig{
			Engine:     "postgres",
			Host:       "localhost",
			Port:       "5432",
			Name:       "ttessbloom",
			User:       "ttessbloom",
			DisableTLS: true,
		},
		Mail: core.MailConfig{
			Backend: core.MailConsole,
			Timeout: 2 * time.Second,
		},
		Identity: core.IdentityConfig{
			ProfileTable: "user_profiles",
			Timeout:      2 * time.Second,
		},
		Redis:         core.RedisConfig{LockTTL: time.Minute},
		Notifications: core.DefaultNotifications(),
	}
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	person.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)
	credential.InitValidators(validate, translator)
	group.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate, translator
}

// LogEntry is one call recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log calls instead of printing them.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Outbox is a core.MailTransport keeping every delivered message in memory.
// Sends to addresses listed in FailFor return the associated error.
type Outbox struct {
	mu       sync.Mutex
	Sent     []core.EmailMessage
	Attempts int
	FailFor  map[string]error
	Disabled bool
}

var _ core.MailTransport = (*Outbox)(nil)

func (o *Outbox) Send(ctx context.Context, msg core.EmailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Disabled {
		return core.ErrMailDisabled
	}
	o.Attempts++
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, to := range msg.To {
		if err, ok := o.FailFor[to.Address]; ok {
			return err
		}
	}
	o.Sent = append(o.Sent, msg)
	return nil
}

// SentTo returns the messages delivered to address.
func (o *Outbox) SentTo(address string) []core.EmailMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	msgs := make([]core.EmailMessage, 0)
	for _, msg := range o.Sent {
		for _, to := range msg.To {
			if to.Address == address {
				msgs = append(msgs, msg)
			}
		}
	}
	return msgs
}

func CreatePerson(t *testing.T, repo person.Repository, name, email, role string) person.Person {
	t.Helper()
	now := time.Now().UTC()
	p, err := repo.CreatePerson(context.Background(), person.Person{
		Name:      name,
		Email:     email,
		Role:      role,
		Status:    person.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePerson() failed: %v", err)
	}
	return p
}

// CreateTeacher creates a Person with the Teacher role and its profile.
func CreateTeacher(
	t *testing.T,
	personRepo person.Repository,
	teacherRepo teacher.Repository,
	name, email, subject, grade string,
) teacher.Teacher {
	t.Helper()
	p := CreatePerson(t, personRepo, name, email, person.RoleTeacher)
	tchr, err := teacherRepo.CreateTeacher(context.Background(), teacher.Teacher{
		PersonID:  p.ID,
		Name:      name,
		Subject:   subject,
		Grade:     grade,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.CreatedAt,
	})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateCredential(t *testing.T, repo credential.Repository, personID, email, pwd string, isActive bool) credential.Credential {
	t.Helper()
	now := time.Now().UTC()
	c := credential.Credential{
		PersonID:  personID,
		Username:  email,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := c.SetPassword(pwd); err != nil {
			t.Fatalf("CreateCredential() failed: %v", err)
		}
	}
	c, err := repo.CreateCredential(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCredential() failed: %v", err)
	}
	return c
}

func CreateGroup(t *testing.T, repo group.Repository, name, createdBy string, teacherIDs ...string) group.ObservationGroup {
	t.Helper()
	now := time.Now().UTC()
	g, err := repo.CreateGroup(context.Background(), group.ObservationGroup{
		Name:       name,
		CreatedBy:  createdBy,
		TeacherIDs: teacherIDs,
		Status:     group.StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return g
}

// CreateSchedule stores a schedule on date for either a teacher or a group (pass "" for the other).
func CreateSchedule(t *testing.T, repo schedule.Repository, teacherID, groupID string, date time.Time, hhmm, kind, notes string) schedule.Schedule {
	t.Helper()
	now := time.Now().UTC()
	s := schedule.Schedule{
		Date:      schedule.CivilDate(date),
		Time:      hhmm,
		Kind:      kind,
		Notes:     notes,
		Status:    schedule.StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if teacherID != "" {
		s.TeacherID = &teacherID
	}
	if groupID != "" {
		s.GroupID = &groupID
	}
	s, err := repo.CreateSchedule(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	return s
}

// Email returns a unique test address.
func Email(i int) string {
	return fmt.Sprintf("user%02d@bloom.test", i)
}
