package sqlxrepos_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/credential"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
	"github.com/Nanikworkforce/TET-Bloom/storage/database/sqlx"
)

const (
	personID  = "0b8f1c1e-5c2f-4a53-9b8e-3f1d2c4b5a60"
	teacherID = "1c9a2d2f-6d3a-4b64-8c9f-4a2e3d5c6b71"
	groupID   = "2dab3e3a-7e4b-4c75-9dab-5b3f4e6d7c82"
	schedID   = "3ebc4f4b-8f5c-4d86-8ebc-6c4a5f7e8d93"
)

var now = time.Date(2024, 5, 13, 10, 30, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

func TestPersonRepository_CreatePerson(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewPersonRepository(db)
	p := person.Person{Name: "Ada", Email: "ada@bloom.test", Role: person.RoleTeacher, Status: person.StatusActive, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO people`).
		WithArgs(sqlmock.AnyArg(), "Ada", "ada@bloom.test", person.RoleTeacher, person.StatusActive, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.CreatePerson(context.Background(), p)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "ada@bloom.test", got.Email)
}

func TestPersonRepository_CreatePerson_errors(t *testing.T) {
	tests := []struct {
		name    string
		dbErr   error
		wantErr error
	}{
		{name: "email taken", dbErr: &pq.Error{Code: "23505", Constraint: "people_email_key"}, wantErr: person.ErrEmailExists},
		{name: "other constraint", dbErr: &pq.Error{Code: "23505", Constraint: "people_pkey"}},
		{name: "connection", dbErr: sql.ErrConnDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			mock.ExpectExec(`INSERT INTO people`).WillReturnError(tt.dbErr)

			_, err := sqlxrepos.NewPersonRepository(db).CreatePerson(context.Background(), person.Person{Email: "ada@bloom.test"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
			} else {
				assert.NotEqual(t, person.ErrEmailExists, errors.Cause(err))
				assert.Equal(t, tt.dbErr, errors.Cause(err))
			}
		})
	}
}

func personRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "role", "status", "created_at", "updated_at"})
}

func TestPersonRepository_Get(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewPersonRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM people WHERE email = \$1`).
		WithArgs("ada@bloom.test").
		WillReturnRows(personRows().AddRow(personID, "Ada", "ada@bloom.test", person.RoleTeacher, person.StatusActive, now, now))
	p, err := repo.GetPersonByEmail(context.Background(), "ada@bloom.test")
	require.NoError(t, err)
	assert.Equal(t, personID, p.ID)
	assert.Equal(t, now, p.CreatedAt)

	mock.ExpectQuery(`SELECT (.+) FROM people WHERE id = \$1`).
		WithArgs(personID).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetPersonByID(context.Background(), personID)
	assert.Equal(t, person.ErrNotFound, err)

	// malformed IDs never reach the database
	_, err = repo.GetPersonByID(context.Background(), "42")
	assert.Equal(t, person.ErrNotFound, err)

	mock.ExpectQuery(`SELECT (.+) FROM people WHERE email = \$1`).
		WithArgs("ada@bloom.test").
		WillReturnError(sql.ErrConnDone)
	_, err = repo.GetPersonByEmail(context.Background(), "ada@bloom.test")
	assert.True(t, core.IsShutdown(err))
}

func TestPersonRepository_QueryPeople(t *testing.T) {
	tests := []struct {
		name      string
		filter    person.QueryFilter
		ordering  []core.DBOrdering
		wantQuery string
		wantArgs  []driver.Value
	}{
		{
			name:      "no filter",
			wantQuery: `SELECT (.+) FROM people ORDER BY created_at DESC`,
		},
		{
			name:      "all filters",
			filter:    person.QueryFilter{Role: person.RoleTeacher, Status: person.StatusActive, Search: "ada"},
			ordering:  []core.DBOrdering{{Field: "name", Ascending: true}, {Field: "password"}},
			wantQuery: `SELECT (.+) FROM people WHERE role = \$1 AND status = \$2 AND \(name ILIKE \$3 OR email ILIKE \$3\) ORDER BY name ASC`,
			wantArgs:  []driver.Value{person.RoleTeacher, person.StatusActive, "%ada%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			exp := mock.ExpectQuery(tt.wantQuery)
			if len(tt.wantArgs) > 0 {
				exp = exp.WithArgs(tt.wantArgs...)
			}
			exp.WillReturnRows(personRows().
				AddRow(personID, "Ada", "ada@bloom.test", person.RoleTeacher, person.StatusActive, now, now))

			people, err := sqlxrepos.NewPersonRepository(db).QueryPeople(context.Background(), tt.filter, tt.ordering...)
			require.NoError(t, err)
			assert.Len(t, people, 1)
		})
	}
}

func teacherRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "person_id", "name", "email", "subject", "grade", "years_of_experience", "created_at", "updated_at"})
}

func TestTeacherRepository_CreateTeacher(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewTeacherRepository(db)

	mock.ExpectExec(`INSERT INTO teachers`).
		WithArgs(sqlmock.AnyArg(), personID, "Ada", "Math", nil, 3, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM teachers t JOIN people p ON p.id = t.person_id WHERE t.id = \$1`).
		WillReturnRows(teacherRows().AddRow(teacherID, personID, "Ada", "ada@bloom.test", "Math", nil, 3, now, now))

	got, err := repo.CreateTeacher(context.Background(), teacher.Teacher{
		PersonID: personID, Name: "Ada", Subject: "Math", YearsOfExperience: 3, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, teacherID, got.ID)
	assert.Equal(t, "ada@bloom.test", got.Email)
	assert.Equal(t, "Math", got.Subject)
	assert.Empty(t, got.Grade)
}

func TestTeacherRepository_CreateTeacherPerson(t *testing.T) {
	p := person.Person{Name: "Ada", Email: "ada@bloom.test", Role: person.RoleTeacher, Status: person.StatusActive, CreatedAt: now, UpdatedAt: now}
	tchr := teacher.Teacher{Name: "Ada", Subject: "Math", YearsOfExperience: 3, CreatedAt: now, UpdatedAt: now}

	t.Run("both written", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO people`).
			WithArgs(sqlmock.AnyArg(), "Ada", "ada@bloom.test", person.RoleTeacher, person.StatusActive, now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO teachers`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "Ada", "Math", nil, 3, now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT (.+) FROM teachers t JOIN people p ON p.id = t.person_id WHERE t.id = \$1`).
			WillReturnRows(teacherRows().AddRow(teacherID, personID, "Ada", "ada@bloom.test", "Math", nil, 3, now, now))

		gotP, gotT, err := sqlxrepos.NewTeacherRepository(db).CreateTeacherPerson(context.Background(), p, tchr)
		require.NoError(t, err)
		assert.NotEmpty(t, gotP.ID)
		assert.Equal(t, teacherID, gotT.ID)
		assert.Equal(t, "ada@bloom.test", gotT.Email)
	})

	t.Run("teacher insert fails", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO people`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO teachers`).WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		_, _, err := sqlxrepos.NewTeacherRepository(db).CreateTeacherPerson(context.Background(), p, tchr)
		require.Error(t, err)
		assert.Equal(t, sql.ErrConnDone, errors.Cause(err))
	})

	t.Run("email taken", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO people`).WillReturnError(&pq.Error{Code: "23505", Constraint: "people_email_key"})
		mock.ExpectRollback()

		_, _, err := sqlxrepos.NewTeacherRepository(db).CreateTeacherPerson(context.Background(), p, tchr)
		assert.Equal(t, person.ErrEmailExists, err)
	})
}

func TestTeacherRepository_GetTeachersByIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewTeacherRepository(db)

	got, err := repo.GetTeachersByIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	mock.ExpectQuery(`WHERE t.id::text = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(teacherRows().AddRow(teacherID, personID, "Ada", "ada@bloom.test", nil, "5th Grade", 0, now, now))
	got, err = repo.GetTeachersByIDs(context.Background(), teacherID, "3f1d2c4b-0000-4000-8000-000000000000")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "5th Grade", got[0].Grade)
}

func credentialRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "person_id", "username", "email", "password_hash", "is_active", "external_id", "created_at", "updated_at", "last_login"})
}

func TestCredentialRepository_CreateCredential(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewCredentialRepository(db)
	c := credential.Credential{PersonID: personID, Username: "ada@bloom.test", Email: "ada@bloom.test", PasswordHash: []byte("hash"), CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO credentials`).
		WithArgs(sqlmock.AnyArg(), personID, "ada@bloom.test", "ada@bloom.test", []byte("hash"), false, nil, now, now, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	got, err := repo.CreateCredential(context.Background(), c)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)

	mock.ExpectExec(`INSERT INTO credentials`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "credentials_username_key"})
	_, err = repo.CreateCredential(context.Background(), c)
	assert.Equal(t, credential.ErrUsernameExists, err)
}

func TestCredentialRepository_lookups(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewCredentialRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`FROM credentials WHERE username = \$1 OR email = \$1`).
		WithArgs("ada").
		WillReturnRows(credentialRows().AddRow("c-1", personID, "ada", "ada@bloom.test", []byte("hash"), true, "ext-1", now, now, now))
	c, err := repo.GetCredentialByUsernameOrEmail(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, c.IsActive)
	assert.Equal(t, "ext-1", c.ExternalID)
	assert.Equal(t, now, c.LastLogin)

	mock.ExpectQuery(`FROM credentials WHERE email = \$1`).
		WithArgs("ghost@bloom.test").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetCredentialByEmail(ctx, "ghost@bloom.test")
	assert.Equal(t, credential.ErrNotFound, err)

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM credentials WHERE username = \$1\)`).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := repo.UsernameExists(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCredentialRepository_UpdateCredential(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewCredentialRepository(db)
	c := credential.Credential{ID: "c-1", ExternalID: "ext-1", UpdatedAt: now}

	// empty fields are sent as NULL so the stored values are kept
	mock.ExpectQuery(`UPDATE credentials SET`).
		WithArgs("c-1", nil, "ext-1", nil, false, now).
		WillReturnRows(credentialRows().AddRow("c-1", personID, "ada", "ada@bloom.test", []byte("hash"), false, "ext-1", now, now, nil))
	got, err := repo.UpdateCredential(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), got.PasswordHash)
	assert.True(t, got.LastLogin.IsZero())

	mock.ExpectQuery(`UPDATE credentials SET`).WillReturnError(sql.ErrNoRows)
	_, err = repo.UpdateCredential(context.Background(), c)
	assert.Equal(t, credential.ErrNotFound, err)
}

func TestGroupRepository_CreateGroup(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO observation_groups`).
		WithArgs(sqlmock.AnyArg(), "Math team", nil, personID, group.StatusScheduled, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO group_teachers`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT teacher_id FROM group_teachers WHERE group_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow(teacherID))
	mock.ExpectCommit()

	got, err := repo.CreateGroup(context.Background(), group.ObservationGroup{
		Name:       "Math team",
		CreatedBy:  personID,
		TeacherIDs: []string{teacherID, "3f1d2c4b-0000-4000-8000-000000000000"},
		Status:     group.StatusScheduled,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, []string{teacherID}, got.TeacherIDs)
}

func TestGroupRepository_CreateGroup_rollback(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO observation_groups`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO group_teachers`).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := sqlxrepos.NewGroupRepository(db).CreateGroup(context.Background(), group.ObservationGroup{Name: "Math team"})
	require.Error(t, err)
	assert.Equal(t, sql.ErrConnDone, errors.Cause(err))
}

func TestGroupRepository_ReplaceGroupTeachers(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewGroupRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM observation_groups WHERE id = \$1\)`).
		WithArgs(groupID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`DELETE FROM group_teachers WHERE group_id = \$1`).
		WithArgs(groupID).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO group_teachers`).
		WithArgs(groupID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE observation_groups SET updated_at`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.ReplaceGroupTeachers(context.Background(), groupID, []string{teacherID}))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()
	assert.Equal(t, group.ErrNotFound, repo.ReplaceGroupTeachers(context.Background(), groupID, nil))
}

func TestGroupRepository_ListGroupMembers(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewGroupRepository(db)

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`JOIN group_teachers gt ON gt.teacher_id = t.id WHERE gt.group_id = \$1`).
		WithArgs(groupID).
		WillReturnRows(teacherRows().
			AddRow(teacherID, personID, "Ada", "ada@bloom.test", nil, nil, 0, now, now))
	members, err := repo.ListGroupMembers(context.Background(), groupID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "ada@bloom.test", members[0].Email)

	_, err = repo.ListGroupMembers(context.Background(), "not-a-uuid")
	assert.Equal(t, group.ErrNotFound, err)
}

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "teacher_id", "group_id", "date", "time", "kind", "notes", "status",
		"notification_sent", "notification_sent_at", "reminder_sent", "reminder_sent_at", "created_at", "updated_at",
	})
}

func TestScheduleRepository_CreateAndGet(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewScheduleRepository(db)
	tid := teacherID
	date := time.Date(2024, 5, 14, 15, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO schedules`).
		WithArgs(sqlmock.AnyArg(), teacherID, nil, "2024-05-14", "09:30", schedule.KindFormal, "", schedule.StatusScheduled, false, nil, false, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s, err := repo.CreateSchedule(context.Background(), schedule.Schedule{
		TeacherID: &tid, Date: date, Time: "09:30", Kind: schedule.KindFormal, Status: schedule.StatusScheduled, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), s.Date)

	mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE id = \$1`).
		WithArgs(schedID).
		WillReturnRows(scheduleRows().AddRow(
			schedID, nil, groupID, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), "09:30", schedule.KindWalkThrough, "", schedule.StatusScheduled,
			true, now, false, nil, now, now,
		))
	got, err := repo.GetScheduleByID(context.Background(), schedID)
	require.NoError(t, err)
	assert.Nil(t, got.TeacherID)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, groupID, *got.GroupID)
	assert.True(t, got.NotificationSent)
	require.NotNil(t, got.NotificationSentAt)
	assert.Equal(t, now, *got.NotificationSentAt)
	assert.Nil(t, got.ReminderSentAt)
}

func TestScheduleRepository_QuerySchedules(t *testing.T) {
	db, mock := setupMockDB(t)
	date := time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)
	notSent := false

	mock.ExpectQuery(`SELECT (.+) FROM schedules WHERE date = \$1 AND status = \$2 AND reminder_sent = \$3 ORDER BY date, time`).
		WithArgs("2024-05-14", schedule.StatusScheduled, false).
		WillReturnRows(scheduleRows())

	got, err := sqlxrepos.NewScheduleRepository(db).QuerySchedules(context.Background(), schedule.QueryFilter{
		Date: &date, Status: schedule.StatusScheduled, ReminderSent: &notSent,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScheduleRepository_mark(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := sqlxrepos.NewScheduleRepository(db)

	mock.ExpectExec(`UPDATE schedules SET notification_sent = true, notification_sent_at = \$2`).
		WithArgs(schedID, now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkNotificationSent(context.Background(), schedID, now))

	mock.ExpectExec(`UPDATE schedules SET reminder_sent = true, reminder_sent_at = \$2`).
		WithArgs(schedID, now, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.Equal(t, schedule.ErrNotFound, repo.MarkReminderSent(context.Background(), schedID, now))
}
