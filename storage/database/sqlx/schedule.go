package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
)

const scheduleColumns = `id, teacher_id, group_id, date, time, kind, notes, status,
notification_sent, notification_sent_at, reminder_sent, reminder_sent_at, created_at, updated_at`

type scheduleRow struct {
	ID                 string      `db:"id"`
	TeacherID          null.String `db:"teacher_id"`
	GroupID            null.String `db:"group_id"`
	Date               time.Time   `db:"date"`
	Time               string      `db:"time"`
	Kind               string      `db:"kind"`
	Notes              string      `db:"notes"`
	Status             string      `db:"status"`
	NotificationSent   bool        `db:"notification_sent"`
	NotificationSentAt null.Time   `db:"notification_sent_at"`
	ReminderSent       bool        `db:"reminder_sent"`
	ReminderSentAt     null.Time   `db:"reminder_sent_at"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (r scheduleRow) schedule() schedule.Schedule {
	return schedule.Schedule{
		ID:                 r.ID,
		TeacherID:          r.TeacherID.Ptr(),
		GroupID:            r.GroupID.Ptr(),
		Date:               schedule.CivilDate(r.Date),
		Time:               r.Time,
		Kind:               r.Kind,
		Notes:              r.Notes,
		Status:             r.Status,
		NotificationSent:   r.NotificationSent,
		NotificationSentAt: utcPtr(r.NotificationSentAt),
		ReminderSent:       r.ReminderSent,
		ReminderSentAt:     utcPtr(r.ReminderSentAt),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	s.ID = uuid.NewString()
	s.Date = schedule.CivilDate(s.Date)
	_, err := repo.db.ExecContext(
		ctx,
		"INSERT INTO schedules ("+scheduleColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)",
		s.ID, null.StringFromPtr(s.TeacherID), null.StringFromPtr(s.GroupID),
		s.Date.Format(schedule.DateLayout), s.Time, s.Kind, s.Notes, s.Status,
		s.NotificationSent, null.TimeFromPtr(s.NotificationSentAt),
		s.ReminderSent, null.TimeFromPtr(s.ReminderSentAt),
		s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "inserting schedule")
	}
	return s, nil
}

func (repo *scheduleRepository) GetScheduleByID(ctx context.Context, id string) (schedule.Schedule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	var row scheduleRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+scheduleColumns+" FROM schedules WHERE id = $1", id); err != nil {
		return schedule.Schedule{}, notFound(err, schedule.ErrNotFound, "selecting schedule")
	}
	return row.schedule(), nil
}

func (repo *scheduleRepository) QuerySchedules(ctx context.Context, filter schedule.QueryFilter) ([]schedule.Schedule, error) {
	conds := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.Date != nil {
		args = append(args, schedule.CivilDate(*filter.Date).Format(schedule.DateLayout))
		conds = append(conds, fmt.Sprintf("date = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ReminderSent != nil {
		args = append(args, *filter.ReminderSent)
		conds = append(conds, fmt.Sprintf("reminder_sent = $%d", len(args)))
	}

	q := "SELECT " + scheduleColumns + " FROM schedules"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date, time"

	rows := make([]scheduleRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting schedules")
	}
	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, row.schedule())
	}
	return schedules, nil
}

func (repo *scheduleRepository) MarkNotificationSent(ctx context.Context, id string, at time.Time) error {
	return repo.mark(ctx, "notification_sent = true, notification_sent_at = $2", id, at)
}

func (repo *scheduleRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	return repo.mark(ctx, "reminder_sent = true, reminder_sent_at = $2", id, at)
}

// mark only ever sets a delivery flag, never clears it.
func (repo *scheduleRepository) mark(ctx context.Context, set, id string, at time.Time) error {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "UPDATE schedules SET "+set+", updated_at = $3 WHERE id = $1", id, at.UTC(), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "marking schedule")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "marking schedule")
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
