package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = uuid.NewString()
	s.Date = schedule.CivilDate(s.Date)
	stored := s
	repo.db.schedules[s.ID] = &stored
	return s, nil
}

func (repo *scheduleRepository) GetScheduleByID(_ context.Context, id string) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.db.schedules[id]; ok {
		return *s, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) QuerySchedules(_ context.Context, filter schedule.QueryFilter) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schedules := make([]schedule.Schedule, 0)
	for _, s := range repo.db.schedules {
		if filter.Date != nil && !s.Date.Equal(schedule.CivilDate(*filter.Date)) {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.ReminderSent != nil && s.ReminderSent != *filter.ReminderSent {
			continue
		}
		schedules = append(schedules, *s)
	}
	sort.Slice(schedules, func(i, j int) bool {
		if !schedules[i].Date.Equal(schedules[j].Date) {
			return schedules[i].Date.Before(schedules[j].Date)
		}
		return schedules[i].Time < schedules[j].Time
	})
	return schedules, nil
}

func (repo *scheduleRepository) MarkNotificationSent(_ context.Context, id string, at time.Time) error {
	return repo.mark(id, func(s *schedule.Schedule) {
		s.NotificationSent = true
		s.NotificationSentAt = &at
	})
}

func (repo *scheduleRepository) MarkReminderSent(_ context.Context, id string, at time.Time) error {
	return repo.mark(id, func(s *schedule.Schedule) {
		s.ReminderSent = true
		s.ReminderSentAt = &at
	})
}

func (repo *scheduleRepository) mark(id string, set func(s *schedule.Schedule)) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.schedules[id]
	if !ok {
		return schedule.ErrNotFound
	}
	set(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}
