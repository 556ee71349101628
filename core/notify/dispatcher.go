package notify

import (
	"context"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/group"
	"github.com/Nanikworkforce/TET-Bloom/core/mailer"
	"github.com/Nanikworkforce/TET-Bloom/core/person"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
	"github.com/Nanikworkforce/TET-Bloom/core/teacher"
)

// ErrDispatchInProgress is returned when another dispatch holds the lock of the same schedule.
var ErrDispatchInProgress = errors.New("a dispatch for this schedule is already in progress")

var (
	NowFunc = time.Now // mockable

	defaultMailTimeout = 10 * time.Second
)

// Recipient statuses
const (
	RecipientSent    = "sent"
	RecipientFailed  = "failed"
	RecipientSkipped = "skipped"
)

type RecipientOutcome struct {
	TeacherID string `json:"teacher_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// DispatchResult summarises one fan-out.
// Attempted counts the sends handed to the transport; Skipped is set when the notice kind is disabled.
type DispatchResult struct {
	Attempted  int                `json:"attempted"`
	Succeeded  int                `json:"succeeded"`
	Failed     int                `json:"failed"`
	Skipped    bool               `json:"skipped"`
	Recipients []RecipientOutcome `json:"recipients"`
}

// ReminderRun summarises a SendDueReminders pass.
type ReminderRun struct {
	Date    time.Time `json:"date"`
	Due     int       `json:"due"`
	Sent    int       `json:"sent"`
	NotSent int       `json:"not_sent"`
	Errors  int       `json:"errors"`
}

type Dispatcher struct {
	conf        *core.Config
	logger      core.Logger
	schedules   schedule.Repository
	teachers    teacher.Repository
	groups      group.Repository
	people      person.Repository
	composer    *mailer.Composer
	transport   core.MailTransport
	locker      core.Locker
	mailTimeout time.Duration
}

func NewDispatcher(
	conf *core.Config,
	logger core.Logger,
	schedules schedule.Repository,
	teachers teacher.Repository,
	groups group.Repository,
	people person.Repository,
	composer *mailer.Composer,
	transport core.MailTransport,
	locker core.Locker,
) *Dispatcher {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(schedules, "schedules"),
		vala.IsNotNil(teachers, "teachers"),
		vala.IsNotNil(groups, "groups"),
		vala.IsNotNil(people, "people"),
		vala.IsNotNil(composer, "composer"),
		vala.IsNotNil(transport, "transport"),
		vala.IsNotNil(locker, "locker"),
	).CheckAndPanic()

	timeout := conf.Mail.Timeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	return &Dispatcher{
		conf:        conf,
		logger:      logger,
		schedules:   schedules,
		teachers:    teachers,
		groups:      groups,
		people:      people,
		composer:    composer,
		transport:   transport,
		locker:      locker,
		mailTimeout: timeout,
	}
}

// DispatchForSchedule tells every recipient of s that the observation was scheduled.
func (d *Dispatcher) DispatchForSchedule(ctx context.Context, s schedule.Schedule) (DispatchResult, error) {
	return d.dispatch(ctx, s, mailer.ScheduledNotice, 0)
}

// DispatchReminder reminds every recipient of s that the observation is daysUntil days away.
// sent is true when at least one message was delivered. Past-due schedules are reminded as due in 0 days.
func (d *Dispatcher) DispatchReminder(ctx context.Context, s schedule.Schedule, daysUntil int) (bool, error) {
	res, err := d.dispatch(ctx, s, mailer.ReminderNotice, daysUntil)
	return res.Succeeded > 0, err
}

// SendDueReminders reminds every scheduled observation taking place daysAhead days after today
// whose reminder was not sent yet. Failures on one schedule do not stop the others.
func (d *Dispatcher) SendDueReminders(ctx context.Context, daysAhead int, today time.Time) (ReminderRun, error) {
	if daysAhead < 0 {
		daysAhead = 0
	}
	date := schedule.CivilDate(today).AddDate(0, 0, daysAhead)
	notSent := false
	due, err := d.schedules.QuerySchedules(ctx, schedule.QueryFilter{
		Date:         &date,
		Status:       schedule.StatusScheduled,
		ReminderSent: &notSent,
	})
	if err != nil {
		return ReminderRun{}, errors.Wrap(err, "querying due schedules")
	}

	run := ReminderRun{Date: date, Due: len(due)}
	for _, s := range due {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		sent, err := d.DispatchReminder(ctx, s, daysAhead)
		switch {
		case err != nil:
			run.Errors++
			d.logger.Error("sending reminder for schedule "+s.ID, err)
		case sent:
			run.Sent++
		default:
			run.NotSent++
		}
	}
	return run, nil
}

type target struct {
	recipients []teacher.Teacher
	observer   string
	groupName  string
}

func (d *Dispatcher) dispatch(ctx context.Context, s schedule.Schedule, kind mailer.Kind, daysUntil int) (DispatchResult, error) {
	op := "notify." + string(kind)

	if !d.conf.Notification(string(kind)).Enabled {
		d.logger.Debug(string(kind) + " disabled, skipping schedule " + s.ID)
		return DispatchResult{Skipped: true, Recipients: []RecipientOutcome{}}, nil
	}

	unlock, err := d.locker.TryLock(ctx, "dispatch:schedule:"+s.ID)
	if err != nil {
		if errors.Cause(err) == core.ErrLocked {
			return DispatchResult{}, ErrDispatchInProgress
		}
		return DispatchResult{}, errors.Wrap(err, "locking schedule")
	}
	defer unlock()

	tgt, err := d.resolve(ctx, op, s)
	if err != nil {
		return DispatchResult{}, err
	}

	res := DispatchResult{Recipients: make([]RecipientOutcome, 0, len(tgt.recipients))}
	if len(tgt.recipients) == 0 {
		return res, nil
	}

	attemptedAt := NowFunc().UTC()
	for _, t := range tgt.recipients {
		out := d.sendOne(ctx, s, kind, t, tgt, daysUntil)
		switch out.Status {
		case RecipientSent:
			res.Attempted++
			res.Succeeded++
		case RecipientFailed:
			res.Attempted++
			res.Failed++
		}
		res.Recipients = append(res.Recipients, out)
	}

	// recipients without an email, or a disabled transport, do not count as an attempt
	if res.Attempted == 0 {
		return res, nil
	}
	if err := d.markSent(ctx, s.ID, kind, attemptedAt); err != nil {
		return res, core.NewError(core.KindStorage, op, err)
	}
	return res, nil
}

func (d *Dispatcher) resolve(ctx context.Context, op string, s schedule.Schedule) (target, error) {
	tgt := target{observer: mailer.DefaultObserver}

	switch {
	case s.TeacherID != nil:
		t, err := d.teachers.GetTeacherByID(ctx, *s.TeacherID)
		if err != nil {
			if errors.Cause(err) == teacher.ErrNotFound {
				return tgt, core.NewError(core.KindNotFound, op, err)
			}
			return tgt, core.NewError(core.KindStorage, op, errors.Wrap(err, "finding teacher"))
		}
		tgt.recipients = []teacher.Teacher{t}

	case s.GroupID != nil:
		g, err := d.groups.GetGroupByID(ctx, *s.GroupID)
		if err != nil {
			if errors.Cause(err) == group.ErrNotFound {
				return tgt, core.NewError(core.KindNotFound, op, err)
			}
			return tgt, core.NewError(core.KindStorage, op, errors.Wrap(err, "finding group"))
		}
		members, err := d.groups.ListGroupMembers(ctx, g.ID)
		if err != nil {
			return tgt, core.NewError(core.KindStorage, op, errors.Wrap(err, "listing group members"))
		}
		tgt.recipients = members
		tgt.groupName = g.Name
		if g.CreatedBy != "" {
			if creator, err := d.people.GetPersonByID(ctx, g.CreatedBy); err == nil && creator.Name != "" {
				tgt.observer = creator.Name
			}
		}
	}
	return tgt, nil
}

func (d *Dispatcher) sendOne(
	ctx context.Context,
	s schedule.Schedule,
	kind mailer.Kind,
	t teacher.Teacher,
	tgt target,
	daysUntil int,
) RecipientOutcome {
	out := RecipientOutcome{TeacherID: t.ID, Name: t.Name, Email: t.Email}
	if core.CleanString(t.Email) == "" {
		out.Status = RecipientSkipped
		return out
	}

	content, err := d.composer.Compose(kind, mailer.Fields{
		RecipientName:   t.Name,
		ObserverName:    tgt.observer,
		Date:            s.Date,
		Time:            s.Time,
		ObservationKind: s.Kind,
		Subject:         t.Subject,
		Grade:           t.Grade,
		Notes:           s.Notes,
		GroupName:       tgt.groupName,
		DaysUntil:       daysUntil,
	})
	if err != nil {
		d.logger.Error("composing "+string(kind)+" for "+t.Email, err)
		out.Status, out.Error = RecipientFailed, err.Error()
		return out
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.mailTimeout)
	defer cancel()

	err = d.transport.Send(sendCtx, core.EmailMessage{
		To:          []mail.Address{{Name: t.Name, Address: t.Email}},
		Subject:     content.Subject,
		TextContent: content.Text,
		HTMLContent: content.HTML,
	})
	switch errors.Cause(err) {
	case nil:
		out.Status = RecipientSent
	case core.ErrMailDisabled:
		out.Status = RecipientSkipped
	default:
		d.logger.Error("sending "+string(kind)+" to "+t.Email, core.NewError(core.KindTransport, "notify.send", err))
		out.Status, out.Error = RecipientFailed, err.Error()
	}
	return out
}

func (d *Dispatcher) markSent(ctx context.Context, scheduleID string, kind mailer.Kind, at time.Time) error {
	switch kind {
	case mailer.ScheduledNotice:
		return errors.Wrap(d.schedules.MarkNotificationSent(ctx, scheduleID, at), "marking notification sent")
	case mailer.ReminderNotice:
		return errors.Wrap(d.schedules.MarkReminderSent(ctx, scheduleID, at), "marking reminder sent")
	}
	return nil
}
