package mailer

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"strconv"
	texttmpl "text/template"
	"time"

	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
	"github.com/Nanikworkforce/TET-Bloom/core/schedule"
)

// Kind names a composable message; it matches the notification configuration keys.
type Kind string

const (
	ScheduledNotice Kind = core.NoticeScheduled
	ReminderNotice  Kind = core.NoticeReminder
	WelcomeNotice   Kind = core.NoticeWelcome
)

const (
	DefaultObserver  = "Administrator"
	DefaultRecipient = "Teacher"
	NotSpecified     = "Not specified"

	dateLayout = "Monday, January 2, 2006"
	timeLayout = "3:04 PM"
)

var (
	AllKinds = []Kind{ScheduledNotice, ReminderNotice, WelcomeNotice}

	ErrUnknownKind = errors.New("unknown mail kind")

	//go:embed templates/*
	templatesFS embed.FS
)

// Fields carries the raw values a message is composed from. Zero values are defaulted.
type Fields struct {
	RecipientName   string
	ObserverName    string
	Date            time.Time
	Time            string // HH:MM
	ObservationKind string
	Subject         string
	Grade           string
	Notes           string
	GroupName       string
	DaysUntil       int

	// welcome only
	Email             string
	TemporaryPassword string
}

type Composed struct {
	Subject string
	Text    string
	HTML    string
}

type view struct {
	AppName       string
	SiteURL       string
	Title         string
	RecipientName string
	ObserverName  string
	Date          string
	Time          string
	Type          string
	Subject       string
	Grade         string
	Notes         string
	GroupName     string
	Timing        string
	SubjectTiming string

	Email             string
	TemporaryPassword string
}

type entry struct {
	subject *texttmpl.Template
	text    *texttmpl.Template
	html    *htmltmpl.Template
}

// Composer renders message content. It holds no state besides parsed templates and is safe for concurrent use.
type Composer struct {
	appName string
	siteURL string
	entries map[Kind]entry
}

func NewComposer(conf *core.Config) (*Composer, error) {
	c := &Composer{
		appName: conf.AppName,
		siteURL: conf.SiteURL,
		entries: make(map[Kind]entry, len(AllKinds)),
	}
	for _, kind := range AllKinds {
		name := string(kind)
		subj, err := texttmpl.New(name + ".subject").Option("missingkey=error").Parse(conf.Notification(name).Subject)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s subject", name)
		}
		text, err := texttmpl.ParseFS(templatesFS, "templates/_base.txt", "templates/"+name+".txt")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s text template", name)
		}
		html, err := htmltmpl.ParseFS(templatesFS, "templates/_base.gohtml", "templates/"+name+".gohtml")
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s html template", name)
		}
		c.entries[kind] = entry{
			subject: subj,
			text:    text.Option("missingkey=error"),
			html:    html.Option("missingkey=error"),
		}
	}
	return c, nil
}

// Compose renders the subject, plain text and HTML bodies of a message of the given kind.
func (c *Composer) Compose(kind Kind, f Fields) (Composed, error) {
	e, ok := c.entries[kind]
	if !ok {
		return Composed{}, errors.Wrap(ErrUnknownKind, string(kind))
	}
	v := c.newView(f)

	var buff bytes.Buffer
	if err := e.subject.Execute(&buff, v); err != nil {
		return Composed{}, errors.Wrap(err, "rendering subject")
	}
	msg := Composed{Subject: buff.String()}
	v.Title = msg.Subject

	buff.Reset()
	if err := e.text.ExecuteTemplate(&buff, "base", v); err != nil {
		return Composed{}, errors.Wrap(err, "rendering text")
	}
	msg.Text = buff.String()

	buff.Reset()
	if err := e.html.ExecuteTemplate(&buff, "base", v); err != nil {
		return Composed{}, errors.Wrap(err, "rendering html")
	}
	msg.HTML = buff.String()
	return msg, nil
}

func (c *Composer) newView(f Fields) view {
	return view{
		AppName:           c.appName,
		SiteURL:           c.siteURL,
		RecipientName:     orDefault(f.RecipientName, DefaultRecipient),
		ObserverName:      orDefault(f.ObserverName, DefaultObserver),
		Date:              FormatDate(f.Date),
		Time:              FormatTime(f.Time),
		Type:              orDefault(schedule.KindLabel(core.CleanString(f.ObservationKind)), NotSpecified),
		Subject:           orDefault(f.Subject, NotSpecified),
		Grade:             orDefault(f.Grade, NotSpecified),
		Notes:             core.CleanString(f.Notes),
		GroupName:         core.CleanString(f.GroupName),
		Timing:            TimingText(f.DaysUntil),
		SubjectTiming:     SubjectTiming(f.DaysUntil),
		Email:             f.Email,
		TemporaryPassword: f.TemporaryPassword,
	}
}

// TimingText describes when an observation happens, relative to today.
// Past observations are due "in 0 days".
func TimingText(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	}
	return "in " + strconv.Itoa(max(days, 0)) + " days"
}

// SubjectTiming is the capitalised variant of TimingText used in subjects.
func SubjectTiming(days int) string {
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	}
	return "in " + strconv.Itoa(max(days, 0)) + " Days"
}

func FormatDate(d time.Time) string {
	if d.IsZero() {
		return NotSpecified
	}
	return d.Format(dateLayout)
}

// FormatTime turns a 24-hour HH:MM value into a 12-hour clock. Unparsable values are returned as is.
func FormatTime(hhmm string) string {
	hhmm = core.CleanString(hhmm)
	if hhmm == "" {
		return NotSpecified
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format(timeLayout)
}

func orDefault(s, def string) string {
	if s = core.CleanString(s); s != "" {
		return s
	}
	return def
}
