package emailsvc

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

var ErrUnknownBackend = errors.New("unknown mail backend")

// NewTransport returns the MailTransport selected by conf.Mail.Backend.
// Console output goes to stdout.
func NewTransport(conf *core.Config, logger core.Logger) (core.MailTransport, error) {
	switch conf.Mail.Backend {
	case core.MailConsole, "":
		return NewConsoleTransport(conf, os.Stdout), nil
	case core.MailSendgrid:
		if conf.Mail.SendgridAPIKey == "" {
			return nil, errors.New("mail.sendgridAPIKey is required by the sendgrid backend")
		}
		return NewSendgridTransport(conf, logger), nil
	case core.MailSMTP:
		if conf.Mail.SMTPHost == "" {
			return nil, errors.New("mail.smtpHost is required by the smtp backend")
		}
		return NewSMTPTransport(conf), nil
	case core.MailDisabled:
		return DisabledTransport{}, nil
	}
	return nil, errors.Wrap(ErrUnknownBackend, conf.Mail.Backend)
}

// DisabledTransport refuses every message with core.ErrMailDisabled.
type DisabledTransport struct{}

var _ core.MailTransport = DisabledTransport{}

func (DisabledTransport) Send(context.Context, core.EmailMessage) error {
	return core.ErrMailDisabled
}

// errNothingToSend is returned for messages without recipients or content.
var errNothingToSend = errors.New("message has no recipients or no content")

func checkMessage(msg core.EmailMessage) error {
	if !msg.HasRecipients() || !msg.HasContent() {
		return errNothingToSend
	}
	return nil
}

// runWithContext runs a blocking send and gives up when ctx is done.
// The send keeps running in the background in that case; its result is dropped.
func runWithContext(ctx context.Context, send func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- send() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
