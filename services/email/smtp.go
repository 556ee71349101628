package emailsvc

import (
	"context"
	"net/mail"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

var dialAndSend = func(d *gomail.Dialer, m *gomail.Message) error { return d.DialAndSend(m) } // mockable

// SMTPTransport sends through an SMTP relay, one connection per message.
type SMTPTransport struct {
	dialer     *gomail.Dialer
	from       mail.Address
	subjPrefix string
}

var _ core.MailTransport = (*SMTPTransport)(nil)

func NewSMTPTransport(conf *core.Config) *SMTPTransport {
	return &SMTPTransport{
		dialer:     gomail.NewDialer(conf.Mail.SMTPHost, conf.Mail.SMTPPort, conf.Mail.SMTPUser, conf.Mail.SMTPPassword),
		from:       conf.DefaultFromEmail,
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (t *SMTPTransport) message(msg core.EmailMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.from.Address, t.from.Name)
	m.SetHeader("To", formatAddresses(m, msg.To)...)
	if len(msg.Cc) > 0 {
		m.SetHeader("Cc", formatAddresses(m, msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", formatAddresses(m, msg.Bcc)...)
	}
	m.SetHeader("Subject", t.subjPrefix+msg.Subject)
	m.SetBody("text/plain", msg.TextContent)
	if msg.HTMLContent != "" {
		m.AddAlternative("text/html", msg.HTMLContent)
	}
	return m
}

func formatAddresses(m *gomail.Message, addrs []mail.Address) []string {
	formatted := make([]string, 0, len(addrs))
	for _, a := range addrs {
		formatted = append(formatted, m.FormatAddress(a.Address, a.Name))
	}
	return formatted
}

func (t *SMTPTransport) Send(ctx context.Context, msg core.EmailMessage) error {
	if err := checkMessage(msg); err != nil {
		return err
	}
	m := t.message(msg)
	err := runWithContext(ctx, func() error { return dialAndSend(t.dialer, m) })
	return errors.Wrap(err, "sending email over smtp")
}
