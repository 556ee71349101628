package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"

	sendgridAPI = sendgrid.API // mockable
)

type SendgridTransport struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.MailTransport = (*SendgridTransport)(nil)

func NewSendgridTransport(conf *core.Config, logger core.Logger) *SendgridTransport {
	return &SendgridTransport{
		key:        conf.Mail.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (t *SendgridTransport) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = t.subjPrefix + msg.Subject

	for _, to := range msg.To {
		p.AddTos(getSGEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(getSGEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(getSGEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(t.from)
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func getSGEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (t *SendgridTransport) Send(ctx context.Context, msg core.EmailMessage) error {
	if err := checkMessage(msg); err != nil {
		return err
	}

	req := sendgrid.GetRequest(t.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(t.prepare(msg))

	var res *rest.Response
	err := runWithContext(ctx, func() (err error) {
		res, err = sendgridAPI(req)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	if res.StatusCode >= http.StatusBadRequest {
		t.logger.Warn(fmt.Sprintf("sendgrid rejected email - status: %d - body: %s", res.StatusCode, res.Body))
		return errors.Errorf("sendgrid status %d", res.StatusCode)
	}
	return nil
}
