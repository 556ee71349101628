package emailsvc

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

// ConsoleTransport writes each message as a MIME document instead of sending it. Used in development.
type ConsoleTransport struct {
	defaultFromEmail mail.Address
	subjPrefix       string

	mu  sync.Mutex
	out io.Writer
}

var _ core.MailTransport = (*ConsoleTransport)(nil)

func NewConsoleTransport(conf *core.Config, out io.Writer) *ConsoleTransport {
	return &ConsoleTransport{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
		out:              out,
	}
}

func (t *ConsoleTransport) Send(ctx context.Context, msg core.EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkMessage(msg); err != nil {
		return err
	}

	body, err := t.render(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = io.WriteString(t.out, body)
	return errors.Wrap(err, "writing email")
}

func (t *ConsoleTransport) render(msg core.EmailMessage) (string, error) {
	body := new(strings.Builder)

	// Write mail header
	_, _ = fmt.Fprintf(body, "From: %s\r\n", t.defaultFromEmail.String())
	_, _ = fmt.Fprint(body, "MIME-Version: 1.0\r\n")
	_, _ = fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	_, _ = fmt.Fprintf(body, "Subject: %s\r\n", t.subjPrefix+msg.Subject)
	_, _ = fmt.Fprintf(body, "To: %s\r\n", core.JoinAddresses(msg.To))
	if len(msg.Cc) > 0 {
		_, _ = fmt.Fprintf(body, "CC: %s\r\n", core.JoinAddresses(msg.Cc))
	}
	if len(msg.Bcc) > 0 {
		_, _ = fmt.Fprintf(body, "BCC: %s\r\n", core.JoinAddresses(msg.Bcc))
	}

	altW := multipart.NewWriter(body)
	_, _ = fmt.Fprintf(body, "Content-Type: multipart/alternative; boundary=%s\r\n", altW.Boundary())
	_, _ = fmt.Fprint(body, "\r\n")

	w, err := altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return "", errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(w, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		w, err = altW.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return "", errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(w, "%s\r\n", msg.HTMLContent)
	}

	if err := altW.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart writer")
	}
	_, _ = fmt.Fprint(body, "\r\n")
	return body.String(), nil
}
