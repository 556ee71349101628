package core

import (
	"context"
	"net/mail"
	"strings"

	"github.com/pkg/errors"
)

// ErrMailDisabled is returned by a MailTransport whose delivery is switched off by configuration.
var ErrMailDisabled = errors.New("mail delivery is disabled")

type (
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}

	// MailTransport delivers a single composed message.
	MailTransport interface {
		Send(ctx context.Context, msg EmailMessage) error
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// JoinAddresses formats addrs as a comma separated header value.
func JoinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}
