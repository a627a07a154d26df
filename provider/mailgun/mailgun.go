package mailgun

import (
	"context"
	"strings"

	"github.com/mailgun/mailgun-go/v3"
	"github.com/pkg/errors"

	"github.com/interactive-solutions/go-drip"
)

type MailgunOption func(t *mailgunTransport)

// SetFrom configures the sender used when a message carries no from address.
func SetFrom(from string) MailgunOption {
	return func(t *mailgunTransport) {
		t.from = from
	}
}

type mailgunTransport struct {
	mg mailgun.Mailgun

	from string
}

func NewMailgunTransport(mailgunClient mailgun.Mailgun, options ...MailgunOption) drip.MailTransport {
	t := &mailgunTransport{
		mg: mailgunClient,
	}

	for _, option := range options {
		option(t)
	}

	return t
}

func (t *mailgunTransport) Send(ctx context.Context, message drip.Message) (string, error) {
	from := message.From
	if from == "" {
		from = t.from
	}

	msg := t.mg.NewMessage(from, message.Subject, message.Text, message.To)

	if message.Html != "" {
		msg.SetHtml(message.Html)
	}

	if message.ReplyTo != "" {
		msg.SetReplyTo(message.ReplyTo)
	}

	if message.InReplyTo != "" {
		msg.AddHeader("In-Reply-To", message.InReplyTo)
	}

	if len(message.References) > 0 {
		msg.AddHeader("References", strings.Join(message.References, " "))
	}

	_, id, err := t.mg.Send(ctx, msg)
	if err != nil {
		return "", errors.Wrap(err, "Failed to send message through mailgun")
	}

	return id, nil
}
