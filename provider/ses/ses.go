package ses

import (
	"bytes"
	"context"
	"fmt"
	"mime/quotedprintable"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"

	"github.com/interactive-solutions/go-drip"
)

type sesTransport struct {
	ses *ses.SES

	charset string
}

func NewSesTransport(sess *session.Session) drip.MailTransport {
	return &sesTransport{
		ses:     ses.New(sess),
		charset: "UTF-8",
	}
}

// Send uses SendRawEmail: the structured SES API has no way to attach the
// In-Reply-To and References headers that thread continuity needs.
func (transport *sesTransport) Send(ctx context.Context, message drip.Message) (string, error) {
	raw, err := buildRawMessage(message, transport.charset)
	if err != nil {
		return "", err
	}

	input := &ses.SendRawEmailInput{
		Source: aws.String(message.From),
		Destinations: []*string{
			aws.String(message.To),
		},
		RawMessage: &ses.RawMessage{
			Data: raw,
		},
	}

	output, err := transport.ses.SendRawEmailWithContext(ctx, input)
	if err != nil {
		return "", err
	}

	return aws.StringValue(output.MessageId), nil
}

func buildRawMessage(message drip.Message, charset string) ([]byte, error) {
	buf := &bytes.Buffer{}
	boundary := "drip-alt-boundary"

	fmt.Fprintf(buf, "From: %s\r\n", message.From)
	fmt.Fprintf(buf, "To: %s\r\n", message.To)

	if message.ReplyTo != "" {
		fmt.Fprintf(buf, "Reply-To: %s\r\n", message.ReplyTo)
	}

	if message.InReplyTo != "" {
		fmt.Fprintf(buf, "In-Reply-To: %s\r\n", message.InReplyTo)
	}

	if len(message.References) > 0 {
		fmt.Fprintf(buf, "References: %s\r\n", strings.Join(message.References, " "))
	}

	fmt.Fprintf(buf, "Subject: %s\r\n", message.Subject)
	fmt.Fprintf(buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(buf, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	fmt.Fprintf(buf, "\r\n")

	if err := writePart(buf, boundary, "text/plain", charset, message.Text); err != nil {
		return nil, err
	}

	if err := writePart(buf, boundary, "text/html", charset, message.Html); err != nil {
		return nil, err
	}

	fmt.Fprintf(buf, "--%s--\r\n", boundary)

	return buf.Bytes(), nil
}

func writePart(buf *bytes.Buffer, boundary, contentType, charset, body string) error {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s; charset=%s\r\n", contentType, charset)
	fmt.Fprintf(buf, "Content-Transfer-Encoding: quoted-printable\r\n")
	fmt.Fprintf(buf, "\r\n")

	writer := quotedprintable.NewWriter(buf)
	if _, err := writer.Write([]byte(body)); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	fmt.Fprintf(buf, "\r\n")

	return nil
}
