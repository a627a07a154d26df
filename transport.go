package drip

import "context"

const UserAgent = "InteractiveSolutions/GoDrip-1.0"

// Message is a fully composed outbound email. InReplyTo and References carry
// the thread continuity headers and may be empty on the first send.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	ReplyTo string `json:"replyTo"`

	Subject string `json:"subject"`
	Html    string `json:"html"`
	Text    string `json:"text"`

	InReplyTo  string   `json:"inReplyTo"`
	References []string `json:"references"`
}

// MailTransport hands a message to the provider and returns the provider's
// message id. Transports report failures, they never retry internally.
type MailTransport interface {
	Send(ctx context.Context, msg Message) (messageId string, err error)
}
