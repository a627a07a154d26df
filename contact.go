package drip

import "time"

type ContactStatus string

const (
	ContactPending      ContactStatus = "pending"
	ContactSent         ContactStatus = "sent"
	ContactReplied      ContactStatus = "replied"
	ContactBounced      ContactStatus = "bounced"
	ContactUnsubscribed ContactStatus = "unsubscribed"
)

// Fields holds the column values a contact was imported with. Keys are
// campaign-defined, there is no fixed schema.
type Fields map[string]string

type Contact struct {
	Id         string `json:"id"`
	CampaignId string `json:"campaignId"`

	Email  string        `json:"email"`
	Fields Fields        `json:"fields"`
	Status ContactStatus `json:"status"`

	// LastMessageId is the provider id of the most recent message that was
	// actually delivered; follow-ups thread off it.
	LastMessageId string     `json:"lastMessageId"`
	LastSentAt    *time.Time `json:"lastSentAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Suppressed reports whether a contact must never receive another send.
func (c Contact) Suppressed() bool {
	return c.Status == ContactReplied || c.Status == ContactUnsubscribed
}
