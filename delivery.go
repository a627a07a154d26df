package drip

import "time"

type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// DeliveryRecord is one line of the append-only send audit log. Records are
// never updated, a retried job writes a new one.
type DeliveryRecord struct {
	Id         string `json:"id"`
	CampaignId string `json:"campaignId"`
	ContactId  string `json:"contactId"`
	Sequence   int    `json:"sequence"`

	SentAt    time.Time      `json:"sentAt"`
	Status    DeliveryStatus `json:"status"`
	MessageId string         `json:"messageId"`
	Error     string         `json:"error"`
}
