package drip

import "time"

// SendJob is one pending delivery for a (campaign, contact, sequence) tuple.
// A claimed job carries a lock until LockedUntil; a job whose execution
// errored keeps its row with LastError set so operators can inspect it.
type SendJob struct {
	Id string `json:"id"`

	CampaignId string `json:"campaignId"`
	ContactId  string `json:"contactId"`
	Sequence   int    `json:"sequence"`

	DueAt       time.Time  `json:"dueAt"`
	LockedUntil *time.Time `json:"lockedUntil"`
	LastError   string     `json:"lastError"`

	CreatedAt time.Time `json:"createdAt"`
}
