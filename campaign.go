package drip

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignRunning   CampaignStatus = "running"
	CampaignCompleted CampaignStatus = "completed"
)

// Template is the message sent at sequence 0 of a campaign. Subject is
// required, html and text may be empty.
type Template struct {
	Subject string `json:"subject"`
	Html    string `json:"html"`
	Text    string `json:"text"`
}

type Settings struct {
	FromEmail string `json:"fromEmail"`
	ReplyTo   string `json:"replyTo"`
	BatchSize int    `json:"batchSize"`
}

type Campaign struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	MainTemplate Template `json:"mainTemplate"`
	Settings     Settings `json:"settings"`

	Status        CampaignStatus `json:"status"`
	ContactsCount int            `json:"contactsCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const DefaultBatchSize = 50
