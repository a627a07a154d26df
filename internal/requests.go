package internal

import "time"

type CreateCampaignRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	MainTemplate struct {
		Subject string `json:"subject"`
		Html    string `json:"html"`
		Text    string `json:"text"`
	} `json:"mainTemplate"`

	Settings struct {
		FromEmail string `json:"fromEmail"`
		ReplyTo   string `json:"replyTo"`
		BatchSize int    `json:"batchSize"`
	} `json:"settings"`
}

type PreviewRequest struct {
	Subject string `json:"subject"`
	Html    string `json:"html"`
	Text    string `json:"text"`

	SampleFields map[string]string `json:"sampleFields"`
}

type ImportContactRow struct {
	Email  string            `json:"email"`
	Fields map[string]string `json:"fields"`
}

type ImportContactsRequest struct {
	UpdateExisting bool               `json:"updateExisting"`
	Rows           []ImportContactRow `json:"rows"`
}

type SendCampaignRequest struct {
	BatchSize int `json:"batchSize"`
}

type CreateFollowUpRequest struct {
	Sequence *int `json:"sequence"`

	Subject string `json:"subject"`
	Html    string `json:"html"`
	Text    string `json:"text"`

	SendAt       *time.Time `json:"sendAt"`
	DelayMinutes *int       `json:"delayMinutes"`
	Enabled      *bool      `json:"enabled"`
}

type UpdateFollowUpRequest struct {
	Sequence *int `json:"sequence"`

	Subject *string `json:"subject"`
	Html    *string `json:"html"`
	Text    *string `json:"text"`

	SendAt       *time.Time `json:"sendAt"`
	DelayMinutes *int       `json:"delayMinutes"`
	Enabled      *bool      `json:"enabled"`
}
