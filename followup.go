package drip

import "time"

// DefaultDelayMinutes is used when a follow-up has neither an absolute send
// time nor a relative delay.
const DefaultDelayMinutes = 24 * 60

// FollowUp is one timed step of a campaign. Sequence starts at 1, sequence 0
// is always the campaign's main template and never stored as a follow-up.
type FollowUp struct {
	Id         string `json:"id"`
	CampaignId string `json:"campaignId"`

	Sequence int `json:"sequence"`

	// Subject falls back to the campaign's main subject when empty. Html and
	// text do not inherit, they default to empty bodies.
	Subject string `json:"subject"`
	Html    string `json:"html"`
	Text    string `json:"text"`

	// SendAt wins over DelayMinutes when set.
	SendAt       *time.Time `json:"sendAt"`
	DelayMinutes int        `json:"delayMinutes"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DueAt computes when this follow-up should fire, relative to now. Past
// absolute times are clamped forward by grace instead of firing immediately.
func (f FollowUp) DueAt(now time.Time, grace time.Duration) time.Time {
	if f.SendAt != nil {
		if !f.SendAt.After(now) {
			return now.Add(grace)
		}
		return *f.SendAt
	}

	delay := f.DelayMinutes
	if delay <= 0 {
		delay = DefaultDelayMinutes
	}

	return now.Add(time.Duration(delay) * time.Minute)
}
