package drip

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ImportRow is one pre-parsed row of a contact import. Spreadsheet handling
// happens upstream, the engine only sees the email plus the remaining columns
// as a field map.
type ImportRow struct {
	Email  string `json:"email"`
	Fields Fields `json:"fields"`
}

type ImportSummary struct {
	Total    int      `json:"total"`
	Inserted int      `json:"inserted"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ImportContacts upserts rows into a campaign, keyed by the lowercased email.
// The same email never produces two contacts. With updateExisting set, an
// existing contact gets its fields refreshed unless it already replied or
// unsubscribed, which an import never overwrites.
func (e *engine) ImportContacts(campaignId string, rows []ImportRow, updateExisting bool) (ImportSummary, error) {
	summary := ImportSummary{Total: len(rows)}

	if _, err := e.campaigns.Get(campaignId); err != nil {
		return summary, err
	}

	now := e.now()

	for i, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Email))

		if !validEmail(email) {
			summary.Skipped++
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: invalid or missing email", i+1))
			continue
		}

		contact := &Contact{
			Id:         uuid.New().String(),
			CampaignId: campaignId,
			Email:      email,
			Fields:     row.Fields,
			Status:     ContactPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		created, err := e.contacts.Upsert(contact)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %s", i+1, err))
			continue
		}

		if created {
			summary.Inserted++
			continue
		}

		if !updateExisting || contact.Suppressed() {
			summary.Skipped++
			continue
		}

		if err := e.contacts.UpdateFields(contact.Id, row.Fields); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %s", i+1, err))
			continue
		}

		summary.Updated++
	}

	count, err := e.contacts.CountByCampaign(campaignId)
	if err != nil {
		return summary, err
	}

	if err := e.campaigns.UpdateContactsCount(campaignId, count); err != nil {
		return summary, err
	}

	return summary, nil
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}

	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 {
		return false
	}

	domain := email[at+1:]

	return !strings.ContainsAny(email, " \t") && strings.Contains(domain, ".")
}
