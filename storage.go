package drip

import (
	"time"

	"github.com/pkg/errors"
)

var (
	CampaignNotFoundErr = errors.New("The campaign was not found")
	ContactNotFoundErr  = errors.New("The contact was not found")
	FollowUpNotFoundErr = errors.New("The follow-up was not found")
)

type CampaignCriteria struct {
	Status CampaignStatus

	Offset int
	Limit  int
}

type DeliveryCriteria struct {
	CampaignId string
	ContactId  string
	Status     DeliveryStatus

	Offset int
	Limit  int
}

type CampaignRepository interface {
	Get(id string) (Campaign, error)
	Matching(criteria CampaignCriteria) ([]Campaign, int, error)

	Create(campaign *Campaign) error
	Update(campaign *Campaign) error
	UpdateStatus(id string, status CampaignStatus) error
	UpdateContactsCount(id string, count int) error
	Delete(id string) error
}

type ContactRepository interface {
	Get(id string) (Contact, error)
	GetByEmail(campaignId, email string) (Contact, error)
	FindPending(campaignId string, limit int) ([]Contact, error)
	CountByCampaign(campaignId string) (int, error)

	// Upsert inserts the contact unless one already exists for the same
	// (campaignId, lowercased email) pair, in which case the existing row is
	// loaded into contact instead. Reports whether a new row was created.
	Upsert(contact *Contact) (bool, error)

	UpdateFields(id string, fields Fields) error
	UpdateStatus(id string, status ContactStatus) error

	// RecordSend atomically advances the thread fields after a delivered
	// message, and moves the contact to sent when advance is set.
	RecordSend(id, messageId string, sentAt time.Time, advance bool) error

	DeleteByCampaign(campaignId string) error
}

type FollowUpRepository interface {
	Get(id string) (FollowUp, error)
	BySequence(campaignId string, sequence int) (FollowUp, error)

	// ByCampaign and Enabled return follow-ups ordered by ascending sequence.
	ByCampaign(campaignId string) ([]FollowUp, error)
	Enabled(campaignId string) ([]FollowUp, error)

	Create(followUp *FollowUp) error
	Update(followUp *FollowUp) error
	Delete(id string) error
	DeleteByCampaign(campaignId string) error
}

type DeliveryLogRepository interface {
	Append(record *DeliveryRecord) error
	Matching(criteria DeliveryCriteria) ([]DeliveryRecord, int, error)
	DeleteByCampaign(campaignId string) error
}

type JobRepository interface {
	Create(job *SendJob) error

	// ClaimDue atomically locks and returns up to limit jobs that are due at
	// now and not currently locked, setting their lock to lockedUntil. A
	// crashed worker's jobs become claimable again once their lock expires.
	ClaimDue(now, lockedUntil time.Time, limit int) ([]SendJob, error)

	Complete(id string) error
	Fail(id, message string) error
	DeleteByCampaign(campaignId string) error
}
