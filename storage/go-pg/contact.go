package gopg

import (
	"time"

	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-drip"
)

func NewContactRepository(db *pg.DB) drip.ContactRepository {
	return &contactRepository{
		db: db,
	}
}

type contactRepository struct {
	db *pg.DB
}

// Unique index: (campaign_id, email). Email is stored lowercased.
type contactRow struct {
	TableName struct{} `sql:"drip_contacts,alias:dct" json:"-"`

	Id         string `sql:"id,pk"`
	CampaignId string `sql:"campaign_id,notnull"`

	Email  string            `sql:"email,notnull"`
	Fields map[string]string `sql:"fields"`
	Status string            `sql:"status,notnull"`

	LastMessageId string     `sql:"last_message_id"`
	LastSentAt    *time.Time `sql:"last_sent_at"`

	CreatedAt time.Time `sql:"created_at"`
	UpdatedAt time.Time `sql:"updated_at"`
}

func newContactRow(contact *drip.Contact) *contactRow {
	return &contactRow{
		Id:         contact.Id,
		CampaignId: contact.CampaignId,

		Email:  contact.Email,
		Fields: contact.Fields,
		Status: string(contact.Status),

		LastMessageId: contact.LastMessageId,
		LastSentAt:    contact.LastSentAt,

		CreatedAt: contact.CreatedAt,
		UpdatedAt: contact.UpdatedAt,
	}
}

func (row *contactRow) toContact() drip.Contact {
	return drip.Contact{
		Id:         row.Id,
		CampaignId: row.CampaignId,

		Email:  row.Email,
		Fields: row.Fields,
		Status: drip.ContactStatus(row.Status),

		LastMessageId: row.LastMessageId,
		LastSentAt:    row.LastSentAt,

		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo *contactRepository) Get(id string) (drip.Contact, error) {
	row := &contactRow{}

	if err := repo.db.Model(row).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return drip.Contact{}, drip.ContactNotFoundErr
		}

		return drip.Contact{}, err
	}

	return row.toContact(), nil
}

func (repo *contactRepository) GetByEmail(campaignId, email string) (drip.Contact, error) {
	row := &contactRow{}

	err := repo.db.Model(row).
		Where("campaign_id = ?", campaignId).
		Where("email = LOWER(?)", email).
		Select()

	if err != nil {
		if err == pg.ErrNoRows {
			return drip.Contact{}, drip.ContactNotFoundErr
		}

		return drip.Contact{}, err
	}

	return row.toContact(), nil
}

func (repo *contactRepository) FindPending(campaignId string, limit int) ([]drip.Contact, error) {
	var rows []contactRow
	contacts := make([]drip.Contact, 0)

	err := repo.db.Model(&rows).
		Where("campaign_id = ?", campaignId).
		Where("status = ?", string(drip.ContactPending)).
		Order("created_at ASC").
		Limit(limit).
		Select()

	if err != nil && err != pg.ErrNoRows {
		return contacts, err
	}

	for _, row := range rows {
		contacts = append(contacts, row.toContact())
	}

	return contacts, nil
}

func (repo *contactRepository) CountByCampaign(campaignId string) (int, error) {
	return repo.db.Model(&contactRow{}).Where("campaign_id = ?", campaignId).Count()
}

// Upsert relies on SelectOrInsert so that "already exists" is an expected
// outcome instead of a duplicate-key error, and the caller learns which of
// the two happened.
func (repo *contactRepository) Upsert(contact *drip.Contact) (bool, error) {
	row := newContactRow(contact)

	created, err := repo.db.Model(row).
		Where("campaign_id = ?", contact.CampaignId).
		Where("email = ?", contact.Email).
		OnConflict("DO NOTHING").
		SelectOrInsert()

	if err != nil {
		return false, err
	}

	*contact = row.toContact()

	return created, nil
}

func (repo *contactRepository) UpdateFields(id string, fields drip.Fields) error {
	_, err := repo.db.Model(&contactRow{}).
		Set("fields = ?", map[string]string(fields)).
		Set("updated_at = now()").
		Where("id = ?", id).
		Update()

	return err
}

func (repo *contactRepository) UpdateStatus(id string, status drip.ContactStatus) error {
	_, err := repo.db.Model(&contactRow{}).
		Set("status = ?", string(status)).
		Set("updated_at = now()").
		Where("id = ?", id).
		Update()

	return err
}

func (repo *contactRepository) RecordSend(id, messageId string, sentAt time.Time, advance bool) error {
	builder := repo.db.Model(&contactRow{}).
		Set("last_message_id = ?", messageId).
		Set("last_sent_at = ?", sentAt).
		Set("updated_at = now()").
		Where("id = ?", id)

	if advance {
		builder.Set("status = ?", string(drip.ContactSent))
	}

	_, err := builder.Update()

	return err
}

func (repo *contactRepository) DeleteByCampaign(campaignId string) error {
	_, err := repo.db.Model(&contactRow{}).Where("campaign_id = ?", campaignId).Delete()

	return err
}
