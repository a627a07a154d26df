package gopg

import (
	"time"

	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-drip"
)

func NewCampaignRepository(db *pg.DB) drip.CampaignRepository {
	return &campaignRepository{
		db: db,
	}
}

type campaignRepository struct {
	db *pg.DB
}

type campaignRow struct {
	TableName struct{} `sql:"drip_campaigns,alias:dc" json:"-"`

	Id          string `sql:"id,pk"`
	Name        string `sql:"name,notnull"`
	Description string `sql:"description"`

	Subject string `sql:"subject,notnull"`
	Html    string `sql:"html"`
	Text    string `sql:"text"`

	FromEmail string `sql:"from_email"`
	ReplyTo   string `sql:"reply_to"`
	BatchSize int    `sql:"batch_size"`

	Status        string `sql:"status,notnull"`
	ContactsCount int    `sql:"contacts_count"`

	CreatedAt time.Time `sql:"created_at"`
	UpdatedAt time.Time `sql:"updated_at"`
}

func newCampaignRow(campaign *drip.Campaign) *campaignRow {
	return &campaignRow{
		Id:          campaign.Id,
		Name:        campaign.Name,
		Description: campaign.Description,

		Subject: campaign.MainTemplate.Subject,
		Html:    campaign.MainTemplate.Html,
		Text:    campaign.MainTemplate.Text,

		FromEmail: campaign.Settings.FromEmail,
		ReplyTo:   campaign.Settings.ReplyTo,
		BatchSize: campaign.Settings.BatchSize,

		Status:        string(campaign.Status),
		ContactsCount: campaign.ContactsCount,

		CreatedAt: campaign.CreatedAt,
		UpdatedAt: campaign.UpdatedAt,
	}
}

func (row *campaignRow) toCampaign() drip.Campaign {
	return drip.Campaign{
		Id:          row.Id,
		Name:        row.Name,
		Description: row.Description,

		MainTemplate: drip.Template{
			Subject: row.Subject,
			Html:    row.Html,
			Text:    row.Text,
		},

		Settings: drip.Settings{
			FromEmail: row.FromEmail,
			ReplyTo:   row.ReplyTo,
			BatchSize: row.BatchSize,
		},

		Status:        drip.CampaignStatus(row.Status),
		ContactsCount: row.ContactsCount,

		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo *campaignRepository) Get(id string) (drip.Campaign, error) {
	row := &campaignRow{}

	if err := repo.db.Model(row).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return drip.Campaign{}, drip.CampaignNotFoundErr
		}

		return drip.Campaign{}, err
	}

	return row.toCampaign(), nil
}

func (repo *campaignRepository) Matching(criteria drip.CampaignCriteria) ([]drip.Campaign, int, error) {
	var rows []campaignRow
	campaigns := make([]drip.Campaign, 0)

	builder := repo.db.Model(&rows).
		Offset(criteria.Offset).
		Limit(criteria.Limit).
		Order("created_at DESC")

	if criteria.Status != "" {
		builder.Where("status = ?", string(criteria.Status))
	}

	count, err := builder.SelectAndCount()
	if err != nil && err != pg.ErrNoRows {
		return campaigns, 0, err
	}

	for _, row := range rows {
		campaigns = append(campaigns, row.toCampaign())
	}

	return campaigns, count, nil
}

func (repo *campaignRepository) Create(campaign *drip.Campaign) error {
	return repo.db.Insert(newCampaignRow(campaign))
}

func (repo *campaignRepository) Update(campaign *drip.Campaign) error {
	campaign.UpdatedAt = time.Now()

	return repo.db.Update(newCampaignRow(campaign))
}

func (repo *campaignRepository) UpdateStatus(id string, status drip.CampaignStatus) error {
	_, err := repo.db.Model(&campaignRow{}).
		Set("status = ?", string(status)).
		Set("updated_at = now()").
		Where("id = ?", id).
		Update()

	return err
}

func (repo *campaignRepository) UpdateContactsCount(id string, count int) error {
	_, err := repo.db.Model(&campaignRow{}).
		Set("contacts_count = ?", count).
		Set("updated_at = now()").
		Where("id = ?", id).
		Update()

	return err
}

func (repo *campaignRepository) Delete(id string) error {
	_, err := repo.db.Model(&campaignRow{}).Where("id = ?", id).Delete()

	return err
}
