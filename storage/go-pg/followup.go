package gopg

import (
	"time"

	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-drip"
)

func NewFollowUpRepository(db *pg.DB) drip.FollowUpRepository {
	return &followUpRepository{
		db: db,
	}
}

type followUpRepository struct {
	db *pg.DB
}

// Unique index: (campaign_id, sequence).
type followUpRow struct {
	TableName struct{} `sql:"drip_follow_ups,alias:dfu" json:"-"`

	Id         string `sql:"id,pk"`
	CampaignId string `sql:"campaign_id,notnull"`

	Sequence int `sql:"sequence,notnull"`

	Subject string `sql:"subject"`
	Html    string `sql:"html"`
	Text    string `sql:"text"`

	SendAt       *time.Time `sql:"send_at"`
	DelayMinutes int        `sql:"delay_minutes"`
	Enabled      bool       `sql:"enabled,notnull"`

	CreatedAt time.Time `sql:"created_at"`
	UpdatedAt time.Time `sql:"updated_at"`
}

func newFollowUpRow(followUp *drip.FollowUp) *followUpRow {
	return &followUpRow{
		Id:         followUp.Id,
		CampaignId: followUp.CampaignId,

		Sequence: followUp.Sequence,

		Subject: followUp.Subject,
		Html:    followUp.Html,
		Text:    followUp.Text,

		SendAt:       followUp.SendAt,
		DelayMinutes: followUp.DelayMinutes,
		Enabled:      followUp.Enabled,

		CreatedAt: followUp.CreatedAt,
		UpdatedAt: followUp.UpdatedAt,
	}
}

func (row *followUpRow) toFollowUp() drip.FollowUp {
	return drip.FollowUp{
		Id:         row.Id,
		CampaignId: row.CampaignId,

		Sequence: row.Sequence,

		Subject: row.Subject,
		Html:    row.Html,
		Text:    row.Text,

		SendAt:       row.SendAt,
		DelayMinutes: row.DelayMinutes,
		Enabled:      row.Enabled,

		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo *followUpRepository) Get(id string) (drip.FollowUp, error) {
	row := &followUpRow{}

	if err := repo.db.Model(row).Where("id = ?", id).Select(); err != nil {
		if err == pg.ErrNoRows {
			return drip.FollowUp{}, drip.FollowUpNotFoundErr
		}

		return drip.FollowUp{}, err
	}

	return row.toFollowUp(), nil
}

func (repo *followUpRepository) BySequence(campaignId string, sequence int) (drip.FollowUp, error) {
	row := &followUpRow{}

	err := repo.db.Model(row).
		Where("campaign_id = ?", campaignId).
		Where("sequence = ?", sequence).
		Select()

	if err != nil {
		if err == pg.ErrNoRows {
			return drip.FollowUp{}, drip.FollowUpNotFoundErr
		}

		return drip.FollowUp{}, err
	}

	return row.toFollowUp(), nil
}

func (repo *followUpRepository) ByCampaign(campaignId string) ([]drip.FollowUp, error) {
	return repo.selectOrdered(campaignId, false)
}

func (repo *followUpRepository) Enabled(campaignId string) ([]drip.FollowUp, error) {
	return repo.selectOrdered(campaignId, true)
}

func (repo *followUpRepository) selectOrdered(campaignId string, enabledOnly bool) ([]drip.FollowUp, error) {
	var rows []followUpRow
	followUps := make([]drip.FollowUp, 0)

	builder := repo.db.Model(&rows).
		Where("campaign_id = ?", campaignId).
		Order("sequence ASC")

	if enabledOnly {
		builder.Where("enabled = TRUE")
	}

	if err := builder.Select(); err != nil && err != pg.ErrNoRows {
		return followUps, err
	}

	for _, row := range rows {
		followUps = append(followUps, row.toFollowUp())
	}

	return followUps, nil
}

func (repo *followUpRepository) Create(followUp *drip.FollowUp) error {
	return repo.db.Insert(newFollowUpRow(followUp))
}

func (repo *followUpRepository) Update(followUp *drip.FollowUp) error {
	followUp.UpdatedAt = time.Now()

	return repo.db.Update(newFollowUpRow(followUp))
}

func (repo *followUpRepository) Delete(id string) error {
	_, err := repo.db.Model(&followUpRow{}).Where("id = ?", id).Delete()

	return err
}

func (repo *followUpRepository) DeleteByCampaign(campaignId string) error {
	_, err := repo.db.Model(&followUpRow{}).Where("campaign_id = ?", campaignId).Delete()

	return err
}
