package gopg

import (
	"time"

	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-drip"
)

func NewDeliveryLogRepository(db *pg.DB) drip.DeliveryLogRepository {
	return &deliveryLogRepository{
		db: db,
	}
}

type deliveryLogRepository struct {
	db *pg.DB
}

// Append-only: rows are only ever inserted or cascade-deleted.
type deliveryRow struct {
	TableName struct{} `sql:"drip_delivery_log,alias:ddl" json:"-"`

	Id         string `sql:"id,pk"`
	CampaignId string `sql:"campaign_id,notnull"`
	ContactId  string `sql:"contact_id,notnull"`
	Sequence   int    `sql:"sequence,notnull"`

	SentAt    time.Time `sql:"sent_at"`
	Status    string    `sql:"status,notnull"`
	MessageId string    `sql:"message_id"`
	Error     string    `sql:"error"`
}

func (row *deliveryRow) toRecord() drip.DeliveryRecord {
	return drip.DeliveryRecord{
		Id:         row.Id,
		CampaignId: row.CampaignId,
		ContactId:  row.ContactId,
		Sequence:   row.Sequence,

		SentAt:    row.SentAt,
		Status:    drip.DeliveryStatus(row.Status),
		MessageId: row.MessageId,
		Error:     row.Error,
	}
}

func (repo *deliveryLogRepository) Append(record *drip.DeliveryRecord) error {
	return repo.db.Insert(&deliveryRow{
		Id:         record.Id,
		CampaignId: record.CampaignId,
		ContactId:  record.ContactId,
		Sequence:   record.Sequence,

		SentAt:    record.SentAt,
		Status:    string(record.Status),
		MessageId: record.MessageId,
		Error:     record.Error,
	})
}

func (repo *deliveryLogRepository) Matching(criteria drip.DeliveryCriteria) ([]drip.DeliveryRecord, int, error) {
	var rows []deliveryRow
	records := make([]drip.DeliveryRecord, 0)

	builder := repo.db.Model(&rows).
		Offset(criteria.Offset).
		Limit(criteria.Limit).
		Order("sent_at DESC")

	if criteria.CampaignId != "" {
		builder.Where("campaign_id = ?", criteria.CampaignId)
	}

	if criteria.ContactId != "" {
		builder.Where("contact_id = ?", criteria.ContactId)
	}

	if criteria.Status != "" {
		builder.Where("status = ?", string(criteria.Status))
	}

	count, err := builder.SelectAndCount()
	if err != nil && err != pg.ErrNoRows {
		return records, 0, err
	}

	for _, row := range rows {
		records = append(records, row.toRecord())
	}

	return records, count, nil
}

func (repo *deliveryLogRepository) DeleteByCampaign(campaignId string) error {
	_, err := repo.db.Model(&deliveryRow{}).Where("campaign_id = ?", campaignId).Delete()

	return err
}
