package gopg

import (
	"time"

	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-drip"
)

func NewJobRepository(db *pg.DB) drip.JobRepository {
	return &jobRepository{
		db: db,
	}
}

type jobRepository struct {
	db *pg.DB
}

type jobRow struct {
	TableName struct{} `sql:"drip_jobs,alias:dj" json:"-"`

	Id string `sql:"id,pk"`

	CampaignId string `sql:"campaign_id,notnull"`
	ContactId  string `sql:"contact_id,notnull"`
	Sequence   int    `sql:"sequence,notnull"`

	DueAt       time.Time  `sql:"due_at,notnull"`
	LockedUntil *time.Time `sql:"locked_until"`
	LastError   string     `sql:"last_error"`

	CreatedAt time.Time `sql:"created_at"`
}

func (row *jobRow) toJob() drip.SendJob {
	return drip.SendJob{
		Id: row.Id,

		CampaignId: row.CampaignId,
		ContactId:  row.ContactId,
		Sequence:   row.Sequence,

		DueAt:       row.DueAt,
		LockedUntil: row.LockedUntil,
		LastError:   row.LastError,

		CreatedAt: row.CreatedAt,
	}
}

func (repo *jobRepository) Create(job *drip.SendJob) error {
	return repo.db.Insert(&jobRow{
		Id: job.Id,

		CampaignId: job.CampaignId,
		ContactId:  job.ContactId,
		Sequence:   job.Sequence,

		DueAt:       job.DueAt,
		LockedUntil: job.LockedUntil,
		LastError:   job.LastError,

		CreatedAt: job.CreatedAt,
	})
}

// ClaimDue locks up to limit due jobs in one statement. SKIP LOCKED keeps
// concurrent engine instances from claiming the same rows; an expired
// locked_until makes a crashed worker's job claimable again.
func (repo *jobRepository) ClaimDue(now, lockedUntil time.Time, limit int) ([]drip.SendJob, error) {
	var rows []jobRow
	jobs := make([]drip.SendJob, 0)

	_, err := repo.db.Query(&rows, `
		WITH due AS (
			SELECT id FROM drip_jobs
			WHERE due_at <= ?
			  AND (locked_until IS NULL OR locked_until <= ?)
			ORDER BY due_at
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		UPDATE drip_jobs j
		SET locked_until = ?
		FROM due
		WHERE j.id = due.id
		RETURNING j.*
	`, now, now, limit, lockedUntil)

	if err != nil && err != pg.ErrNoRows {
		return jobs, err
	}

	for _, row := range rows {
		jobs = append(jobs, row.toJob())
	}

	return jobs, nil
}

func (repo *jobRepository) Complete(id string) error {
	_, err := repo.db.Model(&jobRow{}).Where("id = ?", id).Delete()

	return err
}

// Fail keeps the row so operators can inspect it; the lock taken at claim
// time stays and re-claim only happens after it expires.
func (repo *jobRepository) Fail(id, message string) error {
	_, err := repo.db.Model(&jobRow{}).
		Set("last_error = ?", message).
		Where("id = ?", id).
		Update()

	return err
}

func (repo *jobRepository) DeleteByCampaign(campaignId string) error {
	_, err := repo.db.Model(&jobRow{}).Where("campaign_id = ?", campaignId).Delete()

	return err
}
