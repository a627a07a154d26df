package drip

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Engine interface {
	HttpHandler() *HttpHandler

	Start() error
	Shutdown(ctx context.Context)

	EnqueueNow(campaignId, contactId string, sequence int) error
	EnqueueAt(dueAt time.Time, campaignId, contactId string, sequence int) error

	TriggerCampaign(campaignId string, batchSize int) (int, error)
	ImportContacts(campaignId string, rows []ImportRow, updateExisting bool) (ImportSummary, error)
}

type EngineOption func(e *engine)

func SetCampaignRepo(repo CampaignRepository) EngineOption {
	return func(e *engine) {
		e.campaigns = repo
	}
}

func SetContactRepo(repo ContactRepository) EngineOption {
	return func(e *engine) {
		e.contacts = repo
	}
}

func SetFollowUpRepo(repo FollowUpRepository) EngineOption {
	return func(e *engine) {
		e.followUps = repo
	}
}

func SetDeliveryLogRepo(repo DeliveryLogRepository) EngineOption {
	return func(e *engine) {
		e.deliveries = repo
	}
}

func SetJobRepo(repo JobRepository) EngineOption {
	return func(e *engine) {
		e.jobs = repo
	}
}

func SetTransport(transport MailTransport) EngineOption {
	return func(e *engine) {
		e.transport = transport
	}
}

func SetRenderFunc(render RenderFunc) EngineOption {
	return func(e *engine) {
		e.render = render
	}
}

func SetLogger(logger logrus.FieldLogger) EngineOption {
	return func(e *engine) {
		e.logger = logger
	}
}

func SetWorkerCount(count int) EngineOption {
	return func(e *engine) {
		e.workerCount = count
	}
}

func SetLockLifetime(lifetime time.Duration) EngineOption {
	return func(e *engine) {
		e.lockLifetime = lifetime
	}
}

func SetGraceDelay(delay time.Duration) EngineOption {
	return func(e *engine) {
		e.graceDelay = delay
	}
}

func SetPollInterval(interval time.Duration) EngineOption {
	return func(e *engine) {
		e.pollInterval = interval
	}
}

func SetDefaultFrom(from string) EngineOption {
	return func(e *engine) {
		e.defaultFrom = from
	}
}

func SetDefaultReplyTo(replyTo string) EngineOption {
	return func(e *engine) {
		e.defaultReplyTo = replyTo
	}
}

// SetClock overrides the engine's time source, used by tests.
func SetClock(now func() time.Time) EngineOption {
	return func(e *engine) {
		e.now = now
	}
}

type engine struct {
	logger logrus.FieldLogger

	campaigns  CampaignRepository
	contacts   ContactRepository
	followUps  FollowUpRepository
	deliveries DeliveryLogRepository
	jobs       JobRepository

	transport MailTransport
	render    RenderFunc

	defaultFrom    string
	defaultReplyTo string

	workerCount  int
	lockLifetime time.Duration
	graceDelay   time.Duration
	pollInterval time.Duration

	now func() time.Time

	jobQueue chan SendJob

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEngine(options ...EngineOption) (Engine, error) {
	e := &engine{
		logger: logrus.New(),

		render: Render,
		now:    time.Now,

		workerCount:  5,
		lockLifetime: 10 * time.Minute,
		graceDelay:   time.Minute,
		pollInterval: 5 * time.Second,
	}

	for _, option := range options {
		option(e)
	}

	if err := e.ensureUsableConfiguration(); err != nil {
		return e, err
	}

	e.jobQueue = make(chan SendJob)

	return e, nil
}

func (e *engine) ensureUsableConfiguration() error {
	if e.campaigns == nil {
		return errors.New("Missing campaign repository")
	}

	if e.contacts == nil {
		return errors.New("Missing contact repository")
	}

	if e.followUps == nil {
		return errors.New("Missing follow-up repository")
	}

	if e.deliveries == nil {
		return errors.New("Missing delivery log repository")
	}

	if e.jobs == nil {
		return errors.New("Missing job repository")
	}

	if e.transport == nil {
		return errors.New("Missing mail transport")
	}

	return nil
}

func (e *engine) HttpHandler() *HttpHandler {
	return &HttpHandler{
		engine: e,
	}
}

func (e *engine) Start() error {
	if e.cancel != nil {
		return errors.New("Engine already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for i := 0; i < e.workerCount; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}

	e.wg.Add(1)
	go e.dispatch(ctx)

	return nil
}

func (e *engine) Shutdown(ctx context.Context) {
	if e.cancel == nil {
		return
	}

	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// dispatch claims due jobs in batches bounded by the worker count and feeds
// them to the pool. Each claimed job holds its lock for the lock lifetime.
func (e *engine) dispatch(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := e.now()

			claimed, err := e.jobs.ClaimDue(now, now.Add(e.lockLifetime), e.workerCount)
			if err != nil {
				e.logger.WithError(err).Error("failed to claim due send jobs")
				continue
			}

			for _, job := range claimed {
				select {
				case <-ctx.Done():
					return

				case e.jobQueue <- job:
				}
			}
		}
	}
}

func (e *engine) worker(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case job, ok := <-e.jobQueue:
			if !ok {
				return
			}

			logger := e.logger.
				WithField("campaignId", job.CampaignId).
				WithField("contactId", job.ContactId).
				WithField("sequence", job.Sequence)

			if err := e.execute(ctx, job); err != nil {
				logger.WithError(err).Error("failed to execute send job")

				if err := e.jobs.Fail(job.Id, err.Error()); err != nil {
					logger.WithError(err).Error("failed to record send job failure")
				}

				continue
			}

			if err := e.jobs.Complete(job.Id); err != nil {
				logger.WithError(err).Error("failed to complete send job")
			}
		}
	}
}

func (e *engine) EnqueueNow(campaignId, contactId string, sequence int) error {
	return e.enqueue(e.now(), campaignId, contactId, sequence)
}

// EnqueueAt schedules a job for dueAt. Due times that are not in the future
// are clamped forward by the grace delay so that a backlog of past-dated jobs
// never fires as an immediate burst.
func (e *engine) EnqueueAt(dueAt time.Time, campaignId, contactId string, sequence int) error {
	now := e.now()

	if !dueAt.After(now) {
		dueAt = now.Add(e.graceDelay)
	}

	return e.enqueue(dueAt, campaignId, contactId, sequence)
}

func (e *engine) enqueue(dueAt time.Time, campaignId, contactId string, sequence int) error {
	job := &SendJob{
		Id:         uuid.New().String(),
		CampaignId: campaignId,
		ContactId:  contactId,
		Sequence:   sequence,
		DueAt:      dueAt,
		CreatedAt:  e.now(),
	}

	return errors.Wrap(e.jobs.Create(job), "failed to enqueue send job")
}

// TriggerCampaign enqueues a sequence-0 job for up to batchSize pending
// contacts and moves the campaign to running. A batchSize of zero falls back
// to the campaign's configured batch size.
func (e *engine) TriggerCampaign(campaignId string, batchSize int) (int, error) {
	campaign, err := e.campaigns.Get(campaignId)
	if err != nil {
		return 0, err
	}

	if batchSize <= 0 {
		batchSize = campaign.Settings.BatchSize
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	pending, err := e.contacts.FindPending(campaignId, batchSize)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load pending contacts")
	}

	queued := 0
	for _, contact := range pending {
		if err := e.EnqueueNow(campaignId, contact.Id, 0); err != nil {
			return queued, err
		}

		queued++
	}

	if campaign.Status != CampaignRunning {
		if err := e.campaigns.UpdateStatus(campaignId, CampaignRunning); err != nil {
			return queued, errors.Wrap(err, "failed to mark campaign running")
		}
	}

	e.logger.
		WithField("campaignId", campaignId).
		WithField("queued", queued).
		Info("campaign batch queued")

	return queued, nil
}

// execute runs the send state machine for one job. A nil return means the job
// is done, including the benign no-op outcomes: deleted campaign or contact,
// suppressed contact, disabled or removed follow-up. Delivery failure is not
// a job failure either; it is recorded in the delivery log and, for sequence
// 0, the follow-up chain is still derived.
func (e *engine) execute(ctx context.Context, job SendJob) error {
	if job.CampaignId == "" || job.ContactId == "" || job.Sequence < 0 {
		return errors.New("send job is missing campaign, contact or sequence")
	}

	campaign, err := e.campaigns.Get(job.CampaignId)
	if err == CampaignNotFoundErr {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "failed to load campaign")
	}

	contact, err := e.contacts.Get(job.ContactId)
	if err == ContactNotFoundErr {
		return nil
	} else if err != nil {
		return errors.Wrap(err, "failed to load contact")
	}

	// Re-checked at execution time on purpose: a reply or unsubscribe may
	// have landed since the job was scheduled.
	if contact.Suppressed() {
		e.logger.
			WithField("contactId", contact.Id).
			WithField("status", contact.Status).
			Debug("contact suppressed, skipping send")

		return nil
	}

	subjectTpl := campaign.MainTemplate.Subject
	htmlTpl := campaign.MainTemplate.Html
	textTpl := campaign.MainTemplate.Text

	if job.Sequence > 0 {
		followUp, err := e.followUps.BySequence(job.CampaignId, job.Sequence)
		if err == FollowUpNotFoundErr {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "failed to load follow-up")
		}

		if !followUp.Enabled {
			return nil
		}

		// Only the subject inherits from the main template.
		subjectTpl = followUp.Subject
		if subjectTpl == "" {
			subjectTpl = campaign.MainTemplate.Subject
		}

		htmlTpl = followUp.Html
		textTpl = followUp.Text
	}

	msg := Message{
		To:      contact.Email,
		From:    campaign.Settings.FromEmail,
		ReplyTo: campaign.Settings.ReplyTo,

		Subject: e.render(subjectTpl, contact.Fields),
		Html:    e.render(htmlTpl, contact.Fields),
		Text:    e.render(textTpl, contact.Fields),
	}

	if msg.From == "" {
		msg.From = e.defaultFrom
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo = e.defaultReplyTo
	}

	// Thread off the last message that actually went out. A missing id, for
	// example after a failed earlier send, just means no thread linkage.
	if job.Sequence > 0 && contact.LastMessageId != "" {
		msg.InReplyTo = contact.LastMessageId
		msg.References = []string{contact.LastMessageId}
	}

	messageId, sendErr := e.transport.Send(ctx, msg)

	now := e.now()

	record := &DeliveryRecord{
		Id:         uuid.New().String(),
		CampaignId: campaign.Id,
		ContactId:  contact.Id,
		Sequence:   job.Sequence,
		SentAt:     now,
	}

	if sendErr != nil {
		record.Status = DeliveryFailed
		record.Error = sendErr.Error()

		e.logger.
			WithField("contactId", contact.Id).
			WithField("sequence", job.Sequence).
			WithError(sendErr).
			Warn("delivery failed")
	} else {
		record.Status = DeliveryDelivered
		record.MessageId = messageId
	}

	if err := e.deliveries.Append(record); err != nil {
		return errors.Wrap(err, "failed to append delivery record")
	}

	if sendErr == nil && messageId != "" {
		advance := job.Sequence == 0 && contact.Status == ContactPending

		if err := e.contacts.RecordSend(contact.Id, messageId, now, advance); err != nil {
			return errors.Wrap(err, "failed to record send on contact")
		}
	}

	// The chain is derived after the initial send regardless of its delivery
	// outcome; follow-ups still fire and each one re-checks suppression.
	if job.Sequence == 0 {
		if err := e.scheduleFollowUps(campaign.Id, contact.Id); err != nil {
			return err
		}
	}

	return nil
}

func (e *engine) scheduleFollowUps(campaignId, contactId string) error {
	followUps, err := e.followUps.Enabled(campaignId)
	if err != nil {
		return errors.Wrap(err, "failed to load follow-ups")
	}

	now := e.now()

	for _, followUp := range followUps {
		if err := e.EnqueueAt(followUp.DueAt(now, e.graceDelay), campaignId, contactId, followUp.Sequence); err != nil {
			return err
		}
	}

	return nil
}
