// Package campaign runs lead campaigns end to end: acquisition, persistence,
// enrichment and outreach.
package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/mailer"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/scrape"
	"github.com/sells-group/prospect-cli/internal/settings"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Scraper acquires lead candidates.
type Scraper interface {
	ScrapeLeads(ctx context.Context, businessType, location string, n int) ([]scrape.LeadCandidate, error)
}

// Processor enriches a campaign's persisted leads.
type Processor interface {
	ProcessCampaign(ctx context.Context, campaignID int64) (enrich.Summary, error)
}

// Pipeline is the per-run pair of acquisition and enrichment.
type Pipeline struct {
	Scraper   Scraper
	Processor Processor
}

// Factory builds a Pipeline from the settings in effect when a campaign
// starts. Events published during enrichment go to sink.
type Factory func(ctx context.Context, s settings.Settings, sink enrich.EventSink) (*Pipeline, error)

// MailerFactory builds a mail sender from the current settings.
type MailerFactory func(s settings.Settings) mailer.Sender

// Service coordinates campaign runs and lead outreach.
type Service struct {
	store     store.Store
	settings  *settings.Manager
	build     Factory
	newMailer MailerFactory
	guard     *Guard
	sink      enrich.EventSink
	metrics   *metrics.Metrics
	now       func() time.Time

	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithEventSink sets where progress events are published.
func WithEventSink(sink enrich.EventSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithGuard replaces the default single-campaign guard.
func WithGuard(g *Guard) Option {
	return func(s *Service) { s.guard = g }
}

// WithMailer overrides how mail senders are built.
func WithMailer(f MailerFactory) Option {
	return func(s *Service) { s.newMailer = f }
}

// WithMetrics records campaign activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a Service.
func NewService(st store.Store, sm *settings.Manager, build Factory, opts ...Option) *Service {
	s := &Service{
		store:    st,
		settings: sm,
		build:    build,
		newMailer: func(cur settings.Settings) mailer.Sender {
			return mailer.NewSMTPSender(cur.MailerConfig())
		},
		guard: NewGuard(1),
		sink:  enrich.Discard,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start validates req, persists the campaign and, if the guard admits it,
// runs the pipeline in the background. A start the guard rejects is not an
// error: the campaign exists but is not processed, and started is false.
func (s *Service) Start(ctx context.Context, req model.CampaignRequest) (c *model.Campaign, started bool, err error) {
	c, err = s.create(ctx, req)
	if err != nil {
		return nil, false, err
	}
	if !s.guard.TryAcquire(c.ID) {
		zap.L().Debug("campaign: processing already active, start ignored",
			zap.Int64("campaign_id", c.ID),
			zap.Int64s("active", s.guard.Active()),
		)
		return c, false, nil
	}

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.execute(runCtx, c)
	}()
	return c, true, nil
}

// Run persists a campaign and processes it synchronously. It fails with
// ErrBusy when the guard rejects the run.
func (s *Service) Run(ctx context.Context, req model.CampaignRequest) (*model.Campaign, enrich.Summary, error) {
	c, err := s.create(ctx, req)
	if err != nil {
		return nil, enrich.Summary{}, err
	}
	if !s.guard.TryAcquire(c.ID) {
		return c, enrich.Summary{}, eris.Wrapf(ErrBusy, "campaign: %d", c.ID)
	}
	sum, err := s.execute(ctx, c)
	return c, sum, err
}

// ErrBusy reports that the active-campaign cap is reached.
var ErrBusy = eris.New("campaign: processing already active")

// Wait blocks until every background run has finished.
func (s *Service) Wait() { s.wg.Wait() }

// Active returns the IDs of campaigns currently processing.
func (s *Service) Active() []int64 { return s.guard.Active() }

func (s *Service) create(ctx context.Context, req model.CampaignRequest) (*model.Campaign, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.store.CreateCampaign(ctx, req)
	if err != nil {
		return nil, err
	}
	zap.L().Info("campaign: created",
		zap.Int64("campaign_id", c.ID),
		zap.String("name", c.Name),
		zap.Int("number_of_leads", c.NumberOfLeads),
	)
	return c, nil
}

// execute runs an admitted campaign. The guard is released and completed is
// published on every exit path.
func (s *Service) execute(ctx context.Context, c *model.Campaign) (enrich.Summary, error) {
	log := zap.L().With(zap.Int64("campaign_id", c.ID), zap.String("run_id", uuid.NewString()))
	s.metrics.CampaignStarted()
	start := s.now()

	defer func() {
		s.guard.Release(c.ID)
		s.metrics.CampaignFinished()
		s.publish(enrich.Event{Type: enrich.EventCompleted, CampaignID: c.ID})
	}()

	s.publish(enrich.Event{
		Type:       enrich.EventStarted,
		CampaignID: c.ID,
		Message:    fmt.Sprintf("Starting lead generation for %s", c.Name),
	})

	log.Info("campaign: processing started")
	sum, err := s.pipeline(ctx, c)
	if err != nil {
		log.Error("campaign: processing failed", zap.Error(err))
		s.publish(enrich.Event{Type: enrich.EventError, CampaignID: c.ID, Message: err.Error()})
		return sum, err
	}

	log.Info("campaign: processing complete",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Duration("elapsed", s.now().Sub(start)),
	)
	return sum, nil
}

func (s *Service) pipeline(ctx context.Context, c *model.Campaign) (enrich.Summary, error) {
	cur, err := s.settings.Get(ctx)
	if err != nil {
		return enrich.Summary{}, err
	}
	p, err := s.build(ctx, cur, s.sink)
	if err != nil {
		return enrich.Summary{}, eris.Wrap(err, "campaign: build pipeline")
	}

	s.publish(enrich.Event{Type: enrich.EventUpdate, CampaignID: c.ID, Message: "Scraping leads..."})

	candidates, scrapeErr := p.Scraper.ScrapeLeads(ctx, c.BusinessType, c.Location, c.NumberOfLeads)
	// Candidates gathered before a cancellation are still persisted.
	for _, cand := range candidates {
		if _, err := s.store.CreateLead(context.WithoutCancel(ctx), c.ID, cand.NewLead()); err != nil {
			return enrich.Summary{}, err
		}
	}
	if scrapeErr != nil {
		return enrich.Summary{}, eris.Wrap(scrapeErr, "campaign: scrape leads")
	}

	s.publish(enrich.Event{Type: enrich.EventLeadsScraped, CampaignID: c.ID, Count: len(candidates)})

	return p.Processor.ProcessCampaign(ctx, c.ID)
}

func (s *Service) publish(e enrich.Event) {
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	s.sink.Publish(e)
}

// SendLead emails a reviewed lead and marks it SENT. The lead must be
// REVIEW_PENDING and have a contact email.
func (s *Service) SendLead(ctx context.Context, leadID int64) (*model.Lead, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(lead.Status, model.LeadStatusSent) {
		return nil, eris.Wrapf(store.ErrInvalidTransition, "campaign: lead %d is %s", lead.ID, lead.Status)
	}
	msg, err := mailer.ComposeLead(lead)
	if err != nil {
		return nil, err
	}

	cur, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !cur.MailConfigured() {
		return nil, &model.ValidationError{Field: "email", Message: "email delivery is not configured"}
	}
	if err := s.newMailer(cur).Send(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.store.MarkLeadSent(ctx, lead.ID); err != nil {
		return nil, err
	}
	zap.L().Info("campaign: lead sent",
		zap.Int64("lead_id", lead.ID),
		zap.Int64("campaign_id", lead.CampaignID),
	)
	return s.store.GetLead(ctx, lead.ID)
}

// UpdateLeadEmail replaces the generated email text of an unsent lead.
func (s *Service) UpdateLeadEmail(ctx context.Context, leadID int64, content string) (*model.Lead, error) {
	if err := s.store.UpdateLeadEmail(ctx, leadID, content); err != nil {
		return nil, err
	}
	return s.store.GetLead(ctx, leadID)
}

// SendTestEmail sends a connectivity check message to the configured sender.
func (s *Service) SendTestEmail(ctx context.Context) error {
	cur, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !cur.MailConfigured() {
		return &model.ValidationError{Field: "email", Message: "email delivery is not configured"}
	}
	m := s.newMailer(cur)
	if err := m.Verify(ctx); err != nil {
		return err
	}
	return m.Send(ctx, mailer.TestMessage(cur.EmailUser))
}

// VerifyMail checks that the configured SMTP server accepts the stored
// credentials without sending anything.
func (s *Service) VerifyMail(ctx context.Context) error {
	cur, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !cur.MailConfigured() {
		return &model.ValidationError{Field: "email", Message: "email delivery is not configured"}
	}
	return s.newMailer(cur).Verify(ctx)
}
