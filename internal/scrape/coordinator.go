package scrape

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
)

// LeadCandidate is a scraped, not yet persisted lead.
type LeadCandidate struct {
	CompanyName  string  `json:"company_name"`
	WebsiteURL   string  `json:"website_url"`
	ContactEmail *string `json:"contact_email,omitempty"`
	Snippet      string  `json:"snippet"`
}

// NewLead converts the candidate into store input.
func (c LeadCandidate) NewLead() model.NewLead {
	return model.NewLead{
		CompanyName:  c.CompanyName,
		WebsiteURL:   c.WebsiteURL,
		ContactEmail: c.ContactEmail,
	}
}

// Coordinator turns a business type and location into lead candidates by
// running the planned queries through a single browser session.
type Coordinator struct {
	launcher       browser.Launcher
	searcher       *Searcher
	contacts       *ContactExtractor
	queryPacer     Pacer
	candidatePacer Pacer
	metrics        *metrics.Metrics
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithQueryPacer sets the delay applied after each search query.
func WithQueryPacer(p Pacer) CoordinatorOption {
	return func(c *Coordinator) { c.queryPacer = p }
}

// WithCandidatePacer sets the delay applied after each contact extraction.
func WithCandidatePacer(p Pacer) CoordinatorOption {
	return func(c *Coordinator) { c.candidatePacer = p }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a Coordinator. Without pacer options it waits
// 2s+[0,3s) between queries and 1s+[0,2s) between candidates.
func NewCoordinator(launcher browser.Launcher, searcher *Searcher, contacts *ContactExtractor, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		launcher:       launcher,
		searcher:       searcher,
		contacts:       contacts,
		queryPacer:     JitterPacer{Base: 2 * time.Second, Jitter: 3 * time.Second},
		candidatePacer: JitterPacer{Base: time.Second, Jitter: 2 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ScrapeLeads collects at most n valid candidates. Queries are issued in plan
// order and stop once n candidates are held. Per-query and per-page failures
// are logged and skipped; only a launch failure or cancellation is returned.
func (c *Coordinator) ScrapeLeads(ctx context.Context, businessType, location string, n int) ([]LeadCandidate, error) {
	if n <= 0 {
		return nil, nil
	}

	session, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: launch browser session")
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			zap.L().Warn("scrape: close browser session", zap.Error(cerr))
		}
	}()

	log := zap.L().With(zap.String("business_type", businessType), zap.String("location", location))

	var leads []LeadCandidate
	seen := make(map[string]bool)

	for _, query := range PlanQueries(businessType, location) {
		if len(leads) >= n {
			break
		}
		if err := ctx.Err(); err != nil {
			return leads, eris.Wrap(err, "scrape: scrape leads")
		}

		results, err := c.searcher.Search(ctx, session, query, n-len(leads))
		if err != nil {
			log.Warn("scrape: search failed", zap.String("query", query), zap.Error(err))
			results = nil
		}

		for _, r := range results {
			if len(leads) >= n {
				break
			}
			name := ExtractCompanyName(r.Title)
			website := CleanURL(r.URL)
			if !IsValidLead(name, website) {
				continue
			}
			key := siteKey(website)
			if seen[key] {
				continue
			}

			email, found := c.contacts.FindContactEmail(ctx, session, website)
			cand := LeadCandidate{
				CompanyName: name,
				WebsiteURL:  website,
				Snippet:     r.Snippet,
			}
			if found {
				cand.ContactEmail = &email
			}
			seen[key] = true
			leads = append(leads, cand)
			c.metrics.LeadScraped(found)
			log.Debug("scrape: candidate collected",
				zap.String("company", name),
				zap.String("url", website),
				zap.Bool("has_email", found),
			)

			if err := c.candidatePacer.Pause(ctx); err != nil {
				return truncate(leads, n), eris.Wrap(err, "scrape: scrape leads")
			}
		}

		if len(leads) >= n {
			break
		}
		if err := c.queryPacer.Pause(ctx); err != nil {
			return truncate(leads, n), eris.Wrap(err, "scrape: scrape leads")
		}
	}

	log.Info("scrape: leads collected", zap.Int("requested", n), zap.Int("found", len(leads)))
	return truncate(leads, n), nil
}

func truncate(leads []LeadCandidate, n int) []LeadCandidate {
	if len(leads) > n {
		return leads[:n]
	}
	return leads
}
