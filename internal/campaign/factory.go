package campaign

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/scrape"
	"github.com/sells-group/prospect-cli/internal/settings"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
	"github.com/sells-group/prospect-cli/pkg/ollama"
	"github.com/sells-group/prospect-cli/pkg/sdwebui"
)

// NewFactory wires the production pipeline. Endpoints, the mockups directory,
// the query delay and the per-page result cap come from settings; everything
// else from cfg.
func NewFactory(cfg *config.Config, st store.Store, m *metrics.Metrics) Factory {
	return func(_ context.Context, cur settings.Settings, sink enrich.EventSink) (*Pipeline, error) {
		launcher, err := browser.NewLauncher(browser.Options{
			Backend:           cfg.Scrape.Browser,
			Headless:          cfg.Scrape.Headless,
			UserAgent:         cfg.Scrape.UserAgent,
			RequestsPerSecond: cfg.Scrape.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}

		var mx scrape.MXChecker
		if cfg.Scrape.VerifyMX {
			mx = scrape.NewDNSMXChecker(cfg.Scrape.DNSServers)
		}

		searcher := scrape.NewSearcher(scrape.SearchConfig{
			BaseURL:       cfg.Scrape.SearchBaseURL,
			Timeout:       cfg.Scrape.SearchTimeout,
			MaxRawResults: cur.MaxLeadsPerSearch,
		}, m)
		contacts := scrape.NewContactExtractor(scrape.ContactConfig{
			HomepageTimeout:    cfg.Scrape.PageTimeout,
			ContactPageTimeout: cfg.Scrape.ContactPageTimeout,
		}, mx)
		coordinator := scrape.NewCoordinator(launcher, searcher, contacts,
			scrape.WithQueryPacer(scrape.JitterPacer{
				Base:   time.Duration(cur.DelayBetweenRequests) * time.Millisecond,
				Jitter: cfg.Scrape.QueryJitter,
			}),
			scrape.WithCandidatePacer(scrape.JitterPacer{
				Base:   cfg.Scrape.CandidateDelay,
				Jitter: cfg.Scrape.CandidateJitter,
			}),
			scrape.WithMetrics(m),
		)

		text, err := NewTextGenerator(cfg, cur)
		if err != nil {
			return nil, err
		}
		images := llm.NewStableDiffusion(sdwebui.NewClient(sdwebui.WithBaseURL(cur.StableDiffusionURL)))

		mockupsDir := cur.MockupsDirectory
		if mockupsDir == "" {
			mockupsDir = cfg.Pipeline.MockupsDir
		}

		retry := resilience.WithRetries(cfg.Generation.Retries)
		retry.OnRetry = resilience.RetryLogger("generation", cfg.Generation.Provider)

		machine := enrich.NewMachine(
			enrich.NewBrowserFetcher(launcher, cfg.Scrape.PageTimeout),
			text,
			images,
			enrich.NewDirMockupWriter(mockupsDir),
			enrich.WithTimeouts(enrich.Timeouts{
				Text:  cfg.Generation.TextTimeout,
				Image: cfg.Generation.ImageTimeout,
			}),
			enrich.WithRetry(retry),
			enrich.WithStageMetrics(m),
		)
		orchestrator := enrich.NewOrchestrator(st, machine,
			enrich.WithEventSink(sink),
			enrich.WithContinueOnError(cfg.Pipeline.ContinueOnLeadErr),
			enrich.WithMetrics(m),
		)

		return &Pipeline{Scraper: coordinator, Processor: orchestrator}, nil
	}
}

// NewTextGenerator selects the text provider named by generation.provider.
func NewTextGenerator(cfg *config.Config, cur settings.Settings) (llm.TextGenerator, error) {
	switch cfg.Generation.Provider {
	case "", "ollama":
		client := ollama.NewClient(ollama.WithBaseURL(cur.OllamaURL), ollama.WithModel(cur.OllamaModel))
		return llm.NewOllama(client, cur.OllamaModel), nil
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("campaign: anthropic.key is required")
		}
		return llm.NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	default:
		return nil, eris.Errorf("campaign: unknown generation provider %q", cfg.Generation.Provider)
	}
}
