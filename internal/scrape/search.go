package scrape

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/metrics"
)

// SearchResult is a single business-like entry from a results page.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchConfig configures a Searcher.
type SearchConfig struct {
	BaseURL string
	Timeout time.Duration
	// MaxRawResults caps how many result entries of a page are examined.
	MaxRawResults int
}

// Searcher issues queries against an HTML search results page.
type Searcher struct {
	cfg     SearchConfig
	metrics *metrics.Metrics
}

// NewSearcher creates a Searcher. Zero config values fall back to the
// DuckDuckGo HTML endpoint, a 30s timeout, and 20 raw results.
func NewSearcher(cfg SearchConfig, m *metrics.Metrics) *Searcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRawResults <= 0 {
		cfg.MaxRawResults = 20
	}
	return &Searcher{cfg: cfg, metrics: m}
}

// Search loads the results page for query and returns up to maxResults
// entries that pass IsBusinessResult. Failures are returned as *ScrapeError.
func (s *Searcher) Search(ctx context.Context, session browser.Session, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	target, err := s.queryURL(query)
	if err != nil {
		return nil, &ScrapeError{Query: query, Err: err}
	}

	page, err := session.Navigate(ctx, target, s.cfg.Timeout)
	if err == nil {
		err = browser.CheckBlock(page)
	}
	if err != nil {
		var be *browser.BlockedError
		if errors.As(err, &be) {
			s.metrics.SearchQuery("blocked")
		} else {
			s.metrics.SearchQuery("error")
		}
		return nil, &ScrapeError{Query: query, Err: err}
	}

	doc, err := browser.Parse(page)
	if err != nil {
		s.metrics.SearchQuery("error")
		return nil, &ScrapeError{Query: query, Err: err}
	}

	var results []SearchResult
	examined := 0
	doc.Find(".results .result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if examined >= s.cfg.MaxRawResults {
			return false
		}
		examined++

		if sel.HasClass("result--ad") {
			return true
		}
		link := sel.Find(".result__title a").First()
		if link.Length() == 0 {
			return true
		}
		href, _ := link.Attr("href")
		r := SearchResult{
			Title:   strings.TrimSpace(link.Text()),
			URL:     resolveResultURL(page.URL, href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		}
		if r.URL == "" || !IsBusinessResult(r.Title, r.Snippet, r.URL) {
			return true
		}
		results = append(results, r)
		return len(results) < maxResults
	})

	s.metrics.SearchQuery("ok")
	zap.L().Debug("scrape: search complete",
		zap.String("query", query),
		zap.Int("examined", examined),
		zap.Int("accepted", len(results)),
	)
	return results, nil
}

func (s *Searcher) queryURL(query string) (string, error) {
	u, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", eris.Wrap(err, "scrape: parse search base url")
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// resolveResultURL makes href absolute and unwraps redirect links of the form
// /l/?uddg=<target>.
func resolveResultURL(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base, err := url.Parse(pageURL); err == nil {
		ref = base.ResolveReference(ref)
	}
	if target := ref.Query().Get("uddg"); target != "" && strings.HasPrefix(ref.Path, "/l") {
		return target
	}
	return ref.String()
}
