package scrape

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/metrics"
)

func TestSearch_FiltersAndCaps(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["plumbing Austin"] = resultsPage(
		resultEntry{title: "Sponsored Pipes LLC", href: "https://ads.acme.com", ad: true},
		resultEntry{title: "Plumbing - Wikipedia", href: "https://en.wikipedia.org/wiki/Plumbing"},
		resultEntry{title: "Acme Plumbing LLC", href: "/l/?uddg=https%3A%2F%2Facmeplumbing.com%2Fhome", snippet: "Plumbing services"},
		resultEntry{title: "Bright Pipes", href: "https://brightpipes.com", snippet: "Pipes fixed fast"},
		resultEntry{title: "Third Plumbing Company", href: "https://third.com"},
	)

	m := metrics.New()
	searcher := NewSearcher(SearchConfig{BaseURL: testSearchBase}, m)
	results, err := searcher.Search(context.Background(), s, "plumbing Austin", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Acme Plumbing LLC", results[0].Title)
	assert.Equal(t, "https://acmeplumbing.com/home", results[0].URL)
	assert.Equal(t, "Plumbing services", results[0].Snippet)
	assert.Equal(t, "https://brightpipes.com", results[1].URL)
	assert.Equal(t, []string{"plumbing Austin"}, s.queries)
}

func TestSearch_MaxRawResults(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["q"] = resultsPage(
		resultEntry{title: "Plumbing - Wikipedia", href: "https://en.wikipedia.org/wiki/Plumbing"},
		resultEntry{title: "Acme Plumbing LLC", href: "https://acmeplumbing.com"},
	)

	searcher := NewSearcher(SearchConfig{BaseURL: testSearchBase, MaxRawResults: 1}, nil)
	results, err := searcher.Search(context.Background(), s, "q", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ZeroMax(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	searcher := NewSearcher(SearchConfig{BaseURL: testSearchBase}, nil)
	results, err := searcher.Search(context.Background(), s, "q", 0)
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Empty(t, s.navigated)
}

func TestSearch_NavigationError(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.errs["blocked q"] = &browser.BlockedError{URL: testSearchBase, Type: browser.BlockCaptcha}
	s.errs["broken q"] = errors.New("connection reset")

	m := metrics.New()
	searcher := NewSearcher(SearchConfig{BaseURL: testSearchBase}, m)

	_, err := searcher.Search(context.Background(), s, "blocked q", 5)
	var se *ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "blocked q", se.Query)
	var be *browser.BlockedError
	assert.ErrorAs(t, err, &be)

	_, err = searcher.Search(context.Background(), s, "broken q", 5)
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSearch_ChallengePage(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["q"] = `<html><body><div class="anomaly-modal">Unusual traffic from your network. Solve the captcha.</div></body></html>`

	m := metrics.New()
	_, err := NewSearcher(SearchConfig{BaseURL: testSearchBase}, m).Search(context.Background(), s, "q", 5)
	var se *ScrapeError
	require.ErrorAs(t, err, &se)
	var be *browser.BlockedError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, browser.BlockCaptcha, be.Type)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `prospect_search_queries_total{outcome="blocked"} 1`)
}

func TestResolveResultURL(t *testing.T) {
	t.Parallel()

	page := "https://html.duckduckgo.com/html/?q=x"
	assert.Equal(t, "https://acme.com/", resolveResultURL(page, "//duckduckgo.com/l/?uddg=https%3A%2F%2Facme.com%2F&rut=abc"))
	assert.Equal(t, "https://acme.com", resolveResultURL(page, "https://acme.com"))
	assert.Equal(t, "https://html.duckduckgo.com/about", resolveResultURL(page, "/about"))
	assert.Equal(t, "", resolveResultURL(page, ""))
}

func TestSearch_Metrics(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["ok"] = resultsPage()
	m := metrics.New()
	searcher := NewSearcher(SearchConfig{BaseURL: testSearchBase}, m)

	_, err := searcher.Search(context.Background(), s, "ok", 3)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `prospect_search_queries_total{outcome="ok"} 1`)
}
