package scrape

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(s *fakeSession) (*Coordinator, *fakeLauncher) {
	l := &fakeLauncher{session: s}
	c := NewCoordinator(l,
		NewSearcher(SearchConfig{BaseURL: testSearchBase}, nil),
		NewContactExtractor(ContactConfig{}, nil),
		WithQueryPacer(NoPacer{}),
		WithCandidatePacer(NoPacer{}),
	)
	return c, l
}

func TestScrapeLeads_EarlyStop(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.searches["plumbing Austin"] = resultsPage(
		resultEntry{title: "Acme Plumbing LLC - Austin", href: "https://acmeplumbing.com/home"},
		resultEntry{title: "Bright Pipes Inc.", href: "https://brightpipes.com"},
		resultEntry{title: "Third Plumbing Company", href: "https://third.com"},
	)
	s.pages["https://acmeplumbing.com"] = `<html><body>hello@acmeplumbing.com</body></html>`
	s.pages["https://brightpipes.com"] = `<html><body>no email</body></html>`

	c, l := newTestCoordinator(s)
	leads, err := c.ScrapeLeads(context.Background(), "plumbing", "Austin", 2)
	require.NoError(t, err)
	require.Len(t, leads, 2)

	assert.Equal(t, "Acme Plumbing", leads[0].CompanyName)
	assert.Equal(t, "https://acmeplumbing.com", leads[0].WebsiteURL)
	require.NotNil(t, leads[0].ContactEmail)
	assert.Equal(t, "hello@acmeplumbing.com", *leads[0].ContactEmail)
	assert.Equal(t, "Bright Pipes", leads[1].CompanyName)
	assert.Nil(t, leads[1].ContactEmail)

	assert.Equal(t, []string{"plumbing Austin"}, s.queries)
	assert.Equal(t, 1, l.calls)
	assert.True(t, s.closed)
}

func TestScrapeLeads_FallsThroughQueries(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.errs["plumbing Austin"] = errors.New("timeout")
	s.searches["plumbing companies Austin"] = resultsPage(
		resultEntry{title: "Acme Plumbing LLC", href: "https://acmeplumbing.com"},
		resultEntry{title: "AB", href: "https://ab.com"},
	)
	s.searches["plumbing services Austin"] = resultsPage(
		resultEntry{title: "Acme Plumbing LLC | Home", href: "https://www.acmeplumbing.com/"},
	)
	s.searches["plumbing business Austin"] = resultsPage(
		resultEntry{title: "Bright Pipes Inc", href: "https://brightpipes.com"},
	)

	c, _ := newTestCoordinator(s)
	leads, err := c.ScrapeLeads(context.Background(), "plumbing", "Austin", 2)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "https://acmeplumbing.com", leads[0].WebsiteURL)
	assert.Equal(t, "https://brightpipes.com", leads[1].WebsiteURL)
	assert.Equal(t, []string{
		"plumbing Austin",
		"plumbing companies Austin",
		"plumbing services Austin",
		"plumbing business Austin",
	}, s.queries)
}

func TestScrapeLeads_NeverExceedsN(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 7} {
		s := newFakeSession()
		for _, q := range PlanQueries("dental", "Boise") {
			s.searches[q] = resultsPage(
				resultEntry{title: "Alpha Dental Group", href: "https://alpha-" + q[:3] + ".com"},
				resultEntry{title: "Beta Dental Group", href: "https://beta.com"},
				resultEntry{title: "Gamma Dental Group", href: "https://gamma.com"},
			)
		}
		c, _ := newTestCoordinator(s)
		leads, err := c.ScrapeLeads(context.Background(), "dental", "Boise", n)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(leads), n)
	}
}

func TestScrapeLeads_Exhausted(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	c, _ := newTestCoordinator(s)
	leads, err := c.ScrapeLeads(context.Background(), "plumbing", "Nowhere", 5)
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.Len(t, s.queries, 6)
	assert.True(t, s.closed)
}

func TestScrapeLeads_LaunchFailure(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(&fakeLauncher{err: errors.New("no chrome")},
		NewSearcher(SearchConfig{BaseURL: testSearchBase}, nil),
		NewContactExtractor(ContactConfig{}, nil))
	_, err := c.ScrapeLeads(context.Background(), "plumbing", "Austin", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chrome")
}

func TestScrapeLeads_Cancelled(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	c, _ := newTestCoordinator(s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ScrapeLeads(ctx, "plumbing", "Austin", 3)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, s.closed)
}

func TestLeadCandidate_NewLead(t *testing.T) {
	t.Parallel()

	email := "hello@acme.com"
	nl := LeadCandidate{CompanyName: "Acme", WebsiteURL: "https://acme.com", ContactEmail: &email}.NewLead()
	assert.Equal(t, "Acme", nl.CompanyName)
	assert.Equal(t, &email, nl.ContactEmail)
}
