package enrich

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

type fakeContent struct {
	pages map[string]string
	err   error
}

func (f *fakeContent) FetchText(_ context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

// fakeText answers by system prompt. fail, when set, is consulted before
// answering and may return an error for a given stage call.
type fakeText struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts []string
	fail    func(system string, call int) error
}

func (f *fakeText) Generate(_ context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[system]++
	f.prompts = append(f.prompts, prompt)
	if f.fail != nil {
		if err := f.fail(system, f.calls[system]); err != nil {
			return "", err
		}
	}
	switch system {
	case brandAnalysisSystem:
		return "Industry: plumbing", nil
	case appConceptSystem:
		return "Concept 1: PipePal", nil
	case imagePromptSystem:
		return "  a blue plumbing app  ", nil
	case emailSystem:
		return "Subject: An app for you\n\nHi there", nil
	}
	return "", nil
}

type fakeImages struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("\x89PNG"), nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedCampaign(t *testing.T, s store.Store, names ...string) (int64, []model.Lead) {
	t.Helper()
	ctx := context.Background()
	c, err := s.CreateCampaign(ctx, model.CampaignRequest{BusinessType: "Plumbing", Location: "Austin", NumberOfLeads: len(names)})
	require.NoError(t, err)

	var leads []model.Lead
	for _, n := range names {
		l, err := s.CreateLead(ctx, c.ID, model.NewLead{
			CompanyName:  n,
			WebsiteURL:   "https://" + n + ".com",
			ContactEmail: model.StringPtr("hello@" + n + ".com"),
		})
		require.NoError(t, err)
		leads = append(leads, *l)
	}
	return c.ID, leads
}
