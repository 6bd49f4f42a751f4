package scrape

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/browser"
)

const testSearchBase = "https://search.local/html/"

// fakeSession serves canned pages. Search pages are keyed by query text,
// site pages by URL.
type fakeSession struct {
	mu        sync.Mutex
	searches  map[string]string
	pages     map[string]string
	errs      map[string]error
	navigated []string
	queries   []string
	closed    bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		searches: make(map[string]string),
		pages:    make(map[string]string),
		errs:     make(map[string]error),
	}
}

func (s *fakeSession) Navigate(_ context.Context, target string, _ time.Duration) (*browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, target)

	if err, ok := s.errs[target]; ok {
		return nil, err
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	if u.Scheme+"://"+u.Host+u.Path == testSearchBase {
		q := u.Query().Get("q")
		s.queries = append(s.queries, q)
		if err, ok := s.errs[q]; ok {
			return nil, err
		}
		return &browser.Page{URL: target, StatusCode: 200, HTML: s.searches[q]}, nil
	}

	html, ok := s.pages[target]
	if !ok {
		return nil, eris.Errorf("fake: no page for %s", target)
	}
	return &browser.Page{URL: target, StatusCode: 200, HTML: html}, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type fakeLauncher struct {
	session *fakeSession
	err     error
	calls   int
}

func (l *fakeLauncher) Launch(context.Context) (browser.Session, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.session, nil
}

func (l *fakeLauncher) Name() string { return "fake" }

type resultEntry struct {
	title, href, snippet string
	ad                   bool
}

func resultsPage(entries ...resultEntry) string {
	html := `<html><body><div class="results">`
	for _, e := range entries {
		class := "result"
		if e.ad {
			class += " result--ad"
		}
		html += `<div class="` + class + `"><h2 class="result__title"><a href="` + e.href + `">` + e.title +
			`</a></h2><a class="result__snippet">` + e.snippet + `</a></div>`
	}
	return html + `</div></body></html>`
}
