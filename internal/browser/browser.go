// Package browser provides scoped page-loading sessions backed by either
// plain HTTP or headless Chrome, plus HTML helpers built on goquery.
package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Page is a loaded document.
type Page struct {
	// URL is the final location after redirects.
	URL string
	// StatusCode is 0 when the backend does not expose it.
	StatusCode int
	// Header is nil when the backend does not expose response headers.
	Header http.Header
	HTML   string
}

// CheckBlock reports whether the page is an anti-bot challenge. Sessions
// only reject blocks signalled by an error status, so callers that need
// interstitial detection (search result pages) check the body here.
func CheckBlock(p *Page) error {
	if bt := DetectBlock(p.StatusCode, p.Header, []byte(p.HTML)); bt != BlockNone {
		return &BlockedError{URL: p.URL, Type: bt}
	}
	return nil
}

// Session loads pages. A session is owned by exactly one scrape call or page
// fetch and must be closed before that operation returns.
type Session interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) (*Page, error)
	Close() error
}

// Launcher opens new sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
	Name() string
}

// BlockedError reports a page that was served an anti-bot challenge.
type BlockedError struct {
	URL  string
	Type BlockType
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("browser: blocked (%s) at %s", e.Type, e.URL)
}

// Options configures a launcher.
type Options struct {
	Backend           string // "http" or "chrome"
	Headless          bool
	UserAgent         string
	RequestsPerSecond float64
}

// NewLauncher returns the launcher for the configured backend.
func NewLauncher(opts Options) (Launcher, error) {
	switch opts.Backend {
	case "", "http":
		return NewHTTPLauncher(opts), nil
	case "chrome":
		return NewChromeLauncher(opts), nil
	default:
		return nil, eris.Errorf("browser: unknown backend %q", opts.Backend)
	}
}

// navigateContext derives the per-navigation context.
func navigateContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
