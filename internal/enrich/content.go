package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
)

// ContentFetcher returns the primary text content of a web page.
type ContentFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// BrowserFetcher loads pages through a browser session scoped to one fetch.
type BrowserFetcher struct {
	launcher browser.Launcher
	timeout  time.Duration
}

// NewBrowserFetcher creates a BrowserFetcher. A zero timeout defaults to 15s.
func NewBrowserFetcher(launcher browser.Launcher, timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &BrowserFetcher{launcher: launcher, timeout: timeout}
}

// FetchText returns the main text of the page with navigation chrome removed.
func (f *BrowserFetcher) FetchText(ctx context.Context, url string) (string, error) {
	session, err := f.launcher.Launch(ctx)
	if err != nil {
		return "", eris.Wrap(err, "enrich: launch browser session")
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			zap.L().Warn("enrich: close browser session", zap.Error(cerr))
		}
	}()

	page, err := session.Navigate(ctx, url, f.timeout)
	if err != nil {
		return "", eris.Wrapf(err, "enrich: load %s", url)
	}
	doc, err := browser.Parse(page)
	if err != nil {
		return "", eris.Wrapf(err, "enrich: parse %s", url)
	}
	return doc.MainText(), nil
}

// unreachableContent is the text analyzed when a site cannot be fetched.
func unreachableContent(url string) string {
	return "Unable to scrape content from " + url
}
