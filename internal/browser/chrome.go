package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// ChromeLauncher opens headless Chrome sessions through chromedp. Each session
// owns its own browser process.
type ChromeLauncher struct {
	headless  bool
	userAgent string
}

// NewChromeLauncher creates a ChromeLauncher.
func NewChromeLauncher(opts Options) *ChromeLauncher {
	return &ChromeLauncher{headless: opts.Headless, userAgent: opts.UserAgent}
}

func (l *ChromeLauncher) Name() string { return "chrome" }

// Launch starts a browser process. The caller must Close the session.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.userAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, eris.Wrap(err, "browser: chrome: launch")
	}
	if err := ctx.Err(); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, eris.Wrap(err, "browser: chrome: launch")
	}

	return &chromeSession{
		ctx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *chromeSession) Navigate(ctx context.Context, target string, timeout time.Duration) (*Page, error) {
	navCtx, cancel := navigateContext(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html, location string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: chrome: navigate %s", target)
	}
	return &Page{URL: location, HTML: html}, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}
