package browser

import (
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 2 << 20

// HTTPLauncher opens sessions that load pages with net/http. All sessions
// from one launcher share a navigation rate limiter.
type HTTPLauncher struct {
	transport http.RoundTripper
	userAgent string
	limiter   *rate.Limiter
}

// NewHTTPLauncher creates an HTTPLauncher.
func NewHTTPLauncher(opts Options) *HTTPLauncher {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &HTTPLauncher{
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (l *HTTPLauncher) Name() string { return "http" }

// Launch opens a session with its own cookie jar.
func (l *HTTPLauncher) Launch(_ context.Context) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, eris.Wrap(err, "browser: http: cookie jar")
	}
	return &httpSession{
		client:    &http.Client{Transport: l.transport, Jar: jar},
		userAgent: l.userAgent,
		limiter:   l.limiter,
	}, nil
}

type httpSession struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	closed    bool
}

func (s *httpSession) Navigate(ctx context.Context, target string, timeout time.Duration) (*Page, error) {
	if s.closed {
		return nil, eris.New("browser: http: session closed")
	}
	ctx, cancel := navigateContext(ctx, timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "browser: http: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "browser: http: create request")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: http: fetch %s", target)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp)
	if err != nil {
		return nil, eris.Wrapf(err, "browser: http: read %s", target)
	}

	if resp.StatusCode >= 400 {
		if bt := DetectBlock(resp.StatusCode, resp.Header, body); bt != BlockNone {
			return nil, &BlockedError{URL: target, Type: bt}
		}
		return nil, eris.Errorf("browser: http: status %d for %s", resp.StatusCode, target)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		HTML:       string(body),
	}, nil
}

func (s *httpSession) Close() error {
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}

// readBody reads up to maxBodyBytes and decodes non-UTF-8 charsets declared
// in the Content-Type header.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = io.LimitReader(resp.Body, maxBodyBytes)
	if cs := declaredCharset(resp.Header.Get("Content-Type")); cs != "" && cs != "utf-8" {
		if enc, err := htmlindex.Get(cs); err == nil {
			r = enc.NewDecoder().Reader(r)
		}
	}
	return io.ReadAll(r)
}

func declaredCharset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}
