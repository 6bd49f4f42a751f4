package scrape

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
)

const maxContactPages = 3

// ContactConfig configures a ContactExtractor.
type ContactConfig struct {
	HomepageTimeout    time.Duration
	ContactPageTimeout time.Duration
}

// ContactExtractor finds a contact email on a candidate website by scanning
// the homepage and up to three contact/about pages.
type ContactExtractor struct {
	cfg ContactConfig
	mx  MXChecker
}

// NewContactExtractor creates a ContactExtractor. mx may be nil to skip MX
// verification.
func NewContactExtractor(cfg ContactConfig, mx MXChecker) *ContactExtractor {
	if cfg.HomepageTimeout <= 0 {
		cfg.HomepageTimeout = 15 * time.Second
	}
	if cfg.ContactPageTimeout <= 0 {
		cfg.ContactPageTimeout = 10 * time.Second
	}
	return &ContactExtractor{cfg: cfg, mx: mx}
}

// FindContactEmail returns the first acceptable email found on the site.
// Page load failures are logged and skipped; finding nothing is not an error.
func (e *ContactExtractor) FindContactEmail(ctx context.Context, session browser.Session, websiteURL string) (string, bool) {
	doc, err := e.load(ctx, session, websiteURL, e.cfg.HomepageTimeout)
	if err != nil {
		zap.L().Debug("scrape: homepage unavailable", zap.String("url", websiteURL), zap.Error(err))
		return "", false
	}
	if email, ok := e.scan(ctx, doc); ok {
		return email, true
	}

	for _, link := range contactLinks(doc) {
		if ctx.Err() != nil {
			return "", false
		}
		page, err := e.load(ctx, session, link, e.cfg.ContactPageTimeout)
		if err != nil {
			zap.L().Debug("scrape: contact page unavailable", zap.String("url", link), zap.Error(err))
			continue
		}
		if email, ok := e.scan(ctx, page); ok {
			return email, true
		}
	}
	return "", false
}

func (e *ContactExtractor) load(ctx context.Context, session browser.Session, target string, timeout time.Duration) (*browser.Document, error) {
	page, err := session.Navigate(ctx, target, timeout)
	if err != nil {
		return nil, &ExtractionError{URL: target, Err: err}
	}
	doc, err := browser.Parse(page)
	if err != nil {
		return nil, &ExtractionError{URL: target, Err: err}
	}
	return doc, nil
}

// scan checks page text first, then mailto links.
func (e *ContactExtractor) scan(ctx context.Context, doc *browser.Document) (string, bool) {
	candidates := FindEmails(doc.BodyText())
	for _, addr := range doc.MailtoAddresses() {
		if emailRe.MatchString(addr) && IsAcceptableEmail(addr) {
			candidates = append(candidates, addr)
		}
	}
	for _, email := range candidates {
		if e.mx != nil && !e.mx.HasMX(ctx, email) {
			zap.L().Debug("scrape: email domain has no MX", zap.String("email", email))
			continue
		}
		return email, true
	}
	return "", false
}

// contactLinks returns up to three links whose text or href mentions
// "contact" or "about", in document order.
func contactLinks(doc *browser.Document) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range doc.Links() {
		text := strings.ToLower(l.Text)
		href := strings.ToLower(l.Href)
		if !strings.Contains(text, "contact") && !strings.Contains(text, "about") &&
			!strings.Contains(href, "contact") && !strings.Contains(href, "about") {
			continue
		}
		if seen[l.Href] {
			continue
		}
		seen[l.Href] = true
		out = append(out, l.Href)
		if len(out) == maxContactPages {
			break
		}
	}
	return out
}
