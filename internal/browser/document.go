package browser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// Link is an anchor with its visible text and absolute href.
type Link struct {
	Text string
	Href string
}

// Document is a parsed page.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse parses a loaded page. Relative links resolve against the page URL.
func Parse(p *Page) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.HTML))
	if err != nil {
		return nil, eris.Wrap(err, "browser: parse html")
	}
	base, _ := url.Parse(p.URL)
	return &Document{doc: doc, base: base}, nil
}

// Find exposes the underlying goquery selection for callers that need
// provider-specific selectors.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// BodyText returns the visible text of <body> with scripts and styles removed.
func (d *Document) BodyText() string {
	body := d.doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return collapseWhitespace(body.Text())
}

// MainText returns the page's primary content: <main> when present, otherwise
// <body>, with script/style/nav/footer/header removed.
func (d *Document) MainText() string {
	sel := d.doc.Find("main").First()
	if sel.Length() == 0 {
		sel = d.doc.Find("body").First()
	}
	sel = sel.Clone()
	sel.Find("script, style, nav, footer, header, noscript, template").Remove()
	return collapseWhitespace(sel.Text())
}

// Links returns every anchor with an http(s) href, resolved to absolute form,
// in document order.
func (d *Document) Links() []Link {
	var links []Link
	d.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		abs := d.resolve(href)
		if abs == "" {
			return
		}
		links = append(links, Link{Text: collapseWhitespace(sel.Text()), Href: abs})
	})
	return links
}

// MailtoAddresses returns the addresses of mailto: anchors, query stripped.
func (d *Document) MailtoAddresses() []string {
	var out []string
	d.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
			return
		}
		addr := href[len("mailto:"):]
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		if addr, err := url.PathUnescape(addr); err == nil && addr != "" {
			out = append(out, strings.TrimSpace(addr))
		}
	})
	return out
}

func (d *Document) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if d.base != nil {
		ref = d.base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
