package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html>
<head><title> Acme Plumbing | Austin </title><style>.x{color:red}</style></head>
<body>
<header>Site header</header>
<nav><a href="/about-us">About</a> <a href="contact.html">Contact</a></nav>
<main>
  <h1>Welcome</h1>
  <p>We fix   pipes.</p>
  <script>var email = "hidden@acme.com";</script>
  <a href="mailto:Info@Acme.com?subject=hi">Email us</a>
  <a href="#top">Top</a>
  <a href="javascript:void(0)">Nope</a>
  <a href="https://other.example/partners">Partners</a>
</main>
<footer>Footer text office@acme.com</footer>
</body></html>`

func parseSample(t *testing.T) *Document {
	t.Helper()
	doc, err := Parse(&Page{URL: "https://acme.com/home/", HTML: samplePage})
	require.NoError(t, err)
	return doc
}

func TestDocument_MainText(t *testing.T) {
	text := parseSample(t).MainText()
	assert.Contains(t, text, "Welcome We fix pipes.")
	assert.NotContains(t, text, "hidden@acme.com")
	assert.NotContains(t, text, "Footer text")
	assert.NotContains(t, text, "Site header")
}

func TestDocument_MainTextFallsBackToBody(t *testing.T) {
	doc, err := Parse(&Page{URL: "https://x.com", HTML: `<html><body><nav>menu</nav><div>Only body</div><footer>f</footer></body></html>`})
	require.NoError(t, err)
	assert.Equal(t, "Only body", doc.MainText())
}

func TestDocument_BodyText(t *testing.T) {
	text := parseSample(t).BodyText()
	assert.Contains(t, text, "office@acme.com")
	assert.Contains(t, text, "Site header")
	assert.NotContains(t, text, "hidden@acme.com")
	assert.NotContains(t, text, "color:red")
}

func TestDocument_Links(t *testing.T) {
	links := parseSample(t).Links()
	require.Len(t, links, 3)
	assert.Equal(t, Link{Text: "About", Href: "https://acme.com/about-us"}, links[0])
	assert.Equal(t, Link{Text: "Contact", Href: "https://acme.com/home/contact.html"}, links[1])
	assert.Equal(t, "https://other.example/partners", links[2].Href)
}

func TestDocument_MailtoAddresses(t *testing.T) {
	assert.Equal(t, []string{"Info@Acme.com"}, parseSample(t).MailtoAddresses())
}
