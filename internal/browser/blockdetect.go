package browser

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock checks a loaded page for signs of anti-bot protection. header
// may be nil when the page was rendered by a browser.
func DetectBlock(statusCode int, header http.Header, body []byte) BlockType {
	if (statusCode == http.StatusForbidden || statusCode == http.StatusServiceUnavailable) && header != nil {
		if header.Get("cf-ray") != "" || header.Get("cf-cache-status") != "" ||
			strings.EqualFold(header.Get("server"), "cloudflare") {
			return BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return BlockCloudflare
	}

	// Challenge interstitials are small. Full pages often embed a captcha
	// widget in a contact form, which is not a block.
	if len(body) < 20000 && (strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "anomaly-modal") ||
		strings.Contains(lower, "unusual traffic")) {
		return BlockCaptcha
	}

	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return BlockJSShell
		}
	}
	return BlockNone
}
