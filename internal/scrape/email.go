package scrape

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

var rejectedEmailTerms = []string{"noreply", "no-reply", "example", "test", "admin", "webmaster"}

// IsAcceptableEmail reports whether an email token is a plausible contact
// address rather than a role or placeholder address.
func IsAcceptableEmail(email string) bool {
	lower := strings.ToLower(email)
	for _, term := range rejectedEmailTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

// FindEmails returns the acceptable email tokens in text, in order of
// appearance.
func FindEmails(text string) []string {
	var out []string
	for _, tok := range emailRe.FindAllString(text, -1) {
		if IsAcceptableEmail(tok) {
			out = append(out, tok)
		}
	}
	return out
}
