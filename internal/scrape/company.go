package scrape

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	titleCutRe = []*regexp.Regexp{
		regexp.MustCompile(`\s*-\s*.*$`),
		regexp.MustCompile(`\s*\|\s*.*$`),
		regexp.MustCompile(`\s*\.\s*.*$`),
	}
	companySuffixRe = func() []*regexp.Regexp {
		var res []*regexp.Regexp
		for _, s := range []string{"Inc", "LLC", "Corp", "Ltd", "Company", "Co"} {
			res = append(res, regexp.MustCompile(`(?i)\s+`+s+`\.?$`))
		}
		return res
	}()
)

// ExtractCompanyName derives a company name from a search result title: text
// after the first "-", "|" or "." is dropped, then trailing corporate suffixes
// are stripped.
func ExtractCompanyName(title string) string {
	name := title
	for _, re := range titleCutRe {
		name = re.ReplaceAllString(name, "")
	}
	name = strings.TrimSpace(name)
	for _, re := range companySuffixRe {
		name = re.ReplaceAllString(name, "")
	}
	return strings.TrimSpace(name)
}

// CleanURL reduces a URL to scheme and host. Input that does not parse as an
// absolute URL is returned unchanged.
func CleanURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

// IsValidLead reports whether a candidate has a usable name and website.
func IsValidLead(companyName, websiteURL string) bool {
	return utf8.RuneCountInString(companyName) > 2 && strings.HasPrefix(websiteURL, "http")
}

var (
	excludeKeywords = []string{
		"wikipedia", "linkedin", "facebook", "twitter", "instagram", "youtube",
		"indeed", "glassdoor", "yelp", "google", "maps", "directory",
	}
	businessKeywords = []string{
		"company", "business", "services", "solutions", "inc", "llc", "corp", "ltd",
		"agency", "firm", "group", "enterprises", "consulting", "professional",
	}
	businessTLDRe = regexp.MustCompile(`\.(com|org|net|biz)`)
)

// IsBusinessResult applies the business-likeness filter to a search result.
// Exclusion keywords win over business keywords.
func IsBusinessResult(title, snippet, rawURL string) bool {
	text := strings.ToLower(title + " " + snippet + " " + rawURL)
	for _, kw := range excludeKeywords {
		if strings.Contains(text, kw) {
			return false
		}
	}
	for _, kw := range businessKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return businessTLDRe.MatchString(rawURL) && !strings.Contains(text, "blog")
}

// siteKey normalizes a cleaned website URL for duplicate detection.
func siteKey(websiteURL string) string {
	key := strings.ToLower(websiteURL)
	key = strings.TrimPrefix(key, "https://")
	key = strings.TrimPrefix(key, "http://")
	return strings.TrimPrefix(key, "www.")
}
