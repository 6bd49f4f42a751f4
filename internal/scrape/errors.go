package scrape

import "fmt"

// ScrapeError reports a failed search query. The coordinator treats the query
// as having returned no results.
type ScrapeError struct {
	Query string
	Err   error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape: query %q: %v", e.Query, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// ExtractionError reports a candidate page that could not be loaded or
// parsed. The page is skipped.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("scrape: extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
