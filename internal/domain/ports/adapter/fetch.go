package adapter

import "context"

// PageFetcher retrieves a posting's page and reduces it to readable text.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (text string, err error)
}

// CrawlPolicy decides per-platform whether page content may be fetched.
// Unknown platforms default to allowed.
type CrawlPolicy interface {
	IsCrawlable(url string) bool
	// SkipReason returns a human-readable reason when crawling is denied,
	// or "" when it is allowed.
	SkipReason(url string) string
}
