// File: internal/infra/adapters/scrape/fetcher.go
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/infra/metrics"
	"jobsieve/internal/infra/redis"
)

const (
	userAgent       = "jobsieve/1.0 (+job posting enrichment)"
	maxBodyBytes    = 4 << 20
	rateLimitWindow = time.Minute
)

// Compile-time check
var _ adapter.PageFetcher = (*PageFetcher)(nil)

// PageFetcher downloads a posting page and reduces it to readable text.
// Fetches are throttled per host through the shared Redis limiter.
type PageFetcher struct {
	client    *http.Client
	policy    adapter.CrawlPolicy
	limiter   *redis.RateLimiter
	hostLimit int
	logger    zerolog.Logger
}

func NewPageFetcher(policy adapter.CrawlPolicy, limiter *redis.RateLimiter, timeout time.Duration, hostLimit int, logger *zerolog.Logger) *PageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PageFetcher{
		client:    &http.Client{Timeout: timeout},
		policy:    policy,
		limiter:   limiter,
		hostLimit: hostLimit,
		logger:    logger.With().Str("component", "page_fetcher").Logger(),
	}
}

func (f *PageFetcher) FetchPage(ctx context.Context, rawURL string) (string, error) {
	if f.policy != nil && !f.policy.IsCrawlable(rawURL) {
		metrics.IncPageFetch("denied")
		return "", fmt.Errorf("%w: %s", domain.ErrCrawlForbidden, f.policy.SkipReason(rawURL))
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		metrics.IncPageFetch("error")
		return "", fmt.Errorf("%w: bad url %q", domain.ErrInvalidArgument, rawURL)
	}

	if f.limiter != nil && f.hostLimit > 0 {
		ok, err := f.limiter.Allow(ctx, redis.HostFetchKey(u.Host), f.hostLimit, rateLimitWindow)
		if err != nil {
			f.logger.Warn().Err(err).Str("host", u.Host).Msg("rate limiter unavailable, proceeding")
		} else if !ok {
			metrics.IncPageFetch("rate_limited")
			return "", fmt.Errorf("fetch %s: host rate limit exceeded", u.Host)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		metrics.IncPageFetch("error")
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.IncPageFetch("error")
		return "", fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		metrics.IncPageFetch("error")
		return "", fmt.Errorf("%w: page returned %d", domain.ErrNotFound, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		metrics.IncPageFetch("error")
		return "", fmt.Errorf("fetch %s: unexpected status %d", u.Host, resp.StatusCode)
	}

	text, err := ExtractText(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.IncPageFetch("error")
		return "", err
	}
	metrics.IncPageFetch("ok")
	return text, nil
}

// ExtractText reduces an HTML document to its readable content. Navigation,
// scripts and boilerplate chrome are stripped; content containers are tried
// before falling back to body paragraphs.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, header, footer, nav, aside, form").Remove()

	for _, sel := range []string{"article", "main", "[role='main']", ".content", ".job-description", ".posting-description"} {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if text := collapseWhitespace(container.Text()); len(text) > 50 {
			return text, nil
		}
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return collapseWhitespace(doc.Text()), nil
	}

	var parts []string
	body.Find("p, li, h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); len(t) > 2 {
			parts = append(parts, t)
		}
	})
	if len(parts) > 0 {
		return strings.Join(parts, "\n"), nil
	}
	return collapseWhitespace(body.Text()), nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
