// File: internal/infra/adapters/scrape/policy.go
package scrape

import (
	"net/url"
	"strings"

	"jobsieve/internal/domain/ports/adapter"
)

var _ adapter.CrawlPolicy = (*HostPolicy)(nil)

// HostPolicy denies fetching for hosts that block or forbid automated
// access. Matching is by case-insensitive host substring; unknown hosts
// are allowed.
type HostPolicy struct {
	denied  []string
	reasons map[string]string
}

func NewHostPolicy(denied []string, reasons map[string]string) *HostPolicy {
	lowered := make([]string, 0, len(denied))
	for _, d := range denied {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			lowered = append(lowered, d)
		}
	}
	normReasons := make(map[string]string, len(reasons))
	for k, v := range reasons {
		normReasons[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &HostPolicy{denied: lowered, reasons: normReasons}
}

func (p *HostPolicy) IsCrawlable(rawURL string) bool {
	return p.match(rawURL) == ""
}

func (p *HostPolicy) SkipReason(rawURL string) string {
	m := p.match(rawURL)
	if m == "" {
		return ""
	}
	if reason, ok := p.reasons[m]; ok {
		return reason
	}
	return "fetching disabled for " + m
}

// match returns the denied substring the URL's host hits, or "".
func (p *HostPolicy) match(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range p.denied {
		if strings.Contains(host, d) {
			return d
		}
	}
	return ""
}
