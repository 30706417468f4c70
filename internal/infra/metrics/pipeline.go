package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(postingsDiscoveredTotal, postingsBlacklistedTotal, scansTotal, fetchesTotal)
}

var postingsDiscoveredTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postings_discovered_total",
		Help: "Postings found during extraction, labeled new vs refreshed.",
	},
	[]string{"result"}, // 'new', 'refreshed'
)

var postingsBlacklistedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "postings_blacklisted_total",
		Help: "Postings suppressed by the semantic filter, labeled by trigger side.",
	},
	[]string{"side"}, // 'posting', 'keyword'
)

var scansTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "mail_scans_total",
		Help: "Mailbox scan cycles by outcome.",
	},
	[]string{"status"}, // 'ok', 'locked', 'error'
)

var fetchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "page_fetches_total",
		Help: "Posting page fetch attempts by outcome.",
	},
	[]string{"status"}, // 'ok', 'denied', 'rate_limited', 'error'
)

func IncPostingDiscovered(isNew bool) {
	r := "refreshed"
	if isNew {
		r = "new"
	}
	postingsDiscoveredTotal.WithLabelValues(r).Inc()
}

func IncPostingBlacklisted(side string) {
	postingsBlacklistedTotal.WithLabelValues(norm(side)).Inc()
}

func IncScan(status string) {
	scansTotal.WithLabelValues(norm(status)).Inc()
}

func IncPageFetch(status string) {
	fetchesTotal.WithLabelValues(norm(status)).Inc()
}
