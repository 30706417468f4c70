// File: internal/usecase/extract_uc.go
package usecase

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"jobsieve/internal/config"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
	"jobsieve/internal/infra/logging"
	"jobsieve/internal/infra/metrics"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)

// pathHints accept a URL no job-board pattern matched when its path still
// looks like a posting.
var pathHints = []string{"/job/", "/jobs/", "/career/", "/careers/", "/vacanc", "/position"}

// trackingParams stripped during URL normalization. The stored URL keeps
// its original form; normalization only drives dedup.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "ref": {}, "trk": {}, "source": {}, "fbclid": {}, "gclid": {},
}

var replyPrefix = regexp.MustCompile(`(?i)^(re|fwd?|aw)(\[\d+\])?:\s*`)
var bracketTag = regexp.MustCompile(`^[\[(][^\])]*[\])]\s*`)

// ExtractUseCase turns a job-related email into pending postings. Repeat
// delivery of the same message is a no-op: the message carries a scanned
// flag and posting creation dedupes by URL.
type ExtractUseCase struct {
	messages repository.SourceMessageRepository
	postings repository.PostingRepository
	queue    adapter.TaskQueue
	cfg      config.ExtractConfig
	tracking map[string]struct{}
	logger   zerolog.Logger
}

func NewExtractUseCase(
	messages repository.SourceMessageRepository,
	postings repository.PostingRepository,
	queue adapter.TaskQueue,
	cfg config.ExtractConfig,
	logger *zerolog.Logger,
) *ExtractUseCase {
	tracking := make(map[string]struct{}, len(trackingParams)+len(cfg.TrackingParams))
	for p := range trackingParams {
		tracking[p] = struct{}{}
	}
	for _, p := range cfg.TrackingParams {
		tracking[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return &ExtractUseCase{
		messages: messages,
		postings: postings,
		queue:    queue,
		cfg:      cfg,
		tracking: tracking,
		logger:   logger.With().Str("component", "extract_uc").Logger(),
	}
}

// Run extracts postings from one message. A malformed candidate is skipped,
// not fatal; the message is marked scanned exactly once at the end.
func (uc *ExtractUseCase) Run(ctx context.Context, messageID string) error {
	ctx = logging.WithMessageID(ctx, messageID)
	msg, err := uc.messages.FindByID(ctx, nil, messageID)
	if err != nil {
		return fmt.Errorf("load message %s: %w", messageID, err)
	}
	if msg.Scanned {
		return nil
	}

	candidates := uc.Harvest(msg.Subject, msg.Body)

	log := logging.With(ctx, &uc.logger)
	var failed int
	for _, c := range candidates {
		p := model.NewPosting(c.Title, c.URL, &msg.ID)
		id, isNew, err := uc.postings.Upsert(ctx, nil, p)
		if err != nil {
			failed++
			log.Warn().Err(err).Str("url", c.URL).Msg("posting upsert failed, candidate skipped")
			continue
		}
		metrics.IncPostingDiscovered(isNew)
		if !isNew {
			continue
		}
		if err := uc.queue.Enqueue(ctx, model.NewEnrichTask(id)); err != nil {
			failed++
			log.Warn().Err(err).Str("posting_id", id).Msg("enrich enqueue failed")
		}
	}
	if failed > 0 && failed == len(candidates) {
		return fmt.Errorf("all %d candidates in message %s failed", failed, messageID)
	}

	if err := uc.messages.MarkScanned(ctx, nil, msg.ID); err != nil {
		return fmt.Errorf("mark scanned %s: %w", msg.ID, err)
	}
	log.Info().Int("candidates", len(candidates)).Int("failed", failed).Msg("message extracted")
	return nil
}

// Candidate is one deduplicated (title, url) pair found in a message body.
type Candidate struct {
	Title string
	URL   string
}

// Harvest pulls job posting candidates out of an email. URLs are filtered
// against the job-board allow-list with a path-hint fallback, deduplicated
// under tracking-parameter normalization, and paired with a title from the
// surrounding text or the subject line.
func (uc *ExtractUseCase) Harvest(subject, body string) []Candidate {
	lines := strings.Split(body, "\n")
	fallbackTitle := CleanSubject(subject)

	type found struct {
		url  string
		line int
	}
	var hits []found
	for i, line := range lines {
		for _, raw := range urlPattern.FindAllString(line, -1) {
			raw = strings.TrimRight(raw, ".,;:!?")
			if !uc.isJobURL(raw) {
				continue
			}
			hits = append(hits, found{url: raw, line: i})
		}
	}

	seen := make(map[string]struct{}, len(hits))
	var out []Candidate
	for _, h := range hits {
		norm := uc.normalizeURL(h.url)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}

		title := titleNear(lines, h.line, h.url)
		if title == "" {
			title = fallbackTitle
		}
		if title == "" {
			title = h.url
		}
		out = append(out, Candidate{Title: truncate(title, uc.cfg.TitleMaxLen), URL: h.url})
	}
	return out
}

func (uc *ExtractUseCase) isJobURL(raw string) bool {
	lowered := strings.ToLower(raw)
	for _, pat := range uc.cfg.JobBoardPatterns {
		if pat != "" && strings.Contains(lowered, strings.ToLower(pat)) {
			return true
		}
	}
	for _, hint := range pathHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}

// normalizeURL produces the dedup key: scheme and trailing slash collapsed,
// tracking parameters removed, remaining query sorted.
func (uc *ExtractUseCase) normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for param := range q {
		if _, tracked := uc.tracking[strings.ToLower(param)]; tracked {
			q.Del(param)
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k) + "=" + url.QueryEscape(v))
		}
	}
	host := strings.ToLower(u.Hostname())
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	if sb.Len() == 0 {
		return host + path
	}
	return host + path + "?" + sb.String()
}

// titleNear scans the URL's own line and the two lines above it for an
// adjacent title.
func titleNear(lines []string, at int, rawURL string) string {
	// Same line: "Senior Engineer - https://..." or "Senior Engineer: https://...".
	line := lines[at]
	if idx := strings.Index(line, rawURL); idx > 0 {
		prefix := strings.TrimSpace(line[:idx])
		prefix = strings.TrimRight(prefix, "-–—:|> \t")
		prefix = strings.TrimSpace(prefix)
		if isTitleLike(prefix) {
			return prefix
		}
	}
	// Lines above, nearest first.
	for back := 1; back <= 2; back++ {
		i := at - back
		if i < 0 {
			break
		}
		cand := strings.TrimSpace(lines[i])
		if isTitleLike(cand) && !strings.Contains(cand, "http") {
			return cand
		}
	}
	return ""
}

func isTitleLike(s string) bool {
	if len(s) < 4 || len(s) > 200 {
		return false
	}
	// Reject lines that are mostly punctuation or a greeting.
	letters := 0
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			letters++
		}
	}
	return letters*2 >= len(s)
}

// CleanSubject derives a posting title from a message subject: reply and
// forward prefixes, leading bracketed tags and trailing promo suffixes are
// stripped.
func CleanSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		next := replyPrefix.ReplaceAllString(s, "")
		next = bracketTag.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}
	// Promotional tails like " | Apply now" or " - Job alert".
	for _, sep := range []string{" | ", " – ", " — "} {
		if idx := strings.Index(s, sep); idx > 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndexByte(cut, ' '); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
