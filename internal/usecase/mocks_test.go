// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
)

// memPostingRepo is a small in-memory implementation used by unit tests.
type memPostingRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.Posting // by id
	byURL     map[string]string         // url -> id
	upsertErr error
}

func newMemPostingRepo() *memPostingRepo {
	return &memPostingRepo{store: make(map[string]*model.Posting), byURL: make(map[string]string)}
}

func (m *memPostingRepo) Upsert(ctx context.Context, _ repository.Tx, p *model.Posting) (string, bool, error) {
	if m.upsertErr != nil {
		return "", false, m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byURL[p.URL]; ok {
		existing := m.store[id]
		if p.Title != "" {
			existing.Title = p.Title
		}
		if p.Description != nil {
			existing.Description = p.Description
		}
		if p.Salary.Min != nil {
			existing.Salary.Min = p.Salary.Min
		}
		if p.Salary.Max != nil {
			existing.Salary.Max = p.Salary.Max
		}
		existing.LastSeenAt = time.Now()
		return id, false, nil
	}
	cp := *p
	m.store[p.ID] = &cp
	m.byURL[p.URL] = p.ID
	return p.ID, true, nil
}

func (m *memPostingRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPostingRepo) List(ctx context.Context, _ repository.Tx, f model.PostingFilter) ([]*model.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Posting
	for _, p := range m.store {
		if f.Blacklisted != nil && p.Blacklisted != *f.Blacklisted {
			continue
		}
		if f.State != nil && p.State != *f.State {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Search)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPostingRepo) Delete(ctx context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byURL, p.URL)
	delete(m.store, id)
	return nil
}

func (m *memPostingRepo) SetState(ctx context.Context, _ repository.Tx, id string, state model.ProcessingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.State.CanTransitionTo(state) {
		p.State = state
	}
	return nil
}

func (m *memPostingRepo) SetBlacklisted(ctx context.Context, _ repository.Tx, id string, b bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Blacklisted = b
	return nil
}

func (m *memPostingRepo) ResetAllBlacklisted(ctx context.Context, _ repository.Tx) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.store {
		if p.Blacklisted {
			p.Blacklisted = false
			n++
		}
	}
	return n, nil
}

func (m *memPostingRepo) UpdateEnrichment(ctx context.Context, _ repository.Tx, id string, description *string, salary model.Salary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if description != nil {
		p.Description = description
	}
	if salary.Min != nil {
		p.Salary.Min = salary.Min
	}
	if salary.Max != nil {
		p.Salary.Max = salary.Max
	}
	if salary.Currency != nil {
		p.Salary.Currency = salary.Currency
	}
	if salary.Period != nil {
		p.Salary.Period = salary.Period
	}
	return nil
}

func (m *memPostingRepo) SetEmbedding(ctx context.Context, _ repository.Tx, id string, vec []float32, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Embedding = append([]float32(nil), vec...)
	p.EmbeddingModel = tag
	return nil
}

func (m *memPostingRepo) ListWithoutEmbedding(ctx context.Context, _ repository.Tx, tag string, limit int) ([]*model.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Posting
	for _, p := range m.store {
		if p.HasEmbedding(tag) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memPostingRepo) ListEmbedded(ctx context.Context, _ repository.Tx, tag string, excludeBlacklisted bool) ([]*model.Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Posting
	for _, p := range m.store {
		if !p.HasEmbedding(tag) {
			continue
		}
		if excludeBlacklisted && p.Blacklisted {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// memKeywordRepo implements KeywordRepository in memory.
type memKeywordRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Keyword
	postings *memPostingRepo // ReplaceAll resets blacklist flags here
}

func newMemKeywordRepo(postings *memPostingRepo) *memKeywordRepo {
	return &memKeywordRepo{store: make(map[string]*model.Keyword), postings: postings}
}

func (m *memKeywordRepo) ReplaceAll(ctx context.Context, texts []string) ([]*model.Keyword, error) {
	m.mu.Lock()
	m.store = make(map[string]*model.Keyword)
	out := make([]*model.Keyword, 0, len(texts))
	for _, t := range texts {
		kw := model.NewKeyword(t)
		m.store[kw.ID] = kw
		cp := *kw
		out = append(out, &cp)
	}
	m.mu.Unlock()
	if m.postings != nil {
		_, _ = m.postings.ResetAllBlacklisted(ctx, nil)
	}
	return out, nil
}

func (m *memKeywordRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.Keyword, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Keyword
	for _, k := range m.store {
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memKeywordRepo) ListEmbedded(ctx context.Context, _ repository.Tx, tag string) ([]*model.Keyword, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Keyword
	for _, k := range m.store {
		if !k.HasEmbedding(tag) {
			continue
		}
		cp := *k
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memKeywordRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Keyword, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *memKeywordRepo) SetEmbedding(ctx context.Context, _ repository.Tx, id string, vec []float32, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	k.Embedding = append([]float32(nil), vec...)
	k.EmbeddingModel = tag
	return nil
}

// memMessageRepo implements SourceMessageRepository in memory.
type memMessageRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SourceMessage
	byPID map[string]string
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{store: make(map[string]*model.SourceMessage), byPID: make(map[string]string)}
}

func (m *memMessageRepo) Save(ctx context.Context, _ repository.Tx, msg *model.SourceMessage) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byPID[msg.ProviderID]; ok {
		existing := m.store[id]
		existing.Subject = msg.Subject
		existing.Body = msg.Body
		return id, false, nil
	}
	if msg.ID == "" {
		msg.ID = "msg-" + msg.ProviderID
	}
	cp := *msg
	m.store[msg.ID] = &cp
	m.byPID[msg.ProviderID] = msg.ID
	return msg.ID, true, nil
}

func (m *memMessageRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.SourceMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *memMessageRepo) ListUnscanned(ctx context.Context, _ repository.Tx, limit int) ([]*model.SourceMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SourceMessage
	for _, msg := range m.store {
		if msg.Scanned {
			continue
		}
		cp := *msg
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memMessageRepo) MarkScanned(ctx context.Context, _ repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	msg.Scanned = true
	return nil
}

// memQueue records enqueued tasks instead of dispatching them.
type memQueue struct {
	mu         sync.Mutex
	tasks      []*model.Task
	enqueueErr error
}

func (q *memQueue) Enqueue(ctx context.Context, t *model.Task) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return nil
}

func (q *memQueue) Dequeue(ctx context.Context, kind model.TaskKind, block time.Duration) (*model.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.tasks {
		if t.Kind == kind {
			q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
			return t, nil
		}
	}
	return nil, domain.ErrQueueEmpty
}

func (q *memQueue) Ack(ctx context.Context, t *model.Task) error   { return nil }
func (q *memQueue) Bury(ctx context.Context, t *model.Task) error  { return nil }
func (q *memQueue) Retry(ctx context.Context, t *model.Task, d time.Duration) error {
	return q.Enqueue(ctx, t)
}

func (q *memQueue) Depth(ctx context.Context, kind model.TaskKind) (adapter.QueueDepth, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int64
	for _, t := range q.tasks {
		if t.Kind == kind {
			n++
		}
	}
	return adapter.QueueDepth{Waiting: n}, nil
}

func (q *memQueue) Dead(ctx context.Context, kind model.TaskKind, limit int64) ([]*model.Task, error) {
	return nil, nil
}

func (q *memQueue) kinds() map[model.TaskKind]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[model.TaskKind]int)
	for _, t := range q.tasks {
		out[t.Kind]++
	}
	return out
}

// fakeEmbedder maps exact strings to fixed vectors; unknown inputs get a
// default vector orthogonal to everything configured.
type fakeEmbedder struct {
	vectors map[string][]float32
	dflt    []float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.dflt != nil {
		return f.dflt, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fakeEmbedder) ModelTag() string { return "test-model" }
func (f *fakeEmbedder) Dimensions() int  { return 3 }

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	return f.text, f.err
}

// memNotifier records events for assertions.
type memNotifier struct {
	mu      sync.Mutex
	removed []string // posting ids
	scans   []model.ScanSummary
}

func (n *memNotifier) PostingRemoved(ctx context.Context, postingID, title, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, postingID)
}

func (n *memNotifier) ScanFinished(ctx context.Context, s model.ScanSummary) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scans = append(n.scans, s)
}

type fakeMail struct {
	msgs []*model.SourceMessage
	err  error
}

func (f *fakeMail) FetchJobRelated(ctx context.Context, since time.Time) ([]*model.SourceMessage, error) {
	return f.msgs, f.err
}

// memLocker grants the lock unless held.
type memLocker struct {
	mu   sync.Mutex
	held bool
}

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return "", domain.ErrScanInProgress
	}
	l.held = true
	return "token", nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
