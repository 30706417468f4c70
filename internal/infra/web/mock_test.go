// File: internal/infra/web/mock_test.go
package web

import (
	"context"
	"sync"
	"time"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
	"jobsieve/internal/domain/ports/repository"
)

// --- Mock Repositories (Ports) ---

type mockPostingRepo struct {
	repository.PostingRepository // embed for forward compatibility
	mu                           sync.Mutex
	postings                     []*model.Posting
	ListError                    error
	DeleteError                  error
}

func (m *mockPostingRepo) List(ctx context.Context, _ repository.Tx, f model.PostingFilter) ([]*model.Posting, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Posting
	for _, p := range m.postings {
		if f.Blacklisted != nil && p.Blacklisted != *f.Blacklisted {
			continue
		}
		if f.State != nil && p.State != *f.State {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPostingRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Posting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.postings {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockPostingRepo) Delete(ctx context.Context, _ repository.Tx, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.postings {
		if p.ID == id {
			m.postings = append(m.postings[:i], m.postings[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type mockKeywordRepo struct {
	repository.KeywordRepository
	mu       sync.Mutex
	keywords []*model.Keyword
}

func (m *mockKeywordRepo) ReplaceAll(ctx context.Context, texts []string) ([]*model.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keywords = nil
	for _, t := range texts {
		m.keywords = append(m.keywords, model.NewKeyword(t))
	}
	return m.keywords, nil
}

func (m *mockKeywordRepo) ListAll(ctx context.Context, _ repository.Tx) ([]*model.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Keyword(nil), m.keywords...), nil
}

type mockMessageRepo struct {
	repository.SourceMessageRepository
}

func (m *mockMessageRepo) Save(ctx context.Context, _ repository.Tx, msg *model.SourceMessage) (string, bool, error) {
	return "msg-1", true, nil
}

func (m *mockMessageRepo) ListUnscanned(ctx context.Context, _ repository.Tx, limit int) ([]*model.SourceMessage, error) {
	return nil, nil
}

// --- Mock adapters ---

type mockQueue struct {
	mu    sync.Mutex
	tasks []*model.Task
	dead  []*model.Task
}

func (q *mockQueue) Enqueue(ctx context.Context, t *model.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return nil
}

func (q *mockQueue) Dequeue(ctx context.Context, kind model.TaskKind, block time.Duration) (*model.Task, error) {
	return nil, domain.ErrQueueEmpty
}

func (q *mockQueue) Ack(ctx context.Context, t *model.Task) error                    { return nil }
func (q *mockQueue) Retry(ctx context.Context, t *model.Task, d time.Duration) error { return nil }
func (q *mockQueue) Bury(ctx context.Context, t *model.Task) error                   { return nil }

func (q *mockQueue) Depth(ctx context.Context, kind model.TaskKind) (adapter.QueueDepth, error) {
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

func (q *mockQueue) Dead(ctx context.Context, kind model.TaskKind, limit int64) ([]*model.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*model.Task
	for _, t := range q.dead {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

type mockMail struct {
	msgs []*model.SourceMessage
	err  error
}

func (m *mockMail) FetchJobRelated(ctx context.Context, since time.Time) ([]*model.SourceMessage, error) {
	return m.msgs, m.err
}

type mockLocker struct {
	mu   sync.Mutex
	held bool
}

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return "", domain.ErrScanInProgress
	}
	l.held = true
	return "tok", nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}
