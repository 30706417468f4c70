//go:build !integration

package postgres

import (
	"context"
	"time"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/repository"
	red "jobsieve/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerKeywordRepo mocks the database repository the keyword cache
// decorator wraps.
type mockInnerKeywordRepo struct {
	ReplaceAllFunc   func(ctx context.Context, texts []string) ([]*model.Keyword, error)
	ListAllFunc      func(ctx context.Context, tx repository.Tx) ([]*model.Keyword, error)
	ListEmbeddedFunc func(ctx context.Context, tx repository.Tx, modelTag string) ([]*model.Keyword, error)
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.Keyword, error)
	SetEmbeddingFunc func(ctx context.Context, tx repository.Tx, id string, vector []float32, modelTag string) error
}

var _ repository.KeywordRepository = (*mockInnerKeywordRepo)(nil)

func (m *mockInnerKeywordRepo) ReplaceAll(ctx context.Context, texts []string) ([]*model.Keyword, error) {
	return m.ReplaceAllFunc(ctx, texts)
}
func (m *mockInnerKeywordRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Keyword, error) {
	return m.ListAllFunc(ctx, tx)
}
func (m *mockInnerKeywordRepo) ListEmbedded(ctx context.Context, tx repository.Tx, modelTag string) ([]*model.Keyword, error) {
	return m.ListEmbeddedFunc(ctx, tx, modelTag)
}
func (m *mockInnerKeywordRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Keyword, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerKeywordRepo) SetEmbedding(ctx context.Context, tx repository.Tx, id string, vector []float32, modelTag string) error {
	return m.SetEmbeddingFunc(ctx, tx, id, vector, modelTag)
}

// mockRedisClient mocks the Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", errNoCacheEntry
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
