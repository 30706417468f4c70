package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/repository"
	"jobsieve/internal/infra/metrics"
	red "jobsieve/internal/infra/redis"
)

var _ repository.KeywordRepository = (*keywordRepoCacheDecorator)(nil)

// keywordRepoCacheDecorator caches the embedded-keyword set, which the
// posting-side filter reads on every enrichment. The cache is explicitly
// invalidated on ReplaceAll and SetEmbedding rather than snapshotted at
// startup, so a blacklist swap is visible to the next check.
type keywordRepoCacheDecorator struct {
	inner    repository.KeywordRepository
	cache    red.RedisClient
	modelTag string
	ttl      time.Duration
}

func NewKeywordRepoCacheDecorator(inner repository.KeywordRepository, cache red.RedisClient, modelTag string, ttl time.Duration) repository.KeywordRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &keywordRepoCacheDecorator{inner: inner, cache: cache, modelTag: modelTag, ttl: ttl}
}

func embeddedKeywordsKey(modelTag string) string {
	return fmt.Sprintf("keywords:embedded:%s", modelTag)
}

func (d *keywordRepoCacheDecorator) ListEmbedded(ctx context.Context, tx repository.Tx, modelTag string) ([]*model.Keyword, error) {
	key := embeddedKeywordsKey(modelTag)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var keywords []*model.Keyword
		if json.Unmarshal([]byte(val), &keywords) == nil {
			metrics.IncCacheRequest("keywords_embedded", "hit")
			return keywords, nil
		}
	}

	metrics.IncCacheRequest("keywords_embedded", "miss")
	keywords, err := d.inner.ListEmbedded(ctx, tx, modelTag)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(keywords); err == nil {
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return keywords, nil
}

func (d *keywordRepoCacheDecorator) ReplaceAll(ctx context.Context, texts []string) ([]*model.Keyword, error) {
	keywords, err := d.inner.ReplaceAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	_ = d.cache.Del(ctx, embeddedKeywordsKey(d.modelTag))
	return keywords, nil
}

func (d *keywordRepoCacheDecorator) SetEmbedding(ctx context.Context, tx repository.Tx, id string, vector []float32, modelTag string) error {
	if err := d.inner.SetEmbedding(ctx, tx, id, vector, modelTag); err != nil {
		return err
	}
	_ = d.cache.Del(ctx, embeddedKeywordsKey(modelTag))
	return nil
}

func (d *keywordRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Keyword, error) {
	return d.inner.ListAll(ctx, tx)
}

func (d *keywordRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Keyword, error) {
	return d.inner.FindByID(ctx, tx, id)
}
