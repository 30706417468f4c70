package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/repository"
	"jobsieve/internal/infra/embedding"
)

var _ repository.KeywordRepository = (*KeywordRepo)(nil)

type KeywordRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewKeywordRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *KeywordRepo {
	return &KeywordRepo{pool: pool, tm: tm}
}

const keywordColumns = `id, text, embedding, embedding_model, created_at`

// ReplaceAll swaps the entire blacklist in one transaction: drop every
// keyword, insert the new set without embeddings, and clear every posting's
// blacklisted flag. Embeddings and re-matching happen asynchronously
// afterwards.
func (r *KeywordRepo) ReplaceAll(ctx context.Context, texts []string) ([]*model.Keyword, error) {
	keywords := make([]*model.Keyword, 0, len(texts))
	for _, t := range texts {
		keywords = append(keywords, model.NewKeyword(t))
	}

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ex, err := executor(r.pool, tx)
		if err != nil {
			return err
		}
		if _, err := ex.Exec(ctx, `DELETE FROM keywords;`); err != nil {
			return fmt.Errorf("clear keywords: %w", err)
		}
		for _, k := range keywords {
			_, err := ex.Exec(ctx,
				`INSERT INTO keywords (id, text, created_at) VALUES ($1,$2,$3)
				 ON CONFLICT (text) DO NOTHING;`,
				k.ID, k.Text, k.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert keyword %q: %w", k.Text, err)
			}
		}
		if _, err := ex.Exec(ctx, `UPDATE postings SET blacklisted=FALSE WHERE blacklisted;`); err != nil {
			return fmt.Errorf("reset blacklist flags: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keywords, nil
}

func (r *KeywordRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Keyword, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT `+keywordColumns+` FROM keywords ORDER BY created_at;`)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	defer rows.Close()
	return scanKeywords(rows)
}

func (r *KeywordRepo) ListEmbedded(ctx context.Context, tx repository.Tx, modelTag string) ([]*model.Keyword, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx,
		`SELECT `+keywordColumns+` FROM keywords
		 WHERE embedding IS NOT NULL AND embedding <> '' AND embedding_model = $1
		 ORDER BY created_at;`, modelTag)
	if err != nil {
		return nil, fmt.Errorf("list embedded keywords: %w", err)
	}
	defer rows.Close()
	return scanKeywords(rows)
}

func (r *KeywordRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Keyword, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT `+keywordColumns+` FROM keywords WHERE id=$1;`, id)
	return scanKeyword(row)
}

func (r *KeywordRepo) SetEmbedding(ctx context.Context, tx repository.Tx, id string, vector []float32, modelTag string) error {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx,
		`UPDATE keywords SET embedding=$2, embedding_model=$3 WHERE id=$1;`,
		id, embedding.Encode(vector), modelTag)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanKeyword(row pgx.Row) (*model.Keyword, error) {
	var k model.Keyword
	var embText, embModel *string
	if err := row.Scan(&k.ID, &k.Text, &embText, &embModel, &k.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	if embText != nil && *embText != "" {
		vec, err := embedding.Decode(*embText)
		if err != nil {
			return nil, fmt.Errorf("keyword %s: %w", k.ID, err)
		}
		k.Embedding = vec
	}
	if embModel != nil {
		k.EmbeddingModel = *embModel
	}
	return &k, nil
}

func scanKeywords(rows pgx.Rows) ([]*model.Keyword, error) {
	var out []*model.Keyword
	for rows.Next() {
		k, err := scanKeyword(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
