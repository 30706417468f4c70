package repository

import (
	"context"

	"jobsieve/internal/domain/model"
)

// KeywordRepository stores blacklist terms. ReplaceAll implements the full
// blacklist swap: delete everything, insert the new set without embeddings,
// and reset every posting's blacklisted flag, in one transaction.
type KeywordRepository interface {
	ReplaceAll(ctx context.Context, texts []string) ([]*model.Keyword, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Keyword, error)
	// ListEmbedded returns keywords whose vector was produced by modelTag.
	ListEmbedded(ctx context.Context, tx Tx, modelTag string) ([]*model.Keyword, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Keyword, error)
	SetEmbedding(ctx context.Context, tx Tx, id string, vector []float32, modelTag string) error
}
