// File: internal/usecase/posting_uc.go
package usecase

import (
	"context"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/repository"
)

// PostingUseCase is the read/delete surface the presentation layer talks to.
type PostingUseCase struct {
	postings repository.PostingRepository
}

func NewPostingUseCase(postings repository.PostingRepository) *PostingUseCase {
	return &PostingUseCase{postings: postings}
}

func (uc *PostingUseCase) List(ctx context.Context, f model.PostingFilter) ([]*model.Posting, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return uc.postings.List(ctx, nil, f)
}

func (uc *PostingUseCase) Get(ctx context.Context, id string) (*model.Posting, error) {
	return uc.postings.FindByID(ctx, nil, id)
}

func (uc *PostingUseCase) Delete(ctx context.Context, id string) error {
	return uc.postings.Delete(ctx, nil, id)
}
