package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/repository"
	"jobsieve/internal/infra/embedding"
)

var _ repository.PostingRepository = (*PostingRepo)(nil)

type PostingRepo struct {
	pool *pgxpool.Pool
}

func NewPostingRepo(pool *pgxpool.Pool) *PostingRepo {
	return &PostingRepo{pool: pool}
}

const postingColumns = `
id, title, url, source_message_id, salary_min, salary_max, salary_currency,
salary_period, description, embedding, embedding_model, blacklisted,
processing_state, created_at, last_seen_at`

// Upsert inserts the posting or merges it into the row with the same URL.
// The merge is a single atomic statement: concurrent first-inserts of one
// URL resolve to one insert plus one update, never a constraint error. The
// COALESCEs keep a re-discovery from nulling out enriched fields, and the
// conflict branch deliberately leaves processing_state and blacklisted
// untouched.
func (r *PostingRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Posting) (string, bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.LastSeenAt = time.Now().UTC()

	const q = `
INSERT INTO postings (
  id, title, url, source_message_id, salary_min, salary_max, salary_currency,
  salary_period, description, processing_state, created_at, last_seen_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending',$10,$11)
ON CONFLICT (url) DO UPDATE SET
  title             = COALESCE(NULLIF(EXCLUDED.title, ''), postings.title),
  source_message_id = COALESCE(EXCLUDED.source_message_id, postings.source_message_id),
  salary_min        = COALESCE(EXCLUDED.salary_min, postings.salary_min),
  salary_max        = COALESCE(EXCLUDED.salary_max, postings.salary_max),
  salary_currency   = COALESCE(EXCLUDED.salary_currency, postings.salary_currency),
  salary_period     = COALESCE(EXCLUDED.salary_period, postings.salary_period),
  description       = COALESCE(EXCLUDED.description, postings.description),
  last_seen_at      = EXCLUDED.last_seen_at
RETURNING id, (xmax = 0) AS is_new;`

	ex, err := executor(r.pool, tx)
	if err != nil {
		return "", false, err
	}
	var id string
	var isNew bool
	err = ex.QueryRow(ctx, q,
		p.ID, p.Title, p.URL, p.SourceMessageID,
		p.Salary.Min, p.Salary.Max, p.Salary.Currency, p.Salary.Period,
		p.Description, p.CreatedAt, p.LastSeenAt,
	).Scan(&id, &isNew)
	if err != nil {
		return "", false, fmt.Errorf("upsert posting: %w", err)
	}
	p.ID = id
	return id, isNew, nil
}

func (r *PostingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Posting, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx, `SELECT `+postingColumns+` FROM postings WHERE id=$1;`, id)
	return scanPosting(row)
}

func (r *PostingRepo) List(ctx context.Context, tx repository.Tx, f model.PostingFilter) ([]*model.Posting, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.State != nil {
		conds = append(conds, "processing_state = "+arg(string(*f.State)))
	}
	if f.Blacklisted != nil {
		conds = append(conds, "blacklisted = "+arg(*f.Blacklisted))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}

	q := `SELECT ` + postingColumns + ` FROM postings`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY last_seen_at DESC"
	if f.Limit > 0 {
		q += " LIMIT " + arg(f.Limit)
	}
	if f.Offset > 0 {
		q += " OFFSET " + arg(f.Offset)
	}

	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

func (r *PostingRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `DELETE FROM postings WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetState applies a forward-only transition. The rank CASE keeps a
// redelivered task from dragging a completed posting back to processing;
// a no-op update is not an error.
func (r *PostingRepo) SetState(ctx context.Context, tx repository.Tx, id string, state model.ProcessingState) error {
	if !state.Valid() {
		return domain.ErrInvalidArgument
	}
	const q = `
UPDATE postings SET processing_state = $2
WHERE id = $1
  AND (CASE processing_state WHEN 'pending' THEN 0 WHEN 'processing' THEN 1 ELSE 2 END)
   <= (CASE $2               WHEN 'pending' THEN 0 WHEN 'processing' THEN 1 ELSE 2 END);`
	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, id, string(state))
	return err
}

func (r *PostingRepo) SetBlacklisted(ctx context.Context, tx repository.Tx, id string, blacklisted bool) error {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE postings SET blacklisted=$2 WHERE id=$1;`, id, blacklisted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostingRepo) UpdateEnrichment(ctx context.Context, tx repository.Tx, id string, description *string, salary model.Salary) error {
	const q = `
UPDATE postings SET
  description     = COALESCE($2, description),
  salary_min      = COALESCE($3, salary_min),
  salary_max      = COALESCE($4, salary_max),
  salary_currency = COALESCE($5, salary_currency),
  salary_period   = COALESCE($6, salary_period)
WHERE id = $1;`
	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id, description, salary.Min, salary.Max, salary.Currency, salary.Period)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostingRepo) SetEmbedding(ctx context.Context, tx repository.Tx, id string, vector []float32, modelTag string) error {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx,
		`UPDATE postings SET embedding=$2, embedding_model=$3 WHERE id=$1;`,
		id, embedding.Encode(vector), modelTag)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostingRepo) ListWithoutEmbedding(ctx context.Context, tx repository.Tx, modelTag string, limit int) ([]*model.Posting, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + postingColumns + `
FROM postings
WHERE embedding IS NULL OR embedding = '' OR embedding_model IS DISTINCT FROM $1
ORDER BY created_at
LIMIT $2;`
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, modelTag, limit)
	if err != nil {
		return nil, fmt.Errorf("list postings without embedding: %w", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

func (r *PostingRepo) ListEmbedded(ctx context.Context, tx repository.Tx, modelTag string, excludeBlacklisted bool) ([]*model.Posting, error) {
	q := `
SELECT ` + postingColumns + `
FROM postings
WHERE embedding IS NOT NULL AND embedding <> '' AND embedding_model = $1`
	if excludeBlacklisted {
		q += ` AND NOT blacklisted`
	}
	q += ` ORDER BY created_at;`
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, modelTag)
	if err != nil {
		return nil, fmt.Errorf("list embedded postings: %w", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

func scanPosting(row pgx.Row) (*model.Posting, error) {
	var p model.Posting
	var stateStr string
	var embText, embModel *string
	err := row.Scan(
		&p.ID, &p.Title, &p.URL, &p.SourceMessageID,
		&p.Salary.Min, &p.Salary.Max, &p.Salary.Currency, &p.Salary.Period,
		&p.Description, &embText, &embModel, &p.Blacklisted,
		&stateStr, &p.CreatedAt, &p.LastSeenAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	p.State = model.ProcessingState(stateStr)
	if embText != nil && *embText != "" {
		vec, err := embedding.Decode(*embText)
		if err != nil {
			return nil, fmt.Errorf("posting %s: %w", p.ID, err)
		}
		p.Embedding = vec
	}
	if embModel != nil {
		p.EmbeddingModel = *embModel
	}
	return &p, nil
}

func scanPostings(rows pgx.Rows) ([]*model.Posting, error) {
	var out []*model.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
