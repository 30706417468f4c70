package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/repository"
)

var _ repository.SourceMessageRepository = (*SourceMessageRepo)(nil)

type SourceMessageRepo struct {
	pool *pgxpool.Pool
}

func NewSourceMessageRepo(pool *pgxpool.Pool) *SourceMessageRepo {
	return &SourceMessageRepo{pool: pool}
}

// Save upserts by provider message id so a mailbox re-sync cannot duplicate
// rows or un-scan an already-scanned message.
func (r *SourceMessageRepo) Save(ctx context.Context, tx repository.Tx, m *model.SourceMessage) (string, bool, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.ReceivedAt.IsZero() {
		m.ReceivedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO source_messages (id, provider_id, subject, body, received_at, scanned)
VALUES ($1,$2,$3,$4,$5,FALSE)
ON CONFLICT (provider_id) DO UPDATE SET
  subject = EXCLUDED.subject,
  body    = EXCLUDED.body
RETURNING id, (xmax = 0) AS is_new;`
	ex, err := executor(r.pool, tx)
	if err != nil {
		return "", false, err
	}
	var id string
	var isNew bool
	if err := ex.QueryRow(ctx, q, m.ID, m.ProviderID, m.Subject, m.Body, m.ReceivedAt).Scan(&id, &isNew); err != nil {
		return "", false, fmt.Errorf("upsert source message: %w", err)
	}
	m.ID = id
	return id, isNew, nil
}

func (r *SourceMessageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SourceMessage, error) {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	row := ex.QueryRow(ctx,
		`SELECT id, provider_id, subject, body, received_at, scanned
		 FROM source_messages WHERE id=$1;`, id)
	var m model.SourceMessage
	if err := row.Scan(&m.ID, &m.ProviderID, &m.Subject, &m.Body, &m.ReceivedAt, &m.Scanned); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return &m, nil
}

func (r *SourceMessageRepo) ListUnscanned(ctx context.Context, tx repository.Tx, limit int) ([]*model.SourceMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	ex, err := executor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx,
		`SELECT id, provider_id, subject, body, received_at, scanned
		 FROM source_messages WHERE NOT scanned ORDER BY received_at LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unscanned: %w", err)
	}
	defer rows.Close()
	var out []*model.SourceMessage
	for rows.Next() {
		var m model.SourceMessage
		if err := rows.Scan(&m.ID, &m.ProviderID, &m.Subject, &m.Body, &m.ReceivedAt, &m.Scanned); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *SourceMessageRepo) MarkScanned(ctx context.Context, tx repository.Tx, id string) error {
	ex, err := executor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE source_messages SET scanned=TRUE WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
