package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept a nil Tx and fall
// back to their pool; the concrete type is infra-defined (pgx.Tx here).
type Tx interface{}

// TransactionManager runs fn inside a database transaction, passing the
// handle through so repository calls within fn share it. Stage logic in this
// pipeline rarely needs multi-row transactions; the queue plus single-row
// idempotent upserts carry most of the consistency burden.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
