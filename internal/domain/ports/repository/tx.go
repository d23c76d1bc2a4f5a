package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres). Repositories MUST accept nil and fall back to the
// non-transactional pool path.
type Tx interface{}

// NoTX is passed where a repository call should run outside any transaction.
var NoTX Tx

// TransactionManager executes fn inside a database transaction, handing the
// tx handle through so repository methods can run row-locking reads
// (SELECT ... FOR UPDATE) against the same transaction. Keeps use-case
// signatures free of storage types.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
