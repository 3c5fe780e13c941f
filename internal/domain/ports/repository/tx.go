package repository

import "context"

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for the networked backend, *sql.Tx for the embedded one).
// Repositories MUST accept a nil Tx and fall back to the non-transactional
// path.
type Tx interface{}

// TransactionManager executes fn inside a storage transaction, passing the
// backend's handle via tx. The only place the core requires it is profile
// activation: deactivate-all plus activate-one must commit as one unit, and
// every backend implementation has to provide that atomicity.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
