package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs a function inside one database transaction.
// The version flip on upload and the cascade delete both depend on it.
type TransactionManager interface {
	// ExecTx executes fn within a transaction, committing on nil and
	// rolling back on error.
	ExecTx(ctx context.Context, fn TxFn) error
}
