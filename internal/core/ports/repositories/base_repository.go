package repositories

import "context"

// TxFunc is a unit of work executed against a transaction-scoped Store.
type TxFunc func(ctx context.Context, tx Store) error

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// RunInTransaction executes fn inside one atomic unit of work. The work is
	// committed when fn returns nil and rolled back otherwise, or when ctx is
	// cancelled before commit. Calling it on a Store that is already
	// transaction-scoped joins the running transaction.
	RunInTransaction(ctx context.Context, fn TxFunc) error
}
