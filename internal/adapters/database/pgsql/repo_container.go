package pgsql

import (
	"context"
	"fmt"

	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store assembles the per-aggregate repositories over one pool, or over one
// transaction when handed to a RunInTransaction callback.
type Store struct {
	*PgxIdentityRepository
	*PgxWorkflowRepository
	*PgxLedgerRepository
	*PgxFundsTransferRepository
	*PgxInvoiceRepository
	*PgxOwnershipRepository

	base *BaseRepository
}

var _ portsrepo.Store = (*Store)(nil)

// NewStore creates the pool-backed store.
func NewStore(dbPool *pgxpool.Pool) *Store {
	return newStore(&BaseRepository{Pool: dbPool})
}

func newStore(base *BaseRepository) *Store {
	owners := newPgxOwnershipRepository(base)
	return &Store{
		PgxIdentityRepository:      newPgxIdentityRepository(base),
		PgxWorkflowRepository:      newPgxWorkflowRepository(base, owners),
		PgxLedgerRepository:        newPgxLedgerRepository(base, owners),
		PgxFundsTransferRepository: newPgxFundsTransferRepository(base, owners),
		PgxInvoiceRepository:       newPgxInvoiceRepository(base, owners),
		PgxOwnershipRepository:     owners,
		base:                       base,
	}
}

// RunInTransaction implements repositories.TransactionManager.
func (s *Store) RunInTransaction(ctx context.Context, fn portsrepo.TxFunc) error {
	if s.base.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.base.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.base.Rollback(context.WithoutCancel(ctx), tx) }()

	if err := fn(ctx, s.withTx(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction rolled back: %w", err)
	}
	return s.base.Commit(ctx, tx)
}

func (s *Store) withTx(tx pgx.Tx) *Store {
	return newStore(&BaseRepository{Pool: s.base.Pool, tx: tx})
}
