package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReader defines read operations for accounts and journals
type LedgerReader interface {
	FindCreditSystemByID(ctx context.Context, creditSystemID string) (*domain.CreditSystem, error)
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountsByIDs retrieves multiple accounts keyed by ID. Missing IDs are absent from the map.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// FindAccountsByIDsForUpdate is FindAccountsByIDs taking row locks until the
	// surrounding transaction ends. Locks are taken in ascending ID order.
	FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ListAccountsModifiedSince is the account change feed ordered by (last modification, ID).
	ListAccountsModifiedSince(ctx context.Context, since time.Time, limit int, nextToken *string) ([]domain.Account, *string, error)

	// FindJournalByID retrieves a journal with its postings and remittances.
	FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error)

	// FindReversalOf returns the journal reversing journalID, or apperrors.ErrNotFound.
	FindReversalOf(ctx context.Context, journalID string) (*domain.Journal, error)

	// ListJournalsByType lists journal headers of one type, newest first.
	ListJournalsByType(ctx context.Context, journalType domain.JournalType, limit int, nextToken *string) ([]domain.Journal, *string, error)
}

// LedgerWriter defines write operations for accounts and journals
type LedgerWriter interface {
	SaveCreditSystem(ctx context.Context, creditSystem domain.CreditSystem) error
	SaveAccount(ctx context.Context, account domain.Account) error

	// SaveJournal inserts a journal, its postings and its remittances. Remittances are
	// check-and-inserted under their unique key; a collision is reported as
	// apperrors.ErrDuplicateRemittance.
	SaveJournal(ctx context.Context, journal domain.Journal) error

	// ApplyBalanceChanges adds each delta to its account balance and stamps the
	// last-modification date. Callers must hold the account locks.
	ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, userID string, at time.Time) error
}

// LedgerRepositoryFacade combines all ledger-related repository interfaces
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}
