package services

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerSetupSvc defines operations that create accounts and counterparties
type LedgerSetupSvc interface {
	CreateCreditSystem(ctx context.Context, req dto.CreateCreditSystemRequest) (*domain.CreditSystem, error)
	OpenAccount(ctx context.Context, req dto.OpenAccountRequest) (*domain.Account, error)
}

// LedgerWriterSvc defines write operations for journals
type LedgerWriterSvc interface {
	// CommitJournal validates, balances and persists a journal together with its
	// remittances, and applies the balance changes to the accounts.
	CommitJournal(ctx context.Context, req dto.CommitJournalRequest) (*domain.Journal, error)

	// ReverseJournal commits the offsetting journal of an existing one. A journal
	// can be reversed at most once.
	ReverseJournal(ctx context.Context, req dto.ReverseJournalRequest) (*domain.Journal, error)
}

// LedgerReaderSvc defines read operations for accounts and journals
type LedgerReaderSvc interface {
	GetJournal(ctx context.Context, journalID string) (*domain.Journal, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	GetAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// ListAccountsModifiedSince pages through accounts changed after since, oldest change first.
	ListAccountsModifiedSince(ctx context.Context, since time.Time, limit int, nextToken *string) (*dto.ListAccountsResponse, error)

	// ListJournalsByType pages through journals of one type, newest first.
	ListJournalsByType(ctx context.Context, params dto.ListJournalsParams) (*dto.ListJournalsResponse, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerSetupSvc
	LedgerWriterSvc
	LedgerReaderSvc
}
