package dto

import (
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

type CreateCreditSystemRequest struct {
	Codename string `json:"codename" validate:"required,max=64"`
	Name     string `json:"name" validate:"required,max=255"`
}

// OpenAccountRequest defines the data needed to open a ledger account.
type OpenAccountRequest struct {
	Name           string   `json:"name" validate:"required,max=255"`
	CurrencyCode   string   `json:"currencyCode" validate:"required,len=3,uppercase"`
	CreditSystemID string   `json:"creditSystemID"` // Optional
	OwnerUserIDs   []string `json:"ownerUserIDs" validate:"required,min=1,dive,required"`
	UserID         string   `json:"userID" validate:"required"` // needed for audit fields
}

// PostingRequest is one signed line of a journal. The currency is taken from the account.
type PostingRequest struct {
	AccountID string          `json:"accountID" validate:"required"`
	Amount    decimal.Decimal `json:"amount"` // signed, non-zero
	Memo      string          `json:"memo" validate:"max=255"`
}

// RemittanceRequest records a real money movement. Which of CreditSystemID or
// LineID is required depends on the deployment's remittance key scheme.
type RemittanceRequest struct {
	TransactionID  string          `json:"transactionID" validate:"required,max=128"`
	CreditSystemID string          `json:"creditSystemID"`
	LineID         string          `json:"lineID"`
	Amount         decimal.Decimal `json:"amount"` // positive
	CurrencyCode   string          `json:"currencyCode" validate:"omitempty,len=3,uppercase"`
}

// CommitJournalRequest defines the data needed to commit a journal.
type CommitJournalRequest struct {
	Type         domain.JournalType  `json:"type" validate:"required,oneof=GENERAL INVOICE SETTLEMENT"`
	Description  string              `json:"description" validate:"max=1024"`
	Postings     []PostingRequest    `json:"postings" validate:"required,min=2,dive"`
	Remittances  []RemittanceRequest `json:"remittances" validate:"dive"`
	OwnerUserIDs []string            `json:"ownerUserIDs" validate:"required,min=1,dive,required"`
	UserID       string              `json:"userID" validate:"required"`
	CommittedAt  time.Time           `json:"committedAt"` // Optional, defaults to now
}

// ReverseJournalRequest asks for an offsetting journal of JournalID.
type ReverseJournalRequest struct {
	JournalID    string   `json:"journalID" validate:"required"`
	Reason       string   `json:"reason" validate:"max=1024"`
	OwnerUserIDs []string `json:"ownerUserIDs" validate:"required,min=1,dive,required"`
	UserID       string   `json:"userID" validate:"required"`
}

// ListJournalsParams defines the keyset paging query for journals of one type.
type ListJournalsParams struct {
	Type      domain.JournalType `json:"type" validate:"required,oneof=GENERAL INVOICE SETTLEMENT REVERSAL"`
	Limit     int                `json:"limit" validate:"gte=0,lte=500"`
	NextToken *string            `json:"nextToken"`
}

// ListJournalsResponse is one page of journals, newest first.
type ListJournalsResponse struct {
	Journals  []domain.Journal `json:"journals"`
	NextToken *string          `json:"nextToken,omitempty"`
}

// ListAccountsResponse is one page of the account change feed.
type ListAccountsResponse struct {
	Accounts  []domain.Account `json:"accounts"`
	NextToken *string          `json:"nextToken,omitempty"`
}
