package dto

import (
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

type InvoiceTaxRequest struct {
	Name string          `json:"name" validate:"required,max=64"`
	Rate decimal.Decimal `json:"rate"` // fraction, 0.2 = 20%
}

type InvoiceLineRequest struct {
	Description string              `json:"description" validate:"required,max=1024"`
	Quantity    decimal.Decimal     `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unitPrice"`
	Taxes       []InvoiceTaxRequest `json:"taxes" validate:"dive"`
}

// InvoicePostingAccounts selects the accounts of the journal committed with an invoice.
// Tax is posted to TaxAccountID when set, otherwise it is folded into revenue.
type InvoicePostingAccounts struct {
	ReceivableAccountID string `json:"receivableAccountID" validate:"required"`
	RevenueAccountID    string `json:"revenueAccountID" validate:"required"`
	TaxAccountID        string `json:"taxAccountID"`
}

// IssueInvoiceRequest defines the data needed to create an invoice.
type IssueInvoiceRequest struct {
	Number       string                  `json:"number" validate:"required,max=64"`
	CurrencyCode string                  `json:"currencyCode" validate:"required,len=3,uppercase"`
	IssueDate    time.Time               `json:"issueDate" validate:"required"`
	DueDate      time.Time               `json:"dueDate" validate:"required,gtefield=IssueDate"`
	Lines        []InvoiceLineRequest    `json:"lines" validate:"required,min=1,dive"`
	Draft        bool                    `json:"draft"`
	Posting      *InvoicePostingAccounts `json:"posting"` // Optional
	OwnerUserIDs []string                `json:"ownerUserIDs" validate:"required,min=1,dive,required"`
	UserID       string                  `json:"userID" validate:"required"`
}

// RecordInvoiceEventRequest appends a status change to an invoice's history.
type RecordInvoiceEventRequest struct {
	InvoiceID  string              `json:"invoiceID" validate:"required"`
	State      domain.InvoiceState `json:"state" validate:"required,oneof=ISSUED PARTIALLY_PAID PAID OVERDUE CANCELLED"`
	OccurredAt time.Time           `json:"occurredAt"` // Optional, defaults to now
	UserID     string              `json:"userID" validate:"required"`
}

// LinkSettlementRequest links an invoice to the funds-transfer request that pays it.
type LinkSettlementRequest struct {
	InvoiceID string `json:"invoiceID" validate:"required"`
	RequestID string `json:"requestID" validate:"required"`
}

// InvoiceView is an invoice together with its folded state and history.
type InvoiceView struct {
	Invoice     domain.Invoice             `json:"invoice"`
	State       domain.InvoiceState        `json:"state"`
	Events      []domain.InvoiceEvent      `json:"events"`
	Settlements []domain.InvoiceSettlement `json:"settlements"`
}
