package repositories

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

// InvoiceReader defines read operations for invoice data
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice with its lines and tax components.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// FindInvoiceForUpdate retrieves an invoice header and locks its row.
	FindInvoiceForUpdate(ctx context.Context, invoiceID string) (*domain.Invoice, error)

	// ListInvoiceEvents returns an invoice's events in sequence order.
	ListInvoiceEvents(ctx context.Context, invoiceID string) ([]domain.InvoiceEvent, error)
	ListSettlements(ctx context.Context, invoiceID string) ([]domain.InvoiceSettlement, error)
}

// InvoiceWriter defines write operations for invoice data
type InvoiceWriter interface {
	// SaveInvoice inserts an invoice with its lines and their tax components.
	SaveInvoice(ctx context.Context, invoice domain.Invoice) error
	SaveInvoiceEvent(ctx context.Context, event domain.InvoiceEvent) error
	SaveSettlement(ctx context.Context, settlement domain.InvoiceSettlement) error

	// DeleteInvoice removes an invoice; its lines and tax components go with it.
	DeleteInvoice(ctx context.Context, invoiceID string) error
}

// InvoiceRepositoryFacade combines all invoice-related repository interfaces
type InvoiceRepositoryFacade interface {
	InvoiceReader
	InvoiceWriter
}
