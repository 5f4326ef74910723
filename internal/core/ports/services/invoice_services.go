package services

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// InvoiceWriterSvc defines write operations for invoices
type InvoiceWriterSvc interface {
	IssueInvoice(ctx context.Context, req dto.IssueInvoiceRequest) (*domain.Invoice, error)
	RecordInvoiceEvent(ctx context.Context, req dto.RecordInvoiceEventRequest) (*domain.InvoiceEvent, error)
	LinkSettlement(ctx context.Context, req dto.LinkSettlementRequest) (*domain.InvoiceSettlement, error)

	// DeleteInvoice removes an invoice that has neither events nor settlement links.
	DeleteInvoice(ctx context.Context, invoiceID string) error
}

// InvoiceReaderSvc defines read operations for invoices
type InvoiceReaderSvc interface {
	GetInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceView, error)
}

// InvoiceSvcFacade combines all invoice-related service interfaces
type InvoiceSvcFacade interface {
	InvoiceWriterSvc
	InvoiceReaderSvc
}
