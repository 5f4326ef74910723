package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// amountScale is the number of decimal places invoice amounts are rounded to.
const amountScale = 2

// invoiceService manages invoices and their event history.
type invoiceService struct {
	BaseService
	ledger portssvc.LedgerWriterSvc
}

// NewInvoiceService creates a new invoice service. Invoice journals are committed through ledger.
func NewInvoiceService(store portsrepo.Store, ledger portssvc.LedgerWriterSvc, opts ...ServiceOption) portssvc.InvoiceSvcFacade {
	o := newServiceOptions(opts)
	return &invoiceService{BaseService: newBaseService(store, o), ledger: ledger}
}

var _ portssvc.InvoiceSvcFacade = (*invoiceService)(nil)

// priceLines computes line, tax and invoice amounts.
func priceLines(invoiceID string, reqs []dto.InvoiceLineRequest) (lines []domain.InvoiceLine, subtotal, taxTotal decimal.Decimal, err error) {
	subtotal, taxTotal = decimal.Zero, decimal.Zero
	for i, l := range reqs {
		if !l.Quantity.IsPositive() {
			return nil, subtotal, taxTotal, apperrors.NewValidationFailedError(fmt.Sprintf("lines[%d].quantity: must be positive", i))
		}
		if l.UnitPrice.IsNegative() {
			return nil, subtotal, taxTotal, apperrors.NewValidationFailedError(fmt.Sprintf("lines[%d].unitPrice: must not be negative", i))
		}
		line := domain.InvoiceLine{
			LineID:      uuid.NewString(),
			InvoiceID:   invoiceID,
			Position:    i + 1,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Quantity.Mul(l.UnitPrice).Round(amountScale),
		}
		for j, t := range l.Taxes {
			if t.Rate.IsNegative() {
				return nil, subtotal, taxTotal, apperrors.NewValidationFailedError(fmt.Sprintf("lines[%d].taxes[%d].rate: must not be negative", i, j))
			}
			tax := domain.InvoiceLineTaxComponent{
				TaxComponentID: uuid.NewString(),
				LineID:         line.LineID,
				Name:           t.Name,
				Rate:           t.Rate,
				Amount:         line.Amount.Mul(t.Rate).Round(amountScale),
			}
			taxTotal = taxTotal.Add(tax.Amount)
			line.TaxComponents = append(line.TaxComponents, tax)
		}
		subtotal = subtotal.Add(line.Amount)
		lines = append(lines, line)
	}
	return lines, subtotal, taxTotal, nil
}

func (s *invoiceService) IssueInvoice(ctx context.Context, req dto.IssueInvoiceRequest) (*domain.Invoice, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	if req.Draft && req.Posting != nil {
		return nil, apperrors.NewValidationFailedError("draft invoices cannot be posted to the ledger")
	}

	now := s.now()
	invoiceID := uuid.NewString()
	lines, subtotal, taxTotal, err := priceLines(invoiceID, req.Lines)
	if err != nil {
		return nil, err
	}
	invoice := domain.Invoice{
		InvoiceID:    invoiceID,
		Number:       req.Number,
		CurrencyCode: req.CurrencyCode,
		IssueDate:    req.IssueDate,
		DueDate:      req.DueDate,
		Subtotal:     subtotal,
		TaxTotal:     taxTotal,
		Total:        subtotal.Add(taxTotal),
		Lines:        lines,
		CreatedAt:    now,
		CreatedBy:    req.UserID,
		Ownership:    domain.Ownership{UserIDs: domain.UniqueSorted(req.OwnerUserIDs)},
	}

	err = s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if req.Posting != nil {
			journalID, err := s.postInvoice(ctx, tx, invoice, *req.Posting, req.UserID)
			if err != nil {
				return err
			}
			invoice.JournalID = &journalID
		}
		if err := tx.SaveInvoice(ctx, invoice); err != nil {
			return err
		}
		if err := tx.SaveOwnershipEdges(ctx, domain.EdgesOf(invoice)); err != nil {
			return err
		}
		if req.Draft {
			return nil
		}
		return tx.SaveInvoiceEvent(ctx, domain.InvoiceEvent{
			EventID:    uuid.NewString(),
			InvoiceID:  invoice.InvoiceID,
			Sequence:   1,
			State:      domain.InvoiceIssued,
			OccurredAt: now,
			RecordedBy: req.UserID,
		})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to issue invoice", slog.String("number", req.Number))
		return nil, fmt.Errorf("failed to issue invoice %s: %w", req.Number, err)
	}
	s.LogInfo(ctx, "Invoice issued",
		slog.String("invoice_id", invoice.InvoiceID),
		slog.String("total", invoice.Total.String()),
		slog.Bool("draft", req.Draft))
	return &invoice, nil
}

// postInvoice commits the receivable/revenue journal of an invoice in the running transaction.
func (s *invoiceService) postInvoice(ctx context.Context, tx portsrepo.Store, invoice domain.Invoice, accounts dto.InvoicePostingAccounts, userID string) (string, error) {
	if !invoice.Total.IsPositive() {
		return "", apperrors.NewValidationFailedError("an invoice without a positive total cannot be posted")
	}
	ids := []string{accounts.ReceivableAccountID, accounts.RevenueAccountID}
	if accounts.TaxAccountID != "" {
		ids = append(ids, accounts.TaxAccountID)
	}
	found, err := tx.FindAccountsByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		a, ok := found[id]
		if !ok {
			return "", apperrors.NewValidationFailedError(fmt.Sprintf("account %s does not exist", id))
		}
		if a.CurrencyCode != invoice.CurrencyCode {
			return "", apperrors.NewValidationFailedError(
				fmt.Sprintf("account %s is in %s, invoice is in %s", id, a.CurrencyCode, invoice.CurrencyCode))
		}
	}

	revenue := invoice.Subtotal
	postings := []dto.PostingRequest{{AccountID: accounts.ReceivableAccountID, Amount: invoice.Total, Memo: "receivable"}}
	if accounts.TaxAccountID != "" && invoice.TaxTotal.IsPositive() {
		postings = append(postings, dto.PostingRequest{AccountID: accounts.TaxAccountID, Amount: invoice.TaxTotal.Neg(), Memo: "tax"})
	} else {
		revenue = invoice.Total
	}
	if !revenue.IsZero() {
		postings = append(postings, dto.PostingRequest{AccountID: accounts.RevenueAccountID, Amount: revenue.Neg(), Memo: "revenue"})
	}

	journal, err := s.ledger.CommitJournal(ctx, dto.CommitJournalRequest{
		Type:         domain.JournalInvoice,
		Description:  "Invoice " + invoice.Number,
		Postings:     postings,
		OwnerUserIDs: invoice.OwnerIDs(),
		UserID:       userID,
	})
	if err != nil {
		return "", err
	}
	return journal.JournalID, nil
}

func (s *invoiceService) RecordInvoiceEvent(ctx context.Context, req dto.RecordInvoiceEventRequest) (*domain.InvoiceEvent, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var out *domain.InvoiceEvent
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if _, err := tx.FindInvoiceForUpdate(ctx, req.InvoiceID); err != nil {
			return err
		}
		history, err := tx.ListInvoiceEvents(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		current, err := domain.FoldInvoiceEvents(history)
		if err != nil {
			return fmt.Errorf("stored history of invoice %s is inconsistent: %w", req.InvoiceID, err)
		}
		if !current.CanMoveTo(req.State) {
			return apperrors.NewInvalidTransitionError(
				fmt.Sprintf("invoice %s cannot move from %s to %s", req.InvoiceID, current, req.State))
		}

		occurredAt := req.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = s.now()
		}
		if n := len(history); n > 0 && occurredAt.Before(history[n-1].OccurredAt) {
			return apperrors.NewValidationFailedError(
				fmt.Sprintf("event time %s precedes the last event of invoice %s", occurredAt.Format(time.RFC3339), req.InvoiceID))
		}
		event := domain.InvoiceEvent{
			EventID:    uuid.NewString(),
			InvoiceID:  req.InvoiceID,
			Sequence:   int64(len(history)) + 1,
			State:      req.State,
			OccurredAt: occurredAt,
			RecordedBy: req.UserID,
		}
		if err := tx.SaveInvoiceEvent(ctx, event); err != nil {
			return err
		}
		out = &event
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record %s event: %w", req.State, err)
	}
	return out, nil
}

func (s *invoiceService) LinkSettlement(ctx context.Context, req dto.LinkSettlementRequest) (*domain.InvoiceSettlement, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	settlement := domain.InvoiceSettlement{InvoiceID: req.InvoiceID, RequestID: req.RequestID, LinkedAt: s.now()}
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if _, err := tx.FindInvoiceByID(ctx, req.InvoiceID); err != nil {
			return err
		}
		if _, err := tx.FindRequestByID(ctx, req.RequestID); err != nil {
			return err
		}
		return tx.SaveSettlement(ctx, settlement)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to link invoice %s to request %s: %w", req.InvoiceID, req.RequestID, err)
	}
	return &settlement, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, invoiceID string) error {
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if _, err := tx.FindInvoiceForUpdate(ctx, invoiceID); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, invoiceID)
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to delete invoice", slog.String("invoice_id", invoiceID))
		}
		return fmt.Errorf("failed to delete invoice %s: %w", invoiceID, err)
	}
	s.LogInfo(ctx, "Invoice deleted", slog.String("invoice_id", invoiceID))
	return nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID string) (*dto.InvoiceView, error) {
	store := s.reader(ctx)
	invoice, err := store.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice %s: %w", invoiceID, err)
	}
	events, err := store.ListInvoiceEvents(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events of invoice %s: %w", invoiceID, err)
	}
	settlements, err := store.ListSettlements(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlements of invoice %s: %w", invoiceID, err)
	}
	state, err := domain.FoldInvoiceEvents(events)
	if err != nil {
		return nil, fmt.Errorf("stored history of invoice %s is inconsistent: %w", invoiceID, err)
	}
	return &dto.InvoiceView{Invoice: *invoice, State: state, Events: events, Settlements: settlements}, nil
}
