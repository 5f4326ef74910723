package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

func (s *Store) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	return s.write(ctx, func(st *state) error {
		if invoice.JournalID != nil {
			if _, ok := st.journals[*invoice.JournalID]; !ok {
				return missingRef("journal", *invoice.JournalID)
			}
		}
		if err := st.claim(domain.UQInvoiceNumber, invoice.InvoiceID, invoice.Number); err != nil {
			return err
		}
		lines := make([]domain.InvoiceLine, len(invoice.Lines))
		for i, l := range invoice.Lines {
			if err := st.claim(domain.UQInvoiceLinePosition, l.LineID, invoice.InvoiceID, fmt.Sprint(l.Position)); err != nil {
				return err
			}
			l.TaxComponents = append([]domain.InvoiceLineTaxComponent(nil), l.TaxComponents...)
			lines[i] = l
		}
		invoice.Lines = lines
		invoice.Ownership = domain.Ownership{}
		st.invoices[invoice.InvoiceID] = invoice
		return nil
	})
}

func (s *Store) FindInvoiceByID(_ context.Context, invoiceID string) (*domain.Invoice, error) {
	var out *domain.Invoice
	err := s.read(func(st *state) error {
		inv, ok := st.invoices[invoiceID]
		if !ok {
			return notFound("invoice", invoiceID)
		}
		inv.Ownership = domain.Ownership{UserIDs: st.ownersOf(domain.OwnedInvoice, invoiceID)}
		out = &inv
		return nil
	})
	return out, err
}

func (s *Store) FindInvoiceForUpdate(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	inv, err := s.FindInvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Lines = nil
	return inv, nil
}

func (s *Store) SaveInvoiceEvent(ctx context.Context, event domain.InvoiceEvent) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.invoices[event.InvoiceID]; !ok {
			return missingRef("invoice", event.InvoiceID)
		}
		if err := st.claim(domain.UQInvoiceEventSequence, event.EventID, event.InvoiceID, fmt.Sprint(event.Sequence)); err != nil {
			return err
		}
		st.invoiceEvents[event.InvoiceID] = append(st.invoiceEvents[event.InvoiceID], event)
		return nil
	})
}

func (s *Store) ListInvoiceEvents(_ context.Context, invoiceID string) ([]domain.InvoiceEvent, error) {
	var out []domain.InvoiceEvent
	err := s.read(func(st *state) error {
		out = append(out, st.invoiceEvents[invoiceID]...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}

func (s *Store) SaveSettlement(ctx context.Context, settlement domain.InvoiceSettlement) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.invoices[settlement.InvoiceID]; !ok {
			return missingRef("invoice", settlement.InvoiceID)
		}
		if _, ok := st.requests[settlement.RequestID]; !ok {
			return missingRef("funds transfer request", settlement.RequestID)
		}
		if err := st.claimNew(domain.UQInvoiceSettlement, settlement.InvoiceID, settlement.RequestID); err != nil {
			return err
		}
		st.settlements[settlement.InvoiceID] = append(st.settlements[settlement.InvoiceID], settlement)
		return nil
	})
}

func (s *Store) ListSettlements(_ context.Context, invoiceID string) ([]domain.InvoiceSettlement, error) {
	var out []domain.InvoiceSettlement
	err := s.read(func(st *state) error {
		out = append(out, st.settlements[invoiceID]...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID < out[j].RequestID })
	return out, err
}

// DeleteInvoice removes the invoice and walks the cascade rules of domain.Schema
// for its children. Rows of restricting tables block the delete.
func (s *Store) DeleteInvoice(ctx context.Context, invoiceID string) error {
	return s.write(ctx, func(st *state) error {
		inv, ok := st.invoices[invoiceID]
		if !ok {
			return notFound("invoice", invoiceID)
		}
		if len(st.invoiceEvents[invoiceID]) > 0 || len(st.settlements[invoiceID]) > 0 {
			return apperrors.NewValidationFailedError(fmt.Sprintf("invoice %s is still referenced", invoiceID))
		}
		for _, child := range domain.Schema.CascadeChildren("invoices") {
			if child != "invoice_lines" {
				return fmt.Errorf("no cascade handler for %s", child)
			}
			for _, l := range inv.Lines {
				st.release(domain.UQInvoiceLinePosition, invoiceID, fmt.Sprint(l.Position))
			}
			// tax components live inside their lines
		}
		st.release(domain.UQInvoiceNumber, inv.Number)
		for e := range st.edges {
			if e.Kind == domain.OwnedInvoice && e.EntityID == invoiceID {
				delete(st.edges, e)
			}
		}
		delete(st.invoices, invoiceID)
		return nil
	})
}
