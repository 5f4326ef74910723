package pgsql

import (
	"context"
	"database/sql"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

// PgxInvoiceRepository persists invoices, their lines, events and settlements.
type PgxInvoiceRepository struct {
	*BaseRepository
	owners *PgxOwnershipRepository
}

func newPgxInvoiceRepository(base *BaseRepository, owners *PgxOwnershipRepository) *PgxInvoiceRepository {
	return &PgxInvoiceRepository{BaseRepository: base, owners: owners}
}

var _ portsrepo.InvoiceRepositoryFacade = (*PgxInvoiceRepository)(nil)

func (r *PgxInvoiceRepository) SaveInvoice(ctx context.Context, invoice domain.Invoice) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO invoices (
			invoice_id, number, currency_code, issue_date, due_date, subtotal, tax_total, total,
			journal_id, created_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`,
		invoice.InvoiceID,
		invoice.Number,
		invoice.CurrencyCode,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Subtotal,
		invoice.TaxTotal,
		invoice.Total,
		invoice.JournalID,
		invoice.CreatedAt,
		invoice.CreatedBy,
	)
	for _, l := range invoice.Lines {
		batch.Queue(`
			INSERT INTO invoice_lines (line_id, invoice_id, position, description, quantity, unit_price, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7);
		`, l.LineID, invoice.InvoiceID, l.Position, l.Description, l.Quantity, l.UnitPrice, l.Amount)
		for _, t := range l.TaxComponents {
			batch.Queue(`
				INSERT INTO invoice_line_tax_components (tax_component_id, line_id, name, rate, amount)
				VALUES ($1, $2, $3, $4, $5);
			`, t.TaxComponentID, l.LineID, t.Name, t.Rate, t.Amount)
		}
	}
	return r.inTx(ctx, func(q querier) error {
		return sendBatch(ctx, q, batch, "failed to save invoice "+invoice.Number)
	})
}

func (r *PgxInvoiceRepository) findInvoice(ctx context.Context, invoiceID, lock string) (*domain.Invoice, error) {
	query := `
		SELECT invoice_id, number, currency_code, issue_date, due_date, subtotal, tax_total, total,
		       journal_id, created_at, created_by
		FROM invoices
		WHERE invoice_id = $1 ` + lock + `;`
	var inv domain.Invoice
	var journalID sql.NullString
	err := r.db().QueryRow(ctx, query, invoiceID).Scan(
		&inv.InvoiceID,
		&inv.Number,
		&inv.CurrencyCode,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Subtotal,
		&inv.TaxTotal,
		&inv.Total,
		&journalID,
		&inv.CreatedAt,
		&inv.CreatedBy,
	)
	if err != nil {
		return nil, findError("invoice", invoiceID, err)
	}
	if journalID.Valid {
		inv.JournalID = &journalID.String
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedInvoice, []string{invoiceID})
	if err != nil {
		return nil, err
	}
	inv.UserIDs = owners[invoiceID]
	return &inv, nil
}

func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	inv, err := r.findInvoice(ctx, invoiceID, "")
	if err != nil {
		return nil, err
	}
	if inv.Lines, err = r.findLines(ctx, invoiceID); err != nil {
		return nil, err
	}
	return inv, nil
}

// FindInvoiceForUpdate locks the header row only; lines are not loaded.
func (r *PgxInvoiceRepository) FindInvoiceForUpdate(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	return r.findInvoice(ctx, invoiceID, "FOR UPDATE")
}

func (r *PgxInvoiceRepository) findLines(ctx context.Context, invoiceID string) ([]domain.InvoiceLine, error) {
	query := `
		SELECT line_id, invoice_id, position, description, quantity, unit_price, amount
		FROM invoice_lines
		WHERE invoice_id = $1
		ORDER BY position;
	`
	rows, err := r.db().Query(ctx, query, invoiceID)
	if err != nil {
		return nil, dbError("failed to query lines of invoice "+invoiceID, err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InvoiceLine, error) {
		var l domain.InvoiceLine
		err := row.Scan(&l.LineID, &l.InvoiceID, &l.Position, &l.Description, &l.Quantity, &l.UnitPrice, &l.Amount)
		return l, err
	})
	if err != nil {
		return nil, dbError("failed to scan line rows of invoice "+invoiceID, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	taxQuery := `
		SELECT t.tax_component_id, t.line_id, t.name, t.rate, t.amount
		FROM invoice_line_tax_components t
		JOIN invoice_lines l ON l.line_id = t.line_id
		WHERE l.invoice_id = $1
		ORDER BY l.position, t.name, t.tax_component_id;
	`
	rows, err = r.db().Query(ctx, taxQuery, invoiceID)
	if err != nil {
		return nil, dbError("failed to query tax components of invoice "+invoiceID, err)
	}
	taxes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InvoiceLineTaxComponent, error) {
		var t domain.InvoiceLineTaxComponent
		err := row.Scan(&t.TaxComponentID, &t.LineID, &t.Name, &t.Rate, &t.Amount)
		return t, err
	})
	if err != nil {
		return nil, dbError("failed to scan tax component rows of invoice "+invoiceID, err)
	}

	byLine := make(map[string][]domain.InvoiceLineTaxComponent, len(lines))
	for _, t := range taxes {
		byLine[t.LineID] = append(byLine[t.LineID], t)
	}
	for i := range lines {
		lines[i].TaxComponents = byLine[lines[i].LineID]
	}
	return lines, nil
}

func (r *PgxInvoiceRepository) SaveInvoiceEvent(ctx context.Context, event domain.InvoiceEvent) error {
	query := `
		INSERT INTO invoice_events (event_id, invoice_id, sequence, state, occurred_at, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db().Exec(ctx, query, event.EventID, event.InvoiceID, event.Sequence, event.State, event.OccurredAt, event.RecordedBy)
	if err != nil {
		return dbError("failed to append event to invoice "+event.InvoiceID, err)
	}
	return nil
}

func (r *PgxInvoiceRepository) ListInvoiceEvents(ctx context.Context, invoiceID string) ([]domain.InvoiceEvent, error) {
	query := `
		SELECT event_id, invoice_id, sequence, state, occurred_at, recorded_by
		FROM invoice_events
		WHERE invoice_id = $1
		ORDER BY sequence;
	`
	rows, err := r.db().Query(ctx, query, invoiceID)
	if err != nil {
		return nil, dbError("failed to query events of invoice "+invoiceID, err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InvoiceEvent, error) {
		var e domain.InvoiceEvent
		err := row.Scan(&e.EventID, &e.InvoiceID, &e.Sequence, &e.State, &e.OccurredAt, &e.RecordedBy)
		return e, err
	})
	if err != nil {
		return nil, dbError("failed to scan event rows of invoice "+invoiceID, err)
	}
	return events, nil
}

func (r *PgxInvoiceRepository) SaveSettlement(ctx context.Context, settlement domain.InvoiceSettlement) error {
	query := `INSERT INTO invoice_settlements (invoice_id, request_id, linked_at) VALUES ($1, $2, $3);`
	if _, err := r.db().Exec(ctx, query, settlement.InvoiceID, settlement.RequestID, settlement.LinkedAt); err != nil {
		return dbError("failed to link settlement to invoice "+settlement.InvoiceID, err)
	}
	return nil
}

func (r *PgxInvoiceRepository) ListSettlements(ctx context.Context, invoiceID string) ([]domain.InvoiceSettlement, error) {
	query := `
		SELECT invoice_id, request_id, linked_at
		FROM invoice_settlements
		WHERE invoice_id = $1
		ORDER BY request_id;
	`
	rows, err := r.db().Query(ctx, query, invoiceID)
	if err != nil {
		return nil, dbError("failed to query settlements of invoice "+invoiceID, err)
	}
	settlements, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.InvoiceSettlement, error) {
		var s domain.InvoiceSettlement
		err := row.Scan(&s.InvoiceID, &s.RequestID, &s.LinkedAt)
		return s, err
	})
	if err != nil {
		return nil, dbError("failed to scan settlement rows of invoice "+invoiceID, err)
	}
	return settlements, nil
}

// DeleteInvoice relies on ON DELETE CASCADE for lines and tax components.
// Events and settlements restrict the delete.
func (r *PgxInvoiceRepository) DeleteInvoice(ctx context.Context, invoiceID string) error {
	return r.inTx(ctx, func(q querier) error {
		cmdTag, err := q.Exec(ctx, `DELETE FROM invoices WHERE invoice_id = $1;`, invoiceID)
		if err != nil {
			return dbError("failed to delete invoice "+invoiceID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			return notFound("invoice", invoiceID)
		}
		return r.owners.deleteOwners(ctx, q, domain.OwnedInvoice, invoiceID)
	})
}
