package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceState is the folded status of an invoice's event history.
type InvoiceState string

const (
	InvoiceDraft         InvoiceState = "DRAFT"
	InvoiceIssued        InvoiceState = "ISSUED"
	InvoicePartiallyPaid InvoiceState = "PARTIALLY_PAID"
	InvoicePaid          InvoiceState = "PAID"
	InvoiceOverdue       InvoiceState = "OVERDUE"
	InvoiceCancelled     InvoiceState = "CANCELLED"
)

var invoiceTable = map[InvoiceState][]InvoiceState{
	InvoiceDraft:         {InvoiceIssued, InvoiceCancelled},
	InvoiceIssued:        {InvoicePartiallyPaid, InvoicePaid, InvoiceOverdue, InvoiceCancelled},
	InvoicePartiallyPaid: {InvoicePartiallyPaid, InvoicePaid, InvoiceOverdue},
	InvoiceOverdue:       {InvoicePartiallyPaid, InvoicePaid, InvoiceCancelled},
}

// CanMoveTo reports whether an event resulting in next is admissible from s.
func (s InvoiceState) CanMoveTo(next InvoiceState) bool {
	for _, allowed := range invoiceTable[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the invoice accepts no further events.
func (s InvoiceState) IsTerminal() bool {
	return s == InvoicePaid || s == InvoiceCancelled
}

// FoldInvoiceEvents replays an ordered invoice history to the current state.
func FoldInvoiceEvents(events []InvoiceEvent) (InvoiceState, error) {
	state := InvoiceDraft
	var last time.Time
	for _, e := range events {
		if !state.CanMoveTo(e.State) {
			return state, fmt.Errorf("event %d: cannot move invoice from %s to %s", e.Sequence, state, e.State)
		}
		if e.OccurredAt.Before(last) {
			return state, fmt.Errorf("event %d: time %s precedes previous event", e.Sequence, e.OccurredAt.Format(time.RFC3339))
		}
		state = e.State
		last = e.OccurredAt
	}
	return state, nil
}

// Invoice is a bill composed of ordered, cascade-owned lines.
type Invoice struct {
	InvoiceID    string          `json:"invoiceID"`
	Number       string          `json:"number"` // Unique
	CurrencyCode string          `json:"currencyCode"`
	IssueDate    time.Time       `json:"issueDate"` // indexed
	DueDate      time.Time       `json:"dueDate"`   // indexed
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxTotal     decimal.Decimal `json:"taxTotal"`
	Total        decimal.Decimal `json:"total"`
	JournalID    *string         `json:"journalID,omitempty"`
	Lines        []InvoiceLine   `json:"lines,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	CreatedBy    string          `json:"createdBy"`
	Ownership
}

func (i Invoice) OwnedKind() OwnedKind { return OwnedInvoice }
func (i Invoice) OwnedID() string      { return i.InvoiceID }

// InvoiceLine is one priced line of an invoice.
type InvoiceLine struct {
	LineID        string                    `json:"lineID"`
	InvoiceID     string                    `json:"invoiceID"` // cascade delete
	Position      int                       `json:"position"`
	Description   string                    `json:"description"`
	Quantity      decimal.Decimal           `json:"quantity"`
	UnitPrice     decimal.Decimal           `json:"unitPrice"`
	Amount        decimal.Decimal           `json:"amount"`
	TaxComponents []InvoiceLineTaxComponent `json:"taxComponents,omitempty"`
}

// InvoiceLineTaxComponent is one tax applied to a line.
type InvoiceLineTaxComponent struct {
	TaxComponentID string          `json:"taxComponentID"`
	LineID         string          `json:"lineID"` // cascade delete
	Name           string          `json:"name"`
	Rate           decimal.Decimal `json:"rate"` // fraction, 0.2 = 20%
	Amount         decimal.Decimal `json:"amount"`
}

// InvoiceEvent is an append-only status history entry of an invoice.
type InvoiceEvent struct {
	EventID    string       `json:"eventID"`
	InvoiceID  string       `json:"invoiceID"`
	Sequence   int64        `json:"sequence"`
	State      InvoiceState `json:"state"`      // indexed
	OccurredAt time.Time    `json:"occurredAt"` // indexed
	RecordedBy string       `json:"recordedBy"`
}

// InvoiceSettlement links an invoice to a funds-transfer request servicing it.
// The link is informational; the invoice event fold stays authoritative.
type InvoiceSettlement struct {
	InvoiceID string    `json:"invoiceID"`
	RequestID string    `json:"requestID"`
	LinkedAt  time.Time `json:"linkedAt"`
}
