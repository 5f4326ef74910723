package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestFoldInvoiceEvents(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ev := func(seq int64, state domain.InvoiceState, at time.Time) domain.InvoiceEvent {
		return domain.InvoiceEvent{Sequence: seq, State: state, OccurredAt: at}
	}

	tests := []struct {
		name    string
		events  []domain.InvoiceEvent
		want    domain.InvoiceState
		wantErr bool
	}{
		{name: "draft", want: domain.InvoiceDraft},
		{
			name: "paid in instalments",
			events: []domain.InvoiceEvent{
				ev(1, domain.InvoiceIssued, t0),
				ev(2, domain.InvoicePartiallyPaid, t0.Add(time.Hour)),
				ev(3, domain.InvoicePartiallyPaid, t0.Add(2*time.Hour)),
				ev(4, domain.InvoicePaid, t0.Add(3*time.Hour)),
			},
			want: domain.InvoicePaid,
		},
		{
			name: "overdue then paid",
			events: []domain.InvoiceEvent{
				ev(1, domain.InvoiceIssued, t0),
				ev(2, domain.InvoiceOverdue, t0.Add(24*time.Hour)),
				ev(3, domain.InvoicePaid, t0.Add(48*time.Hour)),
			},
			want: domain.InvoicePaid,
		},
		{
			name:   "same instant is allowed",
			events: []domain.InvoiceEvent{ev(1, domain.InvoiceIssued, t0), ev(2, domain.InvoiceCancelled, t0)},
			want:   domain.InvoiceCancelled,
		},
		{
			name:    "paid from draft",
			events:  []domain.InvoiceEvent{ev(1, domain.InvoicePaid, t0)},
			want:    domain.InvoiceDraft,
			wantErr: true,
		},
		{
			name:    "event after paid",
			events:  []domain.InvoiceEvent{ev(1, domain.InvoiceIssued, t0), ev(2, domain.InvoicePaid, t0), ev(3, domain.InvoiceOverdue, t0)},
			want:    domain.InvoicePaid,
			wantErr: true,
		},
		{
			name:    "time goes backwards",
			events:  []domain.InvoiceEvent{ev(1, domain.InvoiceIssued, t0), ev(2, domain.InvoicePaid, t0.Add(-time.Minute))},
			want:    domain.InvoiceIssued,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.FoldInvoiceEvents(tt.events)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoiceState_Terminal(t *testing.T) {
	assert.True(t, domain.InvoicePaid.IsTerminal())
	assert.True(t, domain.InvoiceCancelled.IsTerminal())
	assert.False(t, domain.InvoiceOverdue.IsTerminal())
	assert.False(t, domain.InvoicePartiallyPaid.CanMoveTo(domain.InvoiceCancelled))
}
