package dto

import (
	"testing"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	journal := func(mut func(*CommitJournalRequest)) CommitJournalRequest {
		r := CommitJournalRequest{
			Type: domain.JournalGeneral,
			Postings: []PostingRequest{
				{AccountID: "A", Amount: decimal.NewFromInt(5)},
				{AccountID: "B", Amount: decimal.NewFromInt(-5)},
			},
			OwnerUserIDs: []string{"u1"},
			UserID:       "u1",
		}
		if mut != nil {
			mut(&r)
		}
		return r
	}

	tests := []struct {
		name    string
		req     any
		wantErr string
	}{
		{name: "valid journal", req: journal(nil)},
		{
			name:    "single posting",
			req:     journal(func(r *CommitJournalRequest) { r.Postings = r.Postings[:1] }),
			wantErr: "postings: must contain at least 2 items",
		},
		{
			name:    "posting without account",
			req:     journal(func(r *CommitJournalRequest) { r.Postings[1].AccountID = "" }),
			wantErr: "postings[1].accountID: is required",
		},
		{
			name:    "reversal type is not committed directly",
			req:     journal(func(r *CommitJournalRequest) { r.Type = domain.JournalReversal }),
			wantErr: "type: must be one of",
		},
		{
			name:    "lowercase currency",
			req:     OpenAccountRequest{Name: "Cash", CurrencyCode: "usd", OwnerUserIDs: []string{"u1"}, UserID: "u1"},
			wantErr: "currencyCode: must be uppercase",
		},
		{
			name:    "unknown permission",
			req:     GrantDispositionRequest{UserID: "u", SegregationID: "s", GrantedBy: "u", Permissions: []domain.Permission{"FLY"}},
			wantErr: "permissions[0]: must be one of",
		},
		{
			name: "due date before issue date",
			req: IssueInvoiceRequest{
				Number: "INV-1", CurrencyCode: "EUR", IssueDate: day, DueDate: day.Add(-time.Hour),
				Lines:        []InvoiceLineRequest{{Description: "work"}},
				OwnerUserIDs: []string{"u1"}, UserID: "u1",
			},
			wantErr: "dueDate: must not be before IssueDate",
		},
		{
			name:    "duplicate batch members",
			req:     CreateBatchRequest{GUID: "g", RequestIDs: []string{"r1", "r1"}},
			wantErr: "requestIDs: must not contain duplicates",
		},
		{
			name:    "bad email",
			req:     CreateUserRequest{Email: "nope", Username: "alice"},
			wantErr: "email: invalid email format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequestStateReport_Consistent(t *testing.T) {
	ok := RequestStateReport{StoredState: domain.TransferSubmitted, FoldedState: domain.TransferSubmitted, StoredCount: 1, EventCount: 1}
	assert.True(t, ok.Consistent())

	drift := ok
	drift.FoldedState = domain.TransferAccepted
	assert.False(t, drift.Consistent())

	broken := ok
	broken.FoldError = "event 2: invalid"
	assert.False(t, broken.Consistent())
}
