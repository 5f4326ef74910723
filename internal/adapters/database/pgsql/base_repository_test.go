package pgsql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDBError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"remittance key", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: domain.UQRemittanceKey}, apperrors.ErrDuplicateRemittance},
		{"request guid", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: domain.UQTransferRequestGUID}, apperrors.ErrDuplicateRequest},
		{"settlement pair", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: domain.UQInvoiceSettlement}, apperrors.ErrDuplicate},
		{"missing parent", &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "postings_account_id_fkey"}, apperrors.ErrValidation},
		{"serialization", &pgconn.PgError{Code: codeSerializationFailure}, apperrors.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, apperrors.ErrConflict},
		{"cancelled", fmt.Errorf("query: %w", context.Canceled), context.Canceled},
		{"anything else", errors.New("connection reset"), apperrors.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, dbError("failed", tt.err), tt.want)
		})
	}
}

func TestFindError_NoRowsIsNotFound(t *testing.T) {
	err := findError("account", "acc-1", pgx.ErrNoRows)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "account acc-1 not found")
}
