package database

import (
	"errors"
	"testing"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestViolationError(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{domain.UQRemittanceKey, apperrors.ErrDuplicateRemittance},
		{domain.UQTransferRequestGUID, apperrors.ErrDuplicateRequest},
		{domain.UQTransitionSequence, apperrors.ErrConflict},
		{domain.UQInvoiceNumber, apperrors.ErrDuplicate},
		{"unknown_constraint", apperrors.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			err := ViolationError(tt.constraint, "k")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), tt.constraint)
		})
	}
	assert.True(t, apperrors.IsRetryable(ViolationError(domain.UQTransferEventSequence, "")))
}
