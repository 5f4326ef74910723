package services

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/dto"
)

// ReconciliationSvc re-derives folded state columns from their logs.
type ReconciliationSvc interface {
	Reconcile(ctx context.Context) (*dto.ReconciliationReport, error)
}
