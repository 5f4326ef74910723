package dto

import (
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

// BatchStateReport compares a stored batch state with a fold over its members.
type BatchStateReport struct {
	BatchID     string            `json:"batchID"`
	StoredState domain.BatchState `json:"storedState"`
	FoldedState domain.BatchState `json:"foldedState"`
}

// ReconciliationReport summarizes one reconciliation pass. Only drifting rows are listed.
type ReconciliationReport struct {
	StartedAt       time.Time            `json:"startedAt"`
	FinishedAt      time.Time            `json:"finishedAt"`
	CheckedRequests int                  `json:"checkedRequests"`
	CheckedBatches  int                  `json:"checkedBatches"`
	RequestDrifts   []RequestStateReport `json:"requestDrifts,omitempty"`
	BatchDrifts     []BatchStateReport   `json:"batchDrifts,omitempty"`
}

// Clean reports whether the pass found no drift.
func (r ReconciliationReport) Clean() bool {
	return len(r.RequestDrifts) == 0 && len(r.BatchDrifts) == 0
}
