package services

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// JournalBuilder derives the journal to commit for an executed transition.
// Returning ok=false skips the commit.
type JournalBuilder func(instance domain.WorkflowInstance, transition domain.StateTransition) (req dto.CommitJournalRequest, ok bool, err error)

// CommitJournalOnTransition returns a hook that commits a journal in the
// transaction of the transition. A failed commit rolls the transition back.
func CommitJournalOnTransition(ledger portssvc.LedgerWriterSvc, build JournalBuilder) portssvc.TransitionHook {
	return func(ctx context.Context, instance domain.WorkflowInstance, transition domain.StateTransition) error {
		req, ok, err := build(instance, transition)
		if err != nil || !ok {
			return err
		}
		if len(req.OwnerUserIDs) == 0 {
			req.OwnerUserIDs = transition.OwnerIDs()
		}
		if req.CommittedAt.IsZero() {
			req.CommittedAt = transition.ExecutedAt
		}
		_, err = ledger.CommitJournal(ctx, req)
		return err
	}
}

// TransferEventBuilder derives the funds-transfer event to append for an executed transition.
type TransferEventBuilder func(instance domain.WorkflowInstance, transition domain.StateTransition) (req dto.AppendEventRequest, ok bool, err error)

// AppendTransferEventOnTransition returns a hook that appends a funds-transfer
// event in the transaction of the transition.
func AppendTransferEventOnTransition(transfers portssvc.FundsTransferWriterSvc, build TransferEventBuilder) portssvc.TransitionHook {
	return func(ctx context.Context, instance domain.WorkflowInstance, transition domain.StateTransition) error {
		req, ok, err := build(instance, transition)
		if err != nil || !ok {
			return err
		}
		if req.OccurredAt.IsZero() {
			req.OccurredAt = transition.ExecutedAt
		}
		_, err = transfers.AppendEvent(ctx, req)
		return err
	}
}
