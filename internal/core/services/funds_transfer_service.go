package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// fundsTransferService tracks funds-transfer requests and batches through their lifecycle.
type fundsTransferService struct {
	BaseService
}

// NewFundsTransferService creates a new funds-transfer service.
func NewFundsTransferService(store portsrepo.Store, opts ...ServiceOption) portssvc.FundsTransferSvcFacade {
	o := newServiceOptions(opts)
	return &fundsTransferService{BaseService: newBaseService(store, o)}
}

var _ portssvc.FundsTransferSvcFacade = (*fundsTransferService)(nil)

func (s *fundsTransferService) CreateRequestGroup(ctx context.Context, req dto.CreateRequestGroupRequest) (*domain.FundsTransferRequestGroup, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	group := domain.FundsTransferRequestGroup{
		GroupID:                uuid.NewString(),
		AccountHolderName:      req.AccountHolderName,
		EncryptedAccountNumber: req.EncryptedAccountNumber,
		EncryptedTransitNumber: req.EncryptedTransitNumber,
		EncryptedBankNumber:    req.EncryptedBankNumber,
		EncryptedAccountCode:   req.EncryptedAccountCode,
		CreatedAt:              s.now(),
	}
	if err := s.reader(ctx).SaveRequestGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("failed to create request group: %w", err)
	}
	return &group, nil
}

func (s *fundsTransferService) CreateRequest(ctx context.Context, req dto.CreateTransferRequest) (*domain.FundsTransferRequest, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.NewValidationFailedError("amount: must be positive")
	}
	now := s.now()
	request := domain.FundsTransferRequest{
		RequestID:    uuid.NewString(),
		GUID:         req.GUID,
		Direction:    req.Direction,
		Amount:       req.Amount,
		CurrencyCode: req.CurrencyCode,
		GroupID:      req.GroupID,
		State:        domain.TransferPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    req.UserID,
	}
	if err := s.reader(ctx).SaveRequest(ctx, request); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateRequest) {
			s.LogWarn(ctx, "Duplicate funds transfer request", slog.String("guid", req.GUID))
		}
		return nil, fmt.Errorf("failed to create funds transfer request: %w", err)
	}
	s.LogInfo(ctx, "Funds transfer request created",
		slog.String("request_id", request.RequestID),
		slog.String("guid", request.GUID))
	return &request, nil
}

func (s *fundsTransferService) CreateBatch(ctx context.Context, req dto.CreateBatchRequest) (*domain.FundsTransferBatch, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	now := s.now()
	batch := domain.FundsTransferBatch{
		BatchID:   uuid.NewString(),
		GUID:      req.GUID,
		State:     domain.BatchPending,
		CreatedAt: now,
		UpdatedAt: now,
		Ownership: domain.Ownership{UserIDs: domain.UniqueSorted(req.OwnerUserIDs)},
	}

	var out *domain.FundsTransferBatch
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if err := tx.SaveBatch(ctx, batch); err != nil {
			return err
		}
		if err := tx.SaveOwnershipEdges(ctx, domain.EdgesOf(batch)); err != nil {
			return err
		}
		if len(req.RequestIDs) > 0 {
			members, err := tx.FindRequestsByIDs(ctx, req.RequestIDs)
			if err != nil {
				return err
			}
			for _, id := range req.RequestIDs {
				r, ok := members[id]
				if !ok {
					return apperrors.NewValidationFailedError(fmt.Sprintf("funds transfer request %s does not exist", id))
				}
				if r.BatchID != nil {
					return apperrors.NewValidationFailedError(fmt.Sprintf("funds transfer request %s already belongs to batch %s", id, *r.BatchID))
				}
			}
			if err := tx.AssignRequestsToBatch(ctx, batch.BatchID, req.RequestIDs, now); err != nil {
				return err
			}
		}
		refreshed, err := s.refreshBatch(ctx, tx, batch.BatchID)
		out = refreshed
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	return out, nil
}

func (s *fundsTransferService) AppendEvent(ctx context.Context, req dto.AppendEventRequest) (*domain.FundsTransferEvent, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var out *domain.FundsTransferEvent
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		request, err := tx.FindRequestForUpdate(ctx, req.RequestID)
		if err != nil {
			return err
		}
		next, err := domain.NextTransferState(request.State, req.EventType)
		if err != nil {
			return apperrors.NewInvalidTransitionError(fmt.Sprintf("request %s: %v", request.RequestID, err))
		}

		now := s.now()
		occurredAt := req.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = now
		}
		event := domain.FundsTransferEvent{
			EventID:      uuid.NewString(),
			RequestID:    request.RequestID,
			Sequence:     request.EventCount + 1,
			EventType:    req.EventType,
			TraceCode:    req.TraceCode,
			ResponseCode: req.ResponseCode,
			ResultState:  next,
			OccurredAt:   occurredAt,
		}
		if err := tx.SaveEvent(ctx, event); err != nil {
			return err
		}
		if err := tx.UpdateRequestState(ctx, request.RequestID, next, event.Sequence, now); err != nil {
			return err
		}
		if request.BatchID != nil {
			if _, err := s.refreshBatch(ctx, tx, *request.BatchID); err != nil {
				return err
			}
		}
		out = &event
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidTransition) {
			s.LogError(ctx, err, "Failed to append funds transfer event",
				slog.String("request_id", req.RequestID),
				slog.String("event_type", string(req.EventType)))
		}
		return nil, fmt.Errorf("failed to append %s event: %w", req.EventType, err)
	}
	s.LogDebug(ctx, "Funds transfer event appended",
		slog.String("request_id", out.RequestID),
		slog.Int64("sequence", out.Sequence),
		slog.String("state", string(out.ResultState)))
	return out, nil
}

func (s *fundsTransferService) RefreshBatchState(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error) {
	var out *domain.FundsTransferBatch
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		b, err := s.refreshBatch(ctx, tx, batchID)
		out = b
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh batch %s: %w", batchID, err)
	}
	return out, nil
}

// refreshBatch folds the member states into the batch under the batch row lock
// and appends a batch message when the state changed.
func (s *fundsTransferService) refreshBatch(ctx context.Context, tx portsrepo.Store, batchID string) (*domain.FundsTransferBatch, error) {
	batch, err := tx.FindBatchForUpdate(ctx, batchID)
	if err != nil {
		return nil, err
	}
	members, err := tx.ListRequestsByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	states := make([]domain.TransferState, 0, len(members))
	for _, m := range members {
		states = append(states, m.State)
	}
	folded := domain.FoldBatchState(states)
	if folded == batch.State {
		return batch, nil
	}

	history, err := tx.ListBatchMessages(ctx, batchID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	message := domain.FundsTransferBatchMessage{
		MessageID:     uuid.NewString(),
		BatchID:       batchID,
		Sequence:      int64(len(history)) + 1,
		PreviousState: batch.State,
		State:         folded,
		Message:       fmt.Sprintf("batch moved from %s to %s", batch.State, folded),
		CreatedAt:     now,
	}
	if err := tx.SaveBatchMessage(ctx, message); err != nil {
		return nil, err
	}
	if err := tx.UpdateBatchState(ctx, batchID, folded, now); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Batch state changed",
		slog.String("batch_id", batchID),
		slog.String("from", string(batch.State)),
		slog.String("to", string(folded)))
	batch.State = folded
	batch.UpdatedAt = now
	return batch, nil
}

func (s *fundsTransferService) CollateBatchEvents(ctx context.Context, batchID string) (*domain.FundsTransferEventCollation, error) {
	var out *domain.FundsTransferEventCollation
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		batch, err := tx.FindBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		members, err := tx.ListRequestsByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		collation := domain.FundsTransferEventCollation{
			CollationID:     uuid.NewString(),
			BatchID:         batchID,
			BatchState:      batch.State,
			RequestCount:    len(members),
			StateCounts:     make(map[domain.TransferState]int),
			TotalAmount:     decimal.Zero,
			CompletedAmount: decimal.Zero,
			CreatedAt:       s.now(),
		}
		for _, m := range members {
			events, err := tx.ListEventsByRequest(ctx, m.RequestID)
			if err != nil {
				return err
			}
			collation.EventCount += len(events)
			for _, e := range events {
				if collation.LastEventAt == nil || e.OccurredAt.After(*collation.LastEventAt) {
					at := e.OccurredAt
					collation.LastEventAt = &at
				}
			}
			collation.StateCounts[m.State]++
			collation.TotalAmount = collation.TotalAmount.Add(m.Amount)
			if m.State == domain.TransferCompleted {
				collation.CompletedAmount = collation.CompletedAmount.Add(m.Amount)
			}
		}
		if err := tx.SaveCollation(ctx, collation); err != nil {
			return err
		}
		out = &collation
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collate batch %s: %w", batchID, err)
	}
	return out, nil
}

func (s *fundsTransferService) GetRequest(ctx context.Context, requestID string) (*domain.FundsTransferRequest, error) {
	request, err := s.reader(ctx).FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get funds transfer request %s: %w", requestID, err)
	}
	return request, nil
}

func (s *fundsTransferService) ListRequestEvents(ctx context.Context, requestID string) ([]domain.FundsTransferEvent, error) {
	store := s.reader(ctx)
	if _, err := store.FindRequestByID(ctx, requestID); err != nil {
		return nil, fmt.Errorf("failed to list events of %s: %w", requestID, err)
	}
	events, err := store.ListEventsByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events of %s: %w", requestID, err)
	}
	return events, nil
}

func (s *fundsTransferService) GetBatch(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error) {
	batch, err := s.reader(ctx).FindBatchByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %s: %w", batchID, err)
	}
	return batch, nil
}

func (s *fundsTransferService) ListBatchMessages(ctx context.Context, batchID string) ([]domain.FundsTransferBatchMessage, error) {
	store := s.reader(ctx)
	if _, err := store.FindBatchByID(ctx, batchID); err != nil {
		return nil, fmt.Errorf("failed to list messages of batch %s: %w", batchID, err)
	}
	messages, err := store.ListBatchMessages(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages of batch %s: %w", batchID, err)
	}
	return messages, nil
}

func (s *fundsTransferService) ListRequestsByState(ctx context.Context, state domain.TransferState, limit int, nextToken *string) (*dto.ListRequestsResponse, error) {
	if state == "" {
		return nil, apperrors.NewValidationFailedError("state is required")
	}
	requests, next, err := s.reader(ctx).ListRequestsByState(ctx, state, limit, nextToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s requests: %w", state, err)
	}
	return &dto.ListRequestsResponse{Requests: requests, NextToken: next}, nil
}

func (s *fundsTransferService) VerifyRequestState(ctx context.Context, requestID string) (*dto.RequestStateReport, error) {
	var report *dto.RequestStateReport
	// the row lock keeps appends out while the log is read
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		request, err := tx.FindRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		events, err := tx.ListEventsByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		report = &dto.RequestStateReport{
			RequestID:   requestID,
			StoredState: request.State,
			StoredCount: request.EventCount,
			EventCount:  int64(len(events)),
		}
		folded, err := domain.FoldTransferEvents(events)
		report.FoldedState = folded
		if err != nil {
			report.FoldError = err.Error()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify request %s: %w", requestID, err)
	}
	return report, nil
}
