package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/utils/pagination"
)

func (s *Store) SaveRequestGroup(ctx context.Context, group domain.FundsTransferRequestGroup) error {
	return s.write(ctx, func(st *state) error {
		if _, exists := st.requestGroups[group.GroupID]; exists {
			return apperrors.NewDuplicateError(fmt.Sprintf("request group %s already exists", group.GroupID))
		}
		st.requestGroups[group.GroupID] = group
		return nil
	})
}

func (s *Store) FindRequestGroupByID(_ context.Context, groupID string) (*domain.FundsTransferRequestGroup, error) {
	var out *domain.FundsTransferRequestGroup
	err := s.read(func(st *state) error {
		g, ok := st.requestGroups[groupID]
		if !ok {
			return notFound("request group", groupID)
		}
		out = &g
		return nil
	})
	return out, err
}

func (s *Store) SaveRequest(ctx context.Context, request domain.FundsTransferRequest) error {
	return s.write(ctx, func(st *state) error {
		if request.GroupID != nil {
			if _, ok := st.requestGroups[*request.GroupID]; !ok {
				return missingRef("request group", *request.GroupID)
			}
		}
		if request.BatchID != nil {
			if _, ok := st.batches[*request.BatchID]; !ok {
				return missingRef("batch", *request.BatchID)
			}
		}
		if err := st.claim(domain.UQTransferRequestGUID, request.RequestID, request.GUID); err != nil {
			return err
		}
		st.requests[request.RequestID] = request
		return nil
	})
}

func (s *Store) FindRequestByID(_ context.Context, requestID string) (*domain.FundsTransferRequest, error) {
	var out *domain.FundsTransferRequest
	err := s.read(func(st *state) error {
		r, ok := st.requests[requestID]
		if !ok {
			return notFound("funds transfer request", requestID)
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) FindRequestsByIDs(_ context.Context, requestIDs []string) (map[string]domain.FundsTransferRequest, error) {
	out := make(map[string]domain.FundsTransferRequest, len(requestIDs))
	err := s.read(func(st *state) error {
		for _, id := range requestIDs {
			if r, ok := st.requests[id]; ok {
				out[id] = r
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) FindRequestForUpdate(ctx context.Context, requestID string) (*domain.FundsTransferRequest, error) {
	return s.FindRequestByID(ctx, requestID)
}

func (s *Store) ListRequestsByState(_ context.Context, transferState domain.TransferState, limit int, nextToken *string) ([]domain.FundsTransferRequest, *string, error) {
	cursor, err := pagination.DecodeOptional(nextToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.NormalizeLimit(limit)

	var rows []domain.FundsTransferRequest
	err = s.read(func(st *state) error {
		for id, r := range st.requests {
			if r.State != transferState {
				continue
			}
			if cursor != nil && !cursor.After(r.CreatedAt, id) {
				continue
			}
			rows = append(rows, r)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].RequestID < rows[j].RequestID
	})
	if len(rows) <= limit {
		return rows, nil, nil
	}
	rows = rows[:limit]
	last := rows[limit-1]
	token := pagination.EncodeToken(pagination.Cursor{At: last.CreatedAt, ID: last.RequestID})
	return rows, &token, nil
}

func (s *Store) ListRequestsByBatch(_ context.Context, batchID string) ([]domain.FundsTransferRequest, error) {
	var out []domain.FundsTransferRequest
	err := s.read(func(st *state) error {
		for _, r := range st.requests {
			if r.BatchID != nil && *r.BatchID == batchID {
				out = append(out, r)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID < out[j].RequestID })
	return out, err
}

func pageIDs(ids []string, afterID string, limit int) []string {
	sort.Strings(ids)
	start := sort.SearchStrings(ids, afterID)
	if start < len(ids) && ids[start] == afterID {
		start++
	}
	end := start + pagination.NormalizeLimit(limit)
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end]
}

func (s *Store) ListRequestIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := s.read(func(st *state) error {
		for id := range st.requests {
			ids = append(ids, id)
		}
		return nil
	})
	return pageIDs(ids, afterID, limit), err
}

func (s *Store) SaveEvent(ctx context.Context, event domain.FundsTransferEvent) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.requests[event.RequestID]; !ok {
			return missingRef("funds transfer request", event.RequestID)
		}
		if err := st.claim(domain.UQTransferEventSequence, event.EventID, event.RequestID, fmt.Sprint(event.Sequence)); err != nil {
			return err
		}
		st.events[event.RequestID] = append(st.events[event.RequestID], event)
		return nil
	})
}

func (s *Store) ListEventsByRequest(_ context.Context, requestID string) ([]domain.FundsTransferEvent, error) {
	var out []domain.FundsTransferEvent
	err := s.read(func(st *state) error {
		out = append(out, st.events[requestID]...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}

func (s *Store) UpdateRequestState(ctx context.Context, requestID string, transferState domain.TransferState, eventCount int64, at time.Time) error {
	return s.write(ctx, func(st *state) error {
		r, ok := st.requests[requestID]
		if !ok {
			return notFound("funds transfer request", requestID)
		}
		r.State = transferState
		r.EventCount = eventCount
		r.UpdatedAt = at
		st.requests[requestID] = r
		return nil
	})
}

func (s *Store) SaveBatch(ctx context.Context, batch domain.FundsTransferBatch) error {
	return s.write(ctx, func(st *state) error {
		if err := st.claim(domain.UQTransferBatchGUID, batch.BatchID, batch.GUID); err != nil {
			return err
		}
		batch.Ownership = domain.Ownership{}
		st.batches[batch.BatchID] = batch
		return nil
	})
}

func (st *state) batch(id string) (domain.FundsTransferBatch, bool) {
	b, ok := st.batches[id]
	if ok {
		b.Ownership = domain.Ownership{UserIDs: st.ownersOf(domain.OwnedTransferBatch, id)}
	}
	return b, ok
}

func (s *Store) FindBatchByID(_ context.Context, batchID string) (*domain.FundsTransferBatch, error) {
	var out *domain.FundsTransferBatch
	err := s.read(func(st *state) error {
		b, ok := st.batch(batchID)
		if !ok {
			return notFound("batch", batchID)
		}
		out = &b
		return nil
	})
	return out, err
}

func (s *Store) FindBatchForUpdate(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error) {
	return s.FindBatchByID(ctx, batchID)
}

func (s *Store) ListBatchIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := s.read(func(st *state) error {
		for id := range st.batches {
			ids = append(ids, id)
		}
		return nil
	})
	return pageIDs(ids, afterID, limit), err
}

func (s *Store) AssignRequestsToBatch(ctx context.Context, batchID string, requestIDs []string, at time.Time) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.batches[batchID]; !ok {
			return notFound("batch", batchID)
		}
		for _, id := range requestIDs {
			r, ok := st.requests[id]
			if !ok {
				return missingRef("funds transfer request", id)
			}
			bid := batchID
			r.BatchID = &bid
			r.UpdatedAt = at
			st.requests[id] = r
		}
		return nil
	})
}

func (s *Store) UpdateBatchState(ctx context.Context, batchID string, batchState domain.BatchState, at time.Time) error {
	return s.write(ctx, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return notFound("batch", batchID)
		}
		b.State = batchState
		b.UpdatedAt = at
		st.batches[batchID] = b
		return nil
	})
}

func (s *Store) SaveBatchMessage(ctx context.Context, message domain.FundsTransferBatchMessage) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.batches[message.BatchID]; !ok {
			return missingRef("batch", message.BatchID)
		}
		if err := st.claim(domain.UQBatchMessageSequence, message.MessageID, message.BatchID, fmt.Sprint(message.Sequence)); err != nil {
			return err
		}
		st.batchMessages[message.BatchID] = append(st.batchMessages[message.BatchID], message)
		return nil
	})
}

func (s *Store) ListBatchMessages(_ context.Context, batchID string) ([]domain.FundsTransferBatchMessage, error) {
	var out []domain.FundsTransferBatchMessage
	err := s.read(func(st *state) error {
		out = append(out, st.batchMessages[batchID]...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}

func (s *Store) SaveCollation(ctx context.Context, collation domain.FundsTransferEventCollation) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.batches[collation.BatchID]; !ok {
			return missingRef("batch", collation.BatchID)
		}
		for _, c := range st.collations[collation.BatchID] {
			if c.CollationID == collation.CollationID {
				return apperrors.NewDuplicateError(fmt.Sprintf("collation %s already exists", c.CollationID))
			}
		}
		st.collations[collation.BatchID] = append(st.collations[collation.BatchID], collation)
		return nil
	})
}

func (s *Store) ListCollationsByBatch(_ context.Context, batchID string) ([]domain.FundsTransferEventCollation, error) {
	var out []domain.FundsTransferEventCollation
	err := s.read(func(st *state) error {
		out = append(out, st.collations[batchID]...)
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}
