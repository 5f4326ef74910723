package pgsql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/SscSPs/ledgerflow/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

// PgxFundsTransferRepository persists transfer requests, their event logs and batches.
type PgxFundsTransferRepository struct {
	*BaseRepository
	owners *PgxOwnershipRepository
}

func newPgxFundsTransferRepository(base *BaseRepository, owners *PgxOwnershipRepository) *PgxFundsTransferRepository {
	return &PgxFundsTransferRepository{BaseRepository: base, owners: owners}
}

var _ portsrepo.FundsTransferRepositoryFacade = (*PgxFundsTransferRepository)(nil)

func (r *PgxFundsTransferRepository) SaveRequestGroup(ctx context.Context, group domain.FundsTransferRequestGroup) error {
	query := `
		INSERT INTO funds_transfer_request_groups (
			group_id, account_holder_name, encrypted_account_number, encrypted_transit_number,
			encrypted_bank_number, encrypted_account_code, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db().Exec(ctx, query,
		group.GroupID,
		group.AccountHolderName,
		group.EncryptedAccountNumber,
		group.EncryptedTransitNumber,
		group.EncryptedBankNumber,
		group.EncryptedAccountCode,
		group.CreatedAt,
	)
	if err != nil {
		return dbError("failed to save request group "+group.GroupID, err)
	}
	return nil
}

func (r *PgxFundsTransferRepository) FindRequestGroupByID(ctx context.Context, groupID string) (*domain.FundsTransferRequestGroup, error) {
	query := `
		SELECT group_id, account_holder_name, encrypted_account_number, encrypted_transit_number,
		       encrypted_bank_number, encrypted_account_code, created_at
		FROM funds_transfer_request_groups
		WHERE group_id = $1;
	`
	var g domain.FundsTransferRequestGroup
	err := r.db().QueryRow(ctx, query, groupID).Scan(
		&g.GroupID,
		&g.AccountHolderName,
		&g.EncryptedAccountNumber,
		&g.EncryptedTransitNumber,
		&g.EncryptedBankNumber,
		&g.EncryptedAccountCode,
		&g.CreatedAt,
	)
	if err != nil {
		return nil, findError("request group", groupID, err)
	}
	return &g, nil
}

func (r *PgxFundsTransferRepository) SaveRequest(ctx context.Context, request domain.FundsTransferRequest) error {
	query := `
		INSERT INTO funds_transfer_requests (
			request_id, guid, direction, amount, currency_code, group_id, batch_id,
			state, event_count, created_at, updated_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.db().Exec(ctx, query,
		request.RequestID,
		request.GUID,
		request.Direction,
		request.Amount,
		request.CurrencyCode,
		request.GroupID,
		request.BatchID,
		request.State,
		request.EventCount,
		request.CreatedAt,
		request.UpdatedAt,
		request.CreatedBy,
	)
	if err != nil {
		return dbError("failed to save funds transfer request "+request.GUID, err)
	}
	return nil
}

const selectRequest = `
	SELECT request_id, guid, direction, amount, currency_code, group_id, batch_id,
	       state, event_count, created_at, updated_at, created_by
	FROM funds_transfer_requests
`

func scanRequest(row pgx.Row) (domain.FundsTransferRequest, error) {
	var req domain.FundsTransferRequest
	var groupID, batchID sql.NullString
	err := row.Scan(
		&req.RequestID,
		&req.GUID,
		&req.Direction,
		&req.Amount,
		&req.CurrencyCode,
		&groupID,
		&batchID,
		&req.State,
		&req.EventCount,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.CreatedBy,
	)
	if groupID.Valid {
		req.GroupID = &groupID.String
	}
	if batchID.Valid {
		req.BatchID = &batchID.String
	}
	return req, err
}

func collectRequests(rows pgx.Rows) ([]domain.FundsTransferRequest, error) {
	requests, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FundsTransferRequest, error) {
		return scanRequest(row)
	})
	if err != nil {
		return nil, dbError("failed to scan funds transfer request rows", err)
	}
	return requests, nil
}

func (r *PgxFundsTransferRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.FundsTransferRequest, error) {
	req, err := scanRequest(r.db().QueryRow(ctx, selectRequest+` WHERE request_id = $1;`, requestID))
	if err != nil {
		return nil, findError("funds transfer request", requestID, err)
	}
	return &req, nil
}

func (r *PgxFundsTransferRepository) FindRequestsByIDs(ctx context.Context, requestIDs []string) (map[string]domain.FundsTransferRequest, error) {
	result := make(map[string]domain.FundsTransferRequest, len(requestIDs))
	if len(requestIDs) == 0 {
		return result, nil
	}
	rows, err := r.db().Query(ctx, selectRequest+` WHERE request_id = ANY($1);`, requestIDs)
	if err != nil {
		return nil, dbError("failed to query funds transfer requests", err)
	}
	requests, err := collectRequests(rows)
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		result[req.RequestID] = req
	}
	return result, nil
}

func (r *PgxFundsTransferRepository) FindRequestForUpdate(ctx context.Context, requestID string) (*domain.FundsTransferRequest, error) {
	req, err := scanRequest(r.db().QueryRow(ctx, selectRequest+` WHERE request_id = $1 FOR UPDATE;`, requestID))
	if err != nil {
		return nil, findError("funds transfer request", requestID, err)
	}
	return &req, nil
}

func (r *PgxFundsTransferRepository) ListRequestsByState(ctx context.Context, state domain.TransferState, limit int, nextToken *string) ([]domain.FundsTransferRequest, *string, error) {
	cursor, err := pagination.DecodeOptional(nextToken)
	if err != nil {
		return nil, nil, err
	}
	limit = pagination.NormalizeLimit(limit)

	args := []any{state}
	cursorClause := ""
	if cursor != nil {
		cursorClause = `AND (created_at, request_id) > ($2, $3)`
		args = append(args, cursor.At, cursor.ID)
	}
	args = append(args, limit+1)
	query := fmt.Sprintf(`%s WHERE state = $1 %s ORDER BY created_at, request_id LIMIT $%d;`,
		selectRequest, cursorClause, len(args))

	rows, err := r.db().Query(ctx, query, args...)
	if err != nil {
		return nil, nil, dbError("failed to query funds transfer requests in state "+string(state), err)
	}
	requests, err := collectRequests(rows)
	if err != nil {
		return nil, nil, err
	}
	if len(requests) <= limit {
		return requests, nil, nil
	}
	requests = requests[:limit]
	last := requests[limit-1]
	token := pagination.EncodeToken(pagination.Cursor{At: last.CreatedAt, ID: last.RequestID})
	return requests, &token, nil
}

func (r *PgxFundsTransferRepository) ListRequestsByBatch(ctx context.Context, batchID string) ([]domain.FundsTransferRequest, error) {
	rows, err := r.db().Query(ctx, selectRequest+` WHERE batch_id = $1 ORDER BY request_id;`, batchID)
	if err != nil {
		return nil, dbError("failed to query requests of batch "+batchID, err)
	}
	return collectRequests(rows)
}

func (r *PgxFundsTransferRepository) listIDs(ctx context.Context, table, column, afterID string, limit int) ([]string, error) {
	query := fmt.Sprintf(`SELECT %[2]s FROM %[1]s WHERE %[2]s > $1 ORDER BY %[2]s LIMIT $2;`, table, column)
	rows, err := r.db().Query(ctx, query, afterID, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, dbError("failed to page "+table, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dbError("failed to scan "+table+" ids", err)
	}
	return ids, nil
}

func (r *PgxFundsTransferRepository) ListRequestIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	return r.listIDs(ctx, "funds_transfer_requests", "request_id", afterID, limit)
}

func (r *PgxFundsTransferRepository) SaveEvent(ctx context.Context, event domain.FundsTransferEvent) error {
	query := `
		INSERT INTO funds_transfer_events (
			event_id, request_id, sequence, event_type, trace_code, response_code, result_state, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db().Exec(ctx, query,
		event.EventID,
		event.RequestID,
		event.Sequence,
		event.EventType,
		event.TraceCode,
		event.ResponseCode,
		event.ResultState,
		event.OccurredAt,
	)
	if err != nil {
		return dbError("failed to append event to request "+event.RequestID, err)
	}
	return nil
}

func (r *PgxFundsTransferRepository) ListEventsByRequest(ctx context.Context, requestID string) ([]domain.FundsTransferEvent, error) {
	query := `
		SELECT event_id, request_id, sequence, event_type, trace_code, response_code, result_state, occurred_at
		FROM funds_transfer_events
		WHERE request_id = $1
		ORDER BY sequence;
	`
	rows, err := r.db().Query(ctx, query, requestID)
	if err != nil {
		return nil, dbError("failed to query events of request "+requestID, err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FundsTransferEvent, error) {
		var e domain.FundsTransferEvent
		err := row.Scan(&e.EventID, &e.RequestID, &e.Sequence, &e.EventType, &e.TraceCode, &e.ResponseCode, &e.ResultState, &e.OccurredAt)
		return e, err
	})
	if err != nil {
		return nil, dbError("failed to scan event rows of request "+requestID, err)
	}
	return events, nil
}

func (r *PgxFundsTransferRepository) UpdateRequestState(ctx context.Context, requestID string, state domain.TransferState, eventCount int64, at time.Time) error {
	query := `
		UPDATE funds_transfer_requests
		SET state = $2, event_count = $3, updated_at = $4
		WHERE request_id = $1;
	`
	cmdTag, err := r.db().Exec(ctx, query, requestID, state, eventCount, at)
	if err != nil {
		return dbError("failed to update state of request "+requestID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFound("funds transfer request", requestID)
	}
	return nil
}

func (r *PgxFundsTransferRepository) SaveBatch(ctx context.Context, batch domain.FundsTransferBatch) error {
	query := `
		INSERT INTO funds_transfer_batches (batch_id, guid, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	if _, err := r.db().Exec(ctx, query, batch.BatchID, batch.GUID, batch.State, batch.CreatedAt, batch.UpdatedAt); err != nil {
		return dbError("failed to save batch "+batch.GUID, err)
	}
	return nil
}

func (r *PgxFundsTransferRepository) findBatch(ctx context.Context, batchID, lock string) (*domain.FundsTransferBatch, error) {
	query := `SELECT batch_id, guid, state, created_at, updated_at FROM funds_transfer_batches WHERE batch_id = $1 ` + lock + `;`
	var b domain.FundsTransferBatch
	err := r.db().QueryRow(ctx, query, batchID).Scan(&b.BatchID, &b.GUID, &b.State, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, findError("batch", batchID, err)
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedTransferBatch, []string{batchID})
	if err != nil {
		return nil, err
	}
	b.UserIDs = owners[batchID]
	return &b, nil
}

func (r *PgxFundsTransferRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error) {
	return r.findBatch(ctx, batchID, "")
}

func (r *PgxFundsTransferRepository) FindBatchForUpdate(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error) {
	return r.findBatch(ctx, batchID, "FOR UPDATE")
}

func (r *PgxFundsTransferRepository) ListBatchIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	return r.listIDs(ctx, "funds_transfer_batches", "batch_id", afterID, limit)
}

func (r *PgxFundsTransferRepository) AssignRequestsToBatch(ctx context.Context, batchID string, requestIDs []string, at time.Time) error {
	if len(requestIDs) == 0 {
		return nil
	}
	query := `
		UPDATE funds_transfer_requests
		SET batch_id = $1, updated_at = $3
		WHERE request_id = ANY($2);
	`
	cmdTag, err := r.db().Exec(ctx, query, batchID, requestIDs, at)
	if err != nil {
		return dbError("failed to assign requests to batch "+batchID, err)
	}
	if int(cmdTag.RowsAffected()) != len(domain.UniqueSorted(requestIDs)) {
		return apperrors.NewValidationFailedError(fmt.Sprintf("batch %s: only %d of the requested transfers exist", batchID, cmdTag.RowsAffected()))
	}
	return nil
}

func (r *PgxFundsTransferRepository) UpdateBatchState(ctx context.Context, batchID string, state domain.BatchState, at time.Time) error {
	cmdTag, err := r.db().Exec(ctx,
		`UPDATE funds_transfer_batches SET state = $2, updated_at = $3 WHERE batch_id = $1;`,
		batchID, state, at)
	if err != nil {
		return dbError("failed to update state of batch "+batchID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFound("batch", batchID)
	}
	return nil
}

func (r *PgxFundsTransferRepository) SaveBatchMessage(ctx context.Context, message domain.FundsTransferBatchMessage) error {
	query := `
		INSERT INTO funds_transfer_batch_messages (message_id, batch_id, sequence, previous_state, state, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db().Exec(ctx, query,
		message.MessageID,
		message.BatchID,
		message.Sequence,
		message.PreviousState,
		message.State,
		message.Message,
		message.CreatedAt,
	)
	if err != nil {
		return dbError("failed to save message for batch "+message.BatchID, err)
	}
	return nil
}

func (r *PgxFundsTransferRepository) ListBatchMessages(ctx context.Context, batchID string) ([]domain.FundsTransferBatchMessage, error) {
	query := `
		SELECT message_id, batch_id, sequence, previous_state, state, message, created_at
		FROM funds_transfer_batch_messages
		WHERE batch_id = $1
		ORDER BY sequence;
	`
	rows, err := r.db().Query(ctx, query, batchID)
	if err != nil {
		return nil, dbError("failed to query messages of batch "+batchID, err)
	}
	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FundsTransferBatchMessage, error) {
		var m domain.FundsTransferBatchMessage
		err := row.Scan(&m.MessageID, &m.BatchID, &m.Sequence, &m.PreviousState, &m.State, &m.Message, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, dbError("failed to scan message rows of batch "+batchID, err)
	}
	return messages, nil
}

func (r *PgxFundsTransferRepository) SaveCollation(ctx context.Context, collation domain.FundsTransferEventCollation) error {
	query := `
		INSERT INTO funds_transfer_event_collations (
			collation_id, batch_id, batch_state, request_count, event_count, state_counts,
			total_amount, completed_amount, last_event_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	stateCounts := collation.StateCounts
	if stateCounts == nil {
		stateCounts = map[domain.TransferState]int{}
	}
	_, err := r.db().Exec(ctx, query,
		collation.CollationID,
		collation.BatchID,
		collation.BatchState,
		collation.RequestCount,
		collation.EventCount,
		stateCounts,
		collation.TotalAmount,
		collation.CompletedAmount,
		collation.LastEventAt,
		collation.CreatedAt,
	)
	if err != nil {
		return dbError("failed to save collation for batch "+collation.BatchID, err)
	}
	return nil
}

func (r *PgxFundsTransferRepository) ListCollationsByBatch(ctx context.Context, batchID string) ([]domain.FundsTransferEventCollation, error) {
	query := `
		SELECT collation_id, batch_id, batch_state, request_count, event_count, state_counts,
		       total_amount, completed_amount, last_event_at, created_at
		FROM funds_transfer_event_collations
		WHERE batch_id = $1
		ORDER BY created_at, collation_id;
	`
	rows, err := r.db().Query(ctx, query, batchID)
	if err != nil {
		return nil, dbError("failed to query collations of batch "+batchID, err)
	}
	collations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FundsTransferEventCollation, error) {
		var c domain.FundsTransferEventCollation
		var lastEventAt sql.NullTime
		err := row.Scan(
			&c.CollationID,
			&c.BatchID,
			&c.BatchState,
			&c.RequestCount,
			&c.EventCount,
			&c.StateCounts,
			&c.TotalAmount,
			&c.CompletedAmount,
			&lastEventAt,
			&c.CreatedAt,
		)
		if lastEventAt.Valid {
			c.LastEventAt = &lastEventAt.Time
		}
		return c, err
	})
	if err != nil {
		return nil, dbError("failed to scan collation rows of batch "+batchID, err)
	}
	return collations, nil
}
