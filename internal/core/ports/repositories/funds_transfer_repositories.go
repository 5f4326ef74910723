package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

// FundsTransferReader defines read operations for transfer requests and batches
type FundsTransferReader interface {
	FindRequestGroupByID(ctx context.Context, groupID string) (*domain.FundsTransferRequestGroup, error)
	FindRequestByID(ctx context.Context, requestID string) (*domain.FundsTransferRequest, error)
	FindRequestsByIDs(ctx context.Context, requestIDs []string) (map[string]domain.FundsTransferRequest, error)

	// FindRequestForUpdate retrieves a request and locks its row until the transaction ends.
	FindRequestForUpdate(ctx context.Context, requestID string) (*domain.FundsTransferRequest, error)
	ListRequestsByState(ctx context.Context, state domain.TransferState, limit int, nextToken *string) ([]domain.FundsTransferRequest, *string, error)
	ListRequestsByBatch(ctx context.Context, batchID string) ([]domain.FundsTransferRequest, error)

	// ListRequestIDs pages through every request ID in ascending order.
	ListRequestIDs(ctx context.Context, afterID string, limit int) ([]string, error)

	// ListEventsByRequest returns a request's events in sequence order.
	ListEventsByRequest(ctx context.Context, requestID string) ([]domain.FundsTransferEvent, error)

	FindBatchByID(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error)
	FindBatchForUpdate(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error)
	ListBatchIDs(ctx context.Context, afterID string, limit int) ([]string, error)
	ListBatchMessages(ctx context.Context, batchID string) ([]domain.FundsTransferBatchMessage, error)
	ListCollationsByBatch(ctx context.Context, batchID string) ([]domain.FundsTransferEventCollation, error)
}

// FundsTransferWriter defines write operations for transfer requests and batches
type FundsTransferWriter interface {
	SaveRequestGroup(ctx context.Context, group domain.FundsTransferRequestGroup) error
	SaveRequest(ctx context.Context, request domain.FundsTransferRequest) error

	// SaveEvent appends an event; a sequence collision is reported as apperrors.ErrConflict.
	SaveEvent(ctx context.Context, event domain.FundsTransferEvent) error

	// UpdateRequestState writes the denormalized state column. Callers must hold the row lock.
	UpdateRequestState(ctx context.Context, requestID string, state domain.TransferState, eventCount int64, at time.Time) error

	SaveBatch(ctx context.Context, batch domain.FundsTransferBatch) error
	AssignRequestsToBatch(ctx context.Context, batchID string, requestIDs []string, at time.Time) error
	UpdateBatchState(ctx context.Context, batchID string, state domain.BatchState, at time.Time) error
	SaveBatchMessage(ctx context.Context, message domain.FundsTransferBatchMessage) error
	SaveCollation(ctx context.Context, collation domain.FundsTransferEventCollation) error
}

// FundsTransferRepositoryFacade combines all funds-transfer repository interfaces
type FundsTransferRepositoryFacade interface {
	FundsTransferReader
	FundsTransferWriter
}
