package services

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// FundsTransferSetupSvc defines operations that register requests and batches
type FundsTransferSetupSvc interface {
	CreateRequestGroup(ctx context.Context, req dto.CreateRequestGroupRequest) (*domain.FundsTransferRequestGroup, error)
	CreateRequest(ctx context.Context, req dto.CreateTransferRequest) (*domain.FundsTransferRequest, error)
	CreateBatch(ctx context.Context, req dto.CreateBatchRequest) (*domain.FundsTransferBatch, error)
}

// FundsTransferWriterSvc defines the lifecycle write path
type FundsTransferWriterSvc interface {
	// AppendEvent appends an event to the request log and folds it into the
	// request state, and the batch state if the request belongs to one.
	AppendEvent(ctx context.Context, req dto.AppendEventRequest) (*domain.FundsTransferEvent, error)

	// RefreshBatchState re-derives the batch state from its members and records
	// a batch message when it changed.
	RefreshBatchState(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error)

	// CollateBatchEvents stores a write-once snapshot of the batch's events.
	CollateBatchEvents(ctx context.Context, batchID string) (*domain.FundsTransferEventCollation, error)
}

// FundsTransferReaderSvc defines read operations for requests and batches
type FundsTransferReaderSvc interface {
	GetRequest(ctx context.Context, requestID string) (*domain.FundsTransferRequest, error)
	ListRequestEvents(ctx context.Context, requestID string) ([]domain.FundsTransferEvent, error)
	GetBatch(ctx context.Context, batchID string) (*domain.FundsTransferBatch, error)
	ListBatchMessages(ctx context.Context, batchID string) ([]domain.FundsTransferBatchMessage, error)
	ListRequestsByState(ctx context.Context, state domain.TransferState, limit int, nextToken *string) (*dto.ListRequestsResponse, error)

	// VerifyRequestState re-folds the event log and compares it with the stored state.
	VerifyRequestState(ctx context.Context, requestID string) (*dto.RequestStateReport, error)
}

// FundsTransferSvcFacade combines all funds-transfer service interfaces
type FundsTransferSvcFacade interface {
	FundsTransferSetupSvc
	FundsTransferWriterSvc
	FundsTransferReaderSvc
}
