package dto

import (
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateRequestGroupRequest carries already encrypted bank account details.
type CreateRequestGroupRequest struct {
	AccountHolderName      string `json:"accountHolderName" validate:"required,max=255"`
	EncryptedAccountNumber []byte `json:"encryptedAccountNumber" validate:"required"`
	EncryptedTransitNumber []byte `json:"encryptedTransitNumber"`
	EncryptedBankNumber    []byte `json:"encryptedBankNumber"`
	EncryptedAccountCode   []byte `json:"encryptedAccountCode"`
}

// CreateTransferRequest defines the data needed to register a funds-transfer request.
type CreateTransferRequest struct {
	GUID         string                   `json:"guid" validate:"required,max=64"`
	Direction    domain.TransferDirection `json:"direction" validate:"required,oneof=OUTBOUND INBOUND"`
	Amount       decimal.Decimal          `json:"amount"` // positive
	CurrencyCode string                   `json:"currencyCode" validate:"required,len=3,uppercase"`
	GroupID      *string                  `json:"groupID"` // Optional
	UserID       string                   `json:"userID" validate:"required"`
}

// CreateBatchRequest creates a batch and assigns the member requests to it.
type CreateBatchRequest struct {
	GUID         string   `json:"guid" validate:"required,max=64"`
	RequestIDs   []string `json:"requestIDs" validate:"unique,dive,required"`
	OwnerUserIDs []string `json:"ownerUserIDs" validate:"dive,required"`
}

// AppendEventRequest reports one lifecycle event for a request.
type AppendEventRequest struct {
	RequestID    string                   `json:"requestID" validate:"required"`
	EventType    domain.TransferEventType `json:"eventType" validate:"required,oneof=SUBMITTED ACCEPTED REJECTED SETTLED FAILED CANCELLED RETURNED"`
	TraceCode    string                   `json:"traceCode" validate:"max=64"`
	ResponseCode string                   `json:"responseCode" validate:"max=64"`
	OccurredAt   time.Time                `json:"occurredAt"` // Optional, defaults to now
}

// ListRequestsResponse is one page of requests in a given state.
type ListRequestsResponse struct {
	Requests  []domain.FundsTransferRequest `json:"requests"`
	NextToken *string                       `json:"nextToken,omitempty"`
}

// RequestStateReport compares the stored state column with a re-fold of the event log.
type RequestStateReport struct {
	RequestID   string               `json:"requestID"`
	StoredState domain.TransferState `json:"storedState"`
	FoldedState domain.TransferState `json:"foldedState"`
	StoredCount int64                `json:"storedCount"`
	EventCount  int64                `json:"eventCount"`
	FoldError   string               `json:"foldError,omitempty"`
}

// Consistent reports whether the column matches the fold.
func (r RequestStateReport) Consistent() bool {
	return r.FoldError == "" && r.StoredState == r.FoldedState && r.StoredCount == r.EventCount
}
