package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferDirection is the direction of money movement relative to the platform.
type TransferDirection string

const (
	TransferOutbound TransferDirection = "OUTBOUND"
	TransferInbound  TransferDirection = "INBOUND"
)

// TransferState is the folded status of a funds-transfer request.
type TransferState string

const (
	TransferPending   TransferState = "PENDING"
	TransferSubmitted TransferState = "SUBMITTED"
	TransferAccepted  TransferState = "ACCEPTED"
	TransferCompleted TransferState = "COMPLETED"
	TransferFailed    TransferState = "FAILED"
	TransferCancelled TransferState = "CANCELLED"
	TransferReturned  TransferState = "RETURNED"
)

// IsTerminal reports whether no further progress is expected. Completed counts as
// terminal even though a later return can still move it to Returned.
func (s TransferState) IsTerminal() bool {
	switch s {
	case TransferCompleted, TransferFailed, TransferCancelled, TransferReturned:
		return true
	}
	return false
}

// TransferEventType is the kind of lifecycle event reported for a request.
type TransferEventType string

const (
	EventSubmitted TransferEventType = "SUBMITTED"
	EventAccepted  TransferEventType = "ACCEPTED" // ack
	EventRejected  TransferEventType = "REJECTED" // nack
	EventSettled   TransferEventType = "SETTLED"
	EventFailed    TransferEventType = "FAILED"
	EventCancelled TransferEventType = "CANCELLED"
	EventReturned  TransferEventType = "RETURNED"
)

// transferTable is the deterministic state-transition table of the request fold.
var transferTable = map[TransferState]map[TransferEventType]TransferState{
	TransferPending: {
		EventSubmitted: TransferSubmitted,
		EventCancelled: TransferCancelled,
	},
	TransferSubmitted: {
		EventAccepted:  TransferAccepted,
		EventRejected:  TransferFailed,
		EventFailed:    TransferFailed,
		EventCancelled: TransferCancelled,
	},
	TransferAccepted: {
		EventRejected: TransferFailed,
		EventSettled:  TransferCompleted,
		EventFailed:   TransferFailed,
	},
	TransferCompleted: {
		EventReturned: TransferReturned,
	},
}

// NextTransferState applies one event to state.
func NextTransferState(state TransferState, event TransferEventType) (TransferState, error) {
	if next, ok := transferTable[state][event]; ok {
		return next, nil
	}
	return state, fmt.Errorf("event %s is not valid in state %s", event, state)
}

// FoldTransferEvents reduces an ordered event sequence to the current state.
func FoldTransferEvents(events []FundsTransferEvent) (TransferState, error) {
	state := TransferPending
	for _, e := range events {
		next, err := NextTransferState(state, e.EventType)
		if err != nil {
			return state, fmt.Errorf("event %d: %w", e.Sequence, err)
		}
		state = next
	}
	return state, nil
}

// FundsTransferRequest is one transfer instruction.
type FundsTransferRequest struct {
	RequestID    string            `json:"requestID"`
	GUID         string            `json:"guid"` // Unique
	Direction    TransferDirection `json:"direction"`
	Amount       decimal.Decimal   `json:"amount"`
	CurrencyCode string            `json:"currencyCode"`
	GroupID      *string           `json:"groupID,omitempty"`
	BatchID      *string           `json:"batchID,omitempty"`
	State        TransferState     `json:"state"` // denormalized fold of the event log
	EventCount   int64             `json:"eventCount"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	CreatedBy    string            `json:"createdBy"`
}

// FundsTransferEvent is an append-only lifecycle log entry of a request.
type FundsTransferEvent struct {
	EventID      string            `json:"eventID"`
	RequestID    string            `json:"requestID"`
	Sequence     int64             `json:"sequence"` // unique per request, starts at 1
	EventType    TransferEventType `json:"eventType"`
	TraceCode    string            `json:"traceCode"`
	ResponseCode string            `json:"responseCode"`
	ResultState  TransferState     `json:"resultState"`
	OccurredAt   time.Time         `json:"occurredAt"`
}

// FundsTransferRequestGroup groups requests sharing one destination bank account.
// The account fields are opaque ciphertext produced outside this module.
type FundsTransferRequestGroup struct {
	GroupID                string    `json:"groupID"`
	AccountHolderName      string    `json:"accountHolderName"`
	EncryptedAccountNumber []byte    `json:"-"`
	EncryptedTransitNumber []byte    `json:"-"`
	EncryptedBankNumber    []byte    `json:"-"`
	EncryptedAccountCode   []byte    `json:"-"`
	CreatedAt              time.Time `json:"createdAt"`
}

// BatchState is the folded status of a batch over its member requests.
type BatchState string

const (
	BatchPending             BatchState = "PENDING"
	BatchInProgress          BatchState = "IN_PROGRESS"
	BatchCompleted           BatchState = "COMPLETED"
	BatchCompletedWithErrors BatchState = "COMPLETED_WITH_ERRORS"
	BatchFailed              BatchState = "FAILED"
)

// FoldBatchState derives a batch status from its members' states.
// A batch only completes once every member is terminal.
func FoldBatchState(states []TransferState) BatchState {
	if len(states) == 0 {
		return BatchPending
	}
	allPending := true
	allTerminal := true
	completed := 0
	for _, s := range states {
		if s != TransferPending {
			allPending = false
		}
		if !s.IsTerminal() {
			allTerminal = false
		}
		if s == TransferCompleted {
			completed++
		}
	}
	switch {
	case allPending:
		return BatchPending
	case !allTerminal:
		return BatchInProgress
	case completed == len(states):
		return BatchCompleted
	case completed == 0:
		return BatchFailed
	default:
		return BatchCompletedWithErrors
	}
}

// FundsTransferBatch is a collection of requests submitted together.
type FundsTransferBatch struct {
	BatchID   string     `json:"batchID"`
	GUID      string     `json:"guid"` // Unique
	State     BatchState `json:"state"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Ownership
}

func (b FundsTransferBatch) OwnedKind() OwnedKind { return OwnedTransferBatch }
func (b FundsTransferBatch) OwnedID() string      { return b.BatchID }

// FundsTransferBatchMessage is an append-only batch history entry.
type FundsTransferBatchMessage struct {
	MessageID     string     `json:"messageID"`
	BatchID       string     `json:"batchID"`
	Sequence      int64      `json:"sequence"`
	PreviousState BatchState `json:"previousState"`
	State         BatchState `json:"state"`
	Message       string     `json:"message"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// FundsTransferEventCollation is a write-once snapshot aggregating a batch's events.
type FundsTransferEventCollation struct {
	CollationID     string                `json:"collationID"`
	BatchID         string                `json:"batchID"`
	BatchState      BatchState            `json:"batchState"`
	RequestCount    int                   `json:"requestCount"`
	EventCount      int                   `json:"eventCount"`
	StateCounts     map[TransferState]int `json:"stateCounts"`
	TotalAmount     decimal.Decimal       `json:"totalAmount"`
	CompletedAmount decimal.Decimal       `json:"completedAmount"`
	LastEventAt     *time.Time            `json:"lastEventAt,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}
