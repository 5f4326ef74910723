package services_test

import (
	"testing"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendEvent_FoldsToFinalState(t *testing.T) {
	tests := []struct {
		name   string
		events []domain.TransferEventType
		want   domain.TransferState
	}{
		{
			name:   "settled",
			events: []domain.TransferEventType{domain.EventSubmitted, domain.EventAccepted, domain.EventSettled},
			want:   domain.TransferCompleted,
		},
		{
			name:   "rejected",
			events: []domain.TransferEventType{domain.EventSubmitted, domain.EventRejected},
			want:   domain.TransferFailed,
		},
		{
			name:   "returned after settlement",
			events: []domain.TransferEventType{domain.EventSubmitted, domain.EventAccepted, domain.EventSettled, domain.EventReturned},
			want:   domain.TransferReturned,
		},
		{
			name:   "cancelled before submission",
			events: []domain.TransferEventType{domain.EventCancelled},
			want:   domain.TransferCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			alice := f.user("alice")
			requestID := f.request("guid-"+tt.name, "100", alice)

			for i, e := range tt.events {
				f.appendEvents(requestID, e)

				// the state column equals the fold of the log after every append
				report, err := f.svc.FundsTransfer.VerifyRequestState(f.ctx, requestID)
				require.NoError(t, err)
				assert.True(t, report.Consistent(), "after event %d: %+v", i+1, report)
				assert.Equal(t, int64(i+1), report.EventCount)
			}

			req, err := f.svc.FundsTransfer.GetRequest(f.ctx, requestID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.State)

			events, err := f.svc.FundsTransfer.ListRequestEvents(f.ctx, requestID)
			require.NoError(t, err)
			require.Len(t, events, len(tt.events))
			for i, e := range events {
				assert.Equal(t, int64(i+1), e.Sequence)
			}
			assert.Equal(t, tt.want, events[len(events)-1].ResultState)
		})
	}
}

func TestAppendEvent_RejectsInvalidEvent(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	requestID := f.request("guid-1", "10", alice)

	_, err := f.svc.FundsTransfer.AppendEvent(f.ctx, dto.AppendEventRequest{RequestID: requestID, EventType: domain.EventSettled})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	f.appendEvents(requestID, domain.EventSubmitted, domain.EventRejected)
	_, err = f.svc.FundsTransfer.AppendEvent(f.ctx, dto.AppendEventRequest{RequestID: requestID, EventType: domain.EventAccepted})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "failed requests accept no further events")

	events, err := f.svc.FundsTransfer.ListRequestEvents(f.ctx, requestID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCreateRequest_Validation(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	f.request("guid-1", "10", alice)

	_, err := f.svc.FundsTransfer.CreateRequest(f.ctx, dto.CreateTransferRequest{
		GUID: "guid-1", Direction: domain.TransferOutbound, Amount: amount("10"), CurrencyCode: "USD", UserID: alice,
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)

	_, err = f.svc.FundsTransfer.CreateRequest(f.ctx, dto.CreateTransferRequest{
		GUID: "guid-2", Direction: domain.TransferOutbound, Amount: amount("-1"), CurrencyCode: "USD", UserID: alice,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.svc.FundsTransfer.CreateRequest(f.ctx, dto.CreateTransferRequest{
		GUID: "guid-3", Direction: "SIDEWAYS", Amount: amount("1"), CurrencyCode: "USD", UserID: alice,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestBatch_FoldsMemberStatesAndRecordsMessages(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	paid := f.request("guid-paid", "100", alice)
	bounced := f.request("guid-bounced", "50", alice)

	batch, err := f.svc.FundsTransfer.CreateBatch(f.ctx, dto.CreateBatchRequest{
		GUID:         "batch-1",
		RequestIDs:   []string{paid, bounced},
		OwnerUserIDs: []string{alice},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchPending, batch.State)

	f.appendEvents(paid, domain.EventSubmitted)
	b, err := f.svc.FundsTransfer.GetBatch(f.ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchInProgress, b.State)

	f.appendEvents(paid, domain.EventAccepted, domain.EventSettled)
	b, err = f.svc.FundsTransfer.GetBatch(f.ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchInProgress, b.State, "a batch completes only once every member is terminal")

	f.appendEvents(bounced, domain.EventSubmitted, domain.EventRejected)
	b, err = f.svc.FundsTransfer.GetBatch(f.ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompletedWithErrors, b.State)

	messages, err := f.svc.FundsTransfer.ListBatchMessages(f.ctx, batch.BatchID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, int64(1), messages[0].Sequence)
	assert.Equal(t, domain.BatchPending, messages[0].PreviousState)
	assert.Equal(t, domain.BatchInProgress, messages[0].State)
	assert.Equal(t, domain.BatchInProgress, messages[1].PreviousState)
	assert.Equal(t, domain.BatchCompletedWithErrors, messages[1].State)

	collation, err := f.svc.FundsTransfer.CollateBatchEvents(f.ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompletedWithErrors, collation.BatchState)
	assert.Equal(t, 2, collation.RequestCount)
	assert.Equal(t, 5, collation.EventCount)
	assert.Equal(t, map[domain.TransferState]int{domain.TransferCompleted: 1, domain.TransferFailed: 1}, collation.StateCounts)
	requireDecimal(t, "150", collation.TotalAmount)
	requireDecimal(t, "100", collation.CompletedAmount)
	require.NotNil(t, collation.LastEventAt)

	refreshed, err := f.svc.FundsTransfer.RefreshBatchState(f.ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchCompletedWithErrors, refreshed.State)
	messages, err = f.svc.FundsTransfer.ListBatchMessages(f.ctx, batch.BatchID)
	require.NoError(t, err)
	assert.Len(t, messages, 2, "an unchanged fold appends no message")
}

func TestCreateBatch_MemberRules(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	r1 := f.request("guid-1", "10", alice)

	_, err := f.svc.FundsTransfer.CreateBatch(f.ctx, dto.CreateBatchRequest{GUID: "b1", RequestIDs: []string{r1}})
	require.NoError(t, err)

	_, err = f.svc.FundsTransfer.CreateBatch(f.ctx, dto.CreateBatchRequest{GUID: "b2", RequestIDs: []string{r1}})
	assert.ErrorIs(t, err, apperrors.ErrValidation, "a request belongs to at most one batch")

	_, err = f.svc.FundsTransfer.CreateBatch(f.ctx, dto.CreateBatchRequest{GUID: "b3", RequestIDs: []string{"missing"}})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// the rejected batches were rolled back, so their GUIDs are free
	_, err = f.svc.FundsTransfer.CreateBatch(f.ctx, dto.CreateBatchRequest{GUID: "b2"})
	require.NoError(t, err)

	_, err = f.svc.FundsTransfer.CreateBatch(f.ctx, dto.CreateBatchRequest{GUID: "b1"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)
}

func TestListRequestsByState_Pages(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice")
	for _, guid := range []string{"g1", "g2", "g3"} {
		f.request(guid, "1", alice)
	}
	submitted := f.request("g4", "1", alice)
	f.appendEvents(submitted, domain.EventSubmitted)

	first, err := f.svc.FundsTransfer.ListRequestsByState(f.ctx, domain.TransferPending, 2, nil)
	require.NoError(t, err)
	require.Len(t, first.Requests, 2)
	require.NotNil(t, first.NextToken)

	second, err := f.svc.FundsTransfer.ListRequestsByState(f.ctx, domain.TransferPending, 2, first.NextToken)
	require.NoError(t, err)
	require.Len(t, second.Requests, 1)
	assert.Nil(t, second.NextToken)

	for _, r := range append(first.Requests, second.Requests...) {
		assert.NotEqual(t, submitted, r.RequestID)
		assert.Equal(t, domain.TransferPending, r.State)
	}

	_, err = f.svc.FundsTransfer.ListRequestsByState(f.ctx, "", 2, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
