package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/ledgerflow/internal/adapters/database/memory"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/core/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// tickingClock advances one second on every reading so event times are strictly ordered.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// fixture wires the full service container over an in-memory store.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	svc   *portssvc.ServiceContainer
	clock *tickingClock
}

func newFixture(t *testing.T, opts ...services.ServiceOption) *fixture {
	t.Helper()
	store, err := memory.New()
	require.NoError(t, err)
	clock := &tickingClock{now: fixedNow}
	opts = append([]services.ServiceOption{services.WithClock(clock.Now)}, opts...)
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		svc:   services.NewServiceContainer(store, opts...),
		clock: clock,
	}
}

func (f *fixture) user(name string) string {
	f.t.Helper()
	u, err := f.svc.Identity.CreateUser(f.ctx, dto.CreateUserRequest{Email: name + "@example.com", Username: name})
	require.NoError(f.t, err)
	return u.UserID
}

func (f *fixture) segregation(codename string) string {
	f.t.Helper()
	s, err := f.svc.Identity.CreateSegregation(f.ctx, dto.CreateSegregationRequest{Codename: codename})
	require.NoError(f.t, err)
	return s.SegregationID
}

func (f *fixture) creditSystem(codename string) string {
	f.t.Helper()
	cs, err := f.svc.Ledger.CreateCreditSystem(f.ctx, dto.CreateCreditSystemRequest{Codename: codename, Name: codename})
	require.NoError(f.t, err)
	return cs.CreditSystemID
}

func (f *fixture) account(name, currency string, owners ...string) string {
	f.t.Helper()
	a, err := f.svc.Ledger.OpenAccount(f.ctx, dto.OpenAccountRequest{
		Name:         name,
		CurrencyCode: currency,
		OwnerUserIDs: owners,
		UserID:       owners[0],
	})
	require.NoError(f.t, err)
	return a.AccountID
}

func (f *fixture) balance(accountID string) decimal.Decimal {
	f.t.Helper()
	b, err := f.svc.Ledger.GetAccountBalance(f.ctx, accountID)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) request(guid, amount, userID string) string {
	f.t.Helper()
	r, err := f.svc.FundsTransfer.CreateRequest(f.ctx, dto.CreateTransferRequest{
		GUID:         guid,
		Direction:    domain.TransferOutbound,
		Amount:       decimal.RequireFromString(amount),
		CurrencyCode: "USD",
		UserID:       userID,
	})
	require.NoError(f.t, err)
	return r.RequestID
}

func (f *fixture) appendEvents(requestID string, events ...domain.TransferEventType) {
	f.t.Helper()
	for _, e := range events {
		_, err := f.svc.FundsTransfer.AppendEvent(f.ctx, dto.AppendEventRequest{RequestID: requestID, EventType: e})
		require.NoError(f.t, err, "appending %s", e)
	}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requireDecimal compares decimals by value so that 100 and 100.00 are equal.
func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, amount(want).Equal(got), "want %s, got %s", want, got)
}
