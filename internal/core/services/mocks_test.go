package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/SscSPs/ledgerflow/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the repositories.Store interface. Only the
// methods the service suites exercise are mocked; the embedded nil Store
// makes any other call panic.
type MockStore struct {
	mock.Mock
	portsrepo.Store
}

// RunInTransaction hands the mock itself to fn as the transaction-scoped store.
func (m *MockStore) RunInTransaction(ctx context.Context, fn portsrepo.TxFunc) error {
	return fn(ctx, m)
}

// --- identity ---

func (m *MockStore) SaveUser(ctx context.Context, user domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStore) FindDisposition(ctx context.Context, userID, segregationID string) (*domain.Disposition, error) {
	args := m.Called(ctx, userID, segregationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Disposition), args.Error(1)
}

func (m *MockStore) SaveDisposition(ctx context.Context, disposition domain.Disposition) error {
	args := m.Called(ctx, disposition)
	return args.Error(0)
}

func (m *MockStore) UpdateDispositionPermissions(ctx context.Context, dispositionID string, permissions []domain.Permission) error {
	args := m.Called(ctx, dispositionID, permissions)
	return args.Error(0)
}

func (m *MockStore) ListDispositions(ctx context.Context, userIDs []string, segregationID string) ([]domain.Disposition, error) {
	args := m.Called(ctx, userIDs, segregationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Disposition), args.Error(1)
}

func (m *MockStore) ListAccessControlEntries(ctx context.Context, entityID string, userIDs []string) ([]domain.AccessControlEntry, error) {
	args := m.Called(ctx, entityID, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccessControlEntry), args.Error(1)
}

// --- workflow ---

func (m *MockStore) FindInstanceByID(ctx context.Context, instanceID string) (*domain.WorkflowInstance, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowInstance), args.Error(1)
}

func (m *MockStore) FindStatePathByCodename(ctx context.Context, codename string) (*domain.StatePath, error) {
	args := m.Called(ctx, codename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatePath), args.Error(1)
}

func (m *MockStore) CompareAndSetInstanceState(ctx context.Context, instanceID string, expectedVersion int64, stateID, userID string, at time.Time) error {
	args := m.Called(ctx, instanceID, expectedVersion, stateID, userID, at)
	return args.Error(0)
}

func (m *MockStore) SaveStateTransition(ctx context.Context, transition domain.StateTransition) error {
	args := m.Called(ctx, transition)
	return args.Error(0)
}

func (m *MockStore) SaveOwnershipEdges(ctx context.Context, edges []domain.OwnershipEdge) error {
	args := m.Called(ctx, edges)
	return args.Error(0)
}

// --- ledger ---

func (m *MockStore) FindAccountsByIDsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockStore) SaveJournal(ctx context.Context, journal domain.Journal) error {
	args := m.Called(ctx, journal)
	return args.Error(0)
}

func (m *MockStore) ApplyBalanceChanges(ctx context.Context, changes map[string]decimal.Decimal, userID string, at time.Time) error {
	args := m.Called(ctx, changes, userID, at)
	return args.Error(0)
}

// MockAuthorizer is a mock type for the services.AuthorizerSvc interface
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) Authorize(ctx context.Context, userIDs []string, resource domain.Resource, permission domain.Permission) error {
	args := m.Called(ctx, userIDs, resource, permission)
	return args.Error(0)
}

func (m *MockAuthorizer) AuthorizeAny(ctx context.Context, userIDs []string, resource domain.Resource, permission domain.Permission) error {
	args := m.Called(ctx, userIDs, resource, permission)
	return args.Error(0)
}

// MockLedgerWriter is a mock type for the services.LedgerWriterSvc interface
type MockLedgerWriter struct {
	mock.Mock
}

func (m *MockLedgerWriter) CommitJournal(ctx context.Context, req dto.CommitJournalRequest) (*domain.Journal, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

func (m *MockLedgerWriter) ReverseJournal(ctx context.Context, req dto.ReverseJournalRequest) (*domain.Journal, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}
