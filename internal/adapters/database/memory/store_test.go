package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	return s
}

func TestRunInTransaction_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		require.NoError(t, tx.SaveUser(ctx, domain.User{UserID: "u1", Email: "a@x", Username: "a"}))
		_, err := tx.FindUserByID(ctx, "u1")
		require.NoError(t, err, "writes are visible inside the transaction")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FindUserByID(ctx, "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// the email claim was rolled back too
	require.NoError(t, s.SaveUser(ctx, domain.User{UserID: "u2", Email: "a@x", Username: "a"}))
}

func TestRunInTransaction_CancelledContextRollsBack(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.RunInTransaction(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		require.NoError(t, tx.SaveUser(ctx, domain.User{UserID: "u1", Email: "a@x", Username: "a"}))
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.FindUserByID(context.Background(), "u1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunInTransaction_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.RunInTransaction(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		return tx.RunInTransaction(ctx, func(ctx context.Context, inner portsrepo.Store) error {
			assert.Same(t, tx, inner)
			return inner.SaveUser(ctx, domain.User{UserID: "u1", Email: "a@x", Username: "a"})
		})
	})
	require.NoError(t, err)
	_, err = s.FindUserByID(ctx, "u1")
	assert.NoError(t, err)
}

func TestUniqueKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveUser(ctx, domain.User{UserID: "u1", Email: "a@x", Username: "a"}))
	err := s.SaveUser(ctx, domain.User{UserID: "u2", Email: "a@x", Username: "b"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicate)

	require.NoError(t, s.SaveRequest(ctx, domain.FundsTransferRequest{RequestID: "r1", GUID: "g"}))
	err = s.SaveRequest(ctx, domain.FundsTransferRequest{RequestID: "r2", GUID: "g"})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)

	require.NoError(t, s.SaveEvent(ctx, domain.FundsTransferEvent{EventID: "e1", RequestID: "r1", Sequence: 1}))
	err = s.SaveEvent(ctx, domain.FundsTransferEvent{EventID: "e2", RequestID: "r1", Sequence: 1})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func seedLedger(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, domain.User{UserID: "u1", Email: "a@x", Username: "a"}))
	for _, id := range []string{"A", "B"} {
		require.NoError(t, s.SaveAccount(ctx, domain.Account{AccountID: id, CurrencyCode: "USD"}))
	}
}

func journal(id, txn string) domain.Journal {
	return domain.Journal{
		JournalID: id,
		Type:      domain.JournalGeneral,
		Postings: []domain.Posting{
			{PostingID: id + "-p1", JournalID: id, AccountID: "A", Amount: decimal.NewFromInt(10), CurrencyCode: "USD"},
			{PostingID: id + "-p2", JournalID: id, AccountID: "B", Amount: decimal.NewFromInt(-10), CurrencyCode: "USD"},
		},
		Remittances: []domain.Remittance{
			{RemittanceID: id + "-r", JournalID: id, TransactionID: txn, Discriminator: "cs"},
		},
	}
}

func TestSaveJournal_RemittanceKeyCollision(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedLedger(t, s)

	require.NoError(t, s.SaveJournal(ctx, journal("J1", "T1")))
	err := s.SaveJournal(ctx, journal("J2", "T1"))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRemittance)

	_, err = s.FindJournalByID(ctx, "J2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFindJournalByID_PopulatesOwners(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedLedger(t, s)

	j := journal("J1", "T1")
	j.Ownership = domain.Ownership{UserIDs: []string{"u1"}}
	require.NoError(t, s.SaveJournal(ctx, j))
	require.NoError(t, s.SaveOwnershipEdges(ctx, domain.EdgesOf(j)))

	got, err := s.FindJournalByID(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, got.OwnerIDs())
	assert.Len(t, got.Postings, 2)

	owned, err := s.ListOwnedEntityIDs(ctx, domain.OwnedJournal, []string{"u1", "nobody"})
	require.NoError(t, err)
	assert.Equal(t, []string{"J1"}, owned)
}

func TestListAccountsModifiedSince_Pages(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("acc-%d", i)
		require.NoError(t, s.SaveAccount(ctx, domain.Account{AccountID: id, CurrencyCode: "USD", LastModificationDate: t0}))
		require.NoError(t, s.ApplyBalanceChanges(ctx, map[string]decimal.Decimal{id: decimal.NewFromInt(1)}, "u", t0.Add(time.Duration(i%2)*time.Hour)))
	}

	var seen []string
	var token *string
	for {
		page, next, err := s.ListAccountsModifiedSince(ctx, t0.Add(-time.Minute), 2, token)
		require.NoError(t, err)
		for _, a := range page {
			seen = append(seen, a.AccountID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, []string{"acc-0", "acc-2", "acc-4", "acc-1", "acc-3"}, seen)
}

func TestDeleteInvoice_CascadesLinesAndFreesKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	inv := domain.Invoice{
		InvoiceID: "I1",
		Number:    "INV-1",
		Lines: []domain.InvoiceLine{{
			LineID:        "L1",
			InvoiceID:     "I1",
			Position:      1,
			TaxComponents: []domain.InvoiceLineTaxComponent{{TaxComponentID: "T1", LineID: "L1"}},
		}},
	}
	require.NoError(t, s.SaveInvoice(ctx, inv))
	require.NoError(t, s.DeleteInvoice(ctx, "I1"))

	_, err := s.FindInvoiceByID(ctx, "I1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// number and line positions are free again
	require.NoError(t, s.SaveInvoice(ctx, inv))
}

func TestDeleteInvoice_BlockedByEvents(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveInvoice(ctx, domain.Invoice{InvoiceID: "I1", Number: "INV-1"}))
	require.NoError(t, s.SaveInvoiceEvent(ctx, domain.InvoiceEvent{EventID: "E1", InvoiceID: "I1", Sequence: 1, State: domain.InvoiceIssued}))

	err := s.DeleteInvoice(ctx, "I1")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCompareAndSetInstanceState(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveGraph(ctx, domain.WorkflowGraph{GraphID: "g", Codename: "g"}))
	require.NoError(t, s.SaveStateGroup(ctx, domain.StateGroup{GroupID: "grp", GraphID: "g", Codename: "main"}))
	require.NoError(t, s.SaveState(ctx, domain.State{StateID: "s1", GroupID: "grp", GraphID: "g", Codename: "draft"}))
	require.NoError(t, s.SaveState(ctx, domain.State{StateID: "s2", GroupID: "grp", GraphID: "g", Codename: "done"}))
	require.NoError(t, s.SaveSegregation(ctx, domain.Segregation{SegregationID: "seg", Codename: "seg"}))
	require.NoError(t, s.SaveInstance(ctx, domain.WorkflowInstance{InstanceID: "i", GraphID: "g", SegregationID: "seg", CurrentStateID: "s1"}))

	now := time.Now()
	require.NoError(t, s.CompareAndSetInstanceState(ctx, "i", 0, "s2", "u", now))
	err := s.CompareAndSetInstanceState(ctx, "i", 0, "s1", "u", now)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	inst, err := s.FindInstanceByID(ctx, "i")
	require.NoError(t, err)
	assert.Equal(t, "s2", inst.CurrentStateID)
	assert.Equal(t, int64(1), inst.Version)
}

func TestJoinRows_RejectRepeatedPairs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveUser(ctx, domain.User{UserID: "u1", Email: "a@x", Username: "a"}))
	require.NoError(t, s.SaveRole(ctx, domain.Role{RoleID: "admin", Name: "admin"}))
	require.NoError(t, s.SaveInvoice(ctx, domain.Invoice{InvoiceID: "I1", Number: "INV-1"}))
	require.NoError(t, s.SaveRequest(ctx, domain.FundsTransferRequest{RequestID: "r1", GUID: "g"}))

	ace := domain.AccessControlEntry{EntityID: "acc-1", ManagerUserID: "u1", Permission: domain.PermissionPost}
	settlement := domain.InvoiceSettlement{InvoiceID: "I1", RequestID: "r1"}

	tests := []struct {
		name string
		save func() error
	}{
		{"user role", func() error { return s.SaveUserRole(ctx, domain.UserRole{UserID: "u1", RoleID: "admin"}) }},
		{"access control entry", func() error { return s.SaveAccessControlEntry(ctx, ace) }},
		{"settlement", func() error { return s.SaveSettlement(ctx, settlement) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.save())
			assert.ErrorIs(t, tt.save(), apperrors.ErrDuplicate)
		})
	}

	roles, err := s.ListRolesByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, roles, 1)

	aces, err := s.ListAccessControlEntries(ctx, "acc-1", []string{"u1"})
	require.NoError(t, err)
	assert.Len(t, aces, 1)

	settlements, err := s.ListSettlements(ctx, "I1")
	require.NoError(t, err)
	assert.Len(t, settlements, 1)
}

func TestJoinRows_RollbackFreesPair(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveUser(ctx, domain.User{UserID: "u1", Email: "a@x", Username: "a"}))
	require.NoError(t, s.SaveRole(ctx, domain.Role{RoleID: "admin", Name: "admin"}))

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		require.NoError(t, tx.SaveUserRole(ctx, domain.UserRole{UserID: "u1", RoleID: "admin"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, s.SaveUserRole(ctx, domain.UserRole{UserID: "u1", RoleID: "admin"}))
}
