package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/core/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Setup ---

type LedgerServiceTestSuite struct {
	suite.Suite
	mockStore      *MockStore
	mockAuthorizer *MockAuthorizer
	service        portssvc.LedgerSvcFacade
	ctx            context.Context
	accounts       map[string]domain.Account
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockStore = new(MockStore)
	suite.mockAuthorizer = new(MockAuthorizer)
	suite.service = services.NewLedgerService(suite.mockStore, suite.mockAuthorizer, services.WithClock(fixedClock))
	suite.ctx = context.Background()
	suite.accounts = map[string]domain.Account{
		"cash":    {AccountID: "cash", CurrencyCode: "USD", Ownership: domain.Ownership{UserIDs: []string{"u1"}}},
		"revenue": {AccountID: "revenue", CurrencyCode: "USD", Ownership: domain.Ownership{UserIDs: []string{"u1"}}},
		"shared":  {AccountID: "shared", CurrencyCode: "USD", Ownership: domain.Ownership{UserIDs: []string{"u9"}}},
	}
}

func TestLedgerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func journalRequest(postings ...dto.PostingRequest) dto.CommitJournalRequest {
	return dto.CommitJournalRequest{
		Type:         domain.JournalGeneral,
		Description:  "test",
		Postings:     postings,
		OwnerUserIDs: []string{"u1"},
		UserID:       "u1",
	}
}

func posting(accountID, amount string) dto.PostingRequest {
	return dto.PostingRequest{AccountID: accountID, Amount: decimal.RequireFromString(amount)}
}

func (suite *LedgerServiceTestSuite) lockAccounts(ids ...string) {
	found := make(map[string]domain.Account, len(ids))
	for _, id := range ids {
		if a, ok := suite.accounts[id]; ok {
			found[id] = a
		}
	}
	suite.mockStore.On("FindAccountsByIDsForUpdate", mock.Anything, ids).Return(found, nil).Once()
}

// --- Test Cases ---

func (suite *LedgerServiceTestSuite) TestCommitJournal_Success() {
	suite.lockAccounts("cash", "revenue")
	suite.mockStore.On("SaveJournal", mock.Anything, mock.MatchedBy(func(j domain.Journal) bool {
		return len(j.Postings) == 2 && j.Postings[0].CurrencyCode == "USD" && j.CommittedAt.Equal(fixedNow)
	})).Return(nil).Once()
	suite.mockStore.On("SaveOwnershipEdges", mock.Anything, mock.MatchedBy(func(edges []domain.OwnershipEdge) bool {
		return len(edges) == 3 // journal plus two postings
	})).Return(nil).Once()
	suite.mockStore.On("ApplyBalanceChanges", mock.Anything, mock.MatchedBy(func(changes map[string]decimal.Decimal) bool {
		return changes["cash"].Equal(decimal.NewFromInt(100)) && changes["revenue"].Equal(decimal.NewFromInt(-100))
	}), "u1", fixedNow).Return(nil).Once()

	journal, err := suite.service.CommitJournal(suite.ctx, journalRequest(posting("cash", "100"), posting("revenue", "-100")))

	suite.Require().NoError(err)
	suite.Equal(domain.JournalGeneral, journal.Type)
	suite.mockStore.AssertExpectations(suite.T())
	suite.mockAuthorizer.AssertNotCalled(suite.T(), "AuthorizeAny", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_Unbalanced() {
	suite.lockAccounts("cash", "revenue")

	_, err := suite.service.CommitJournal(suite.ctx, journalRequest(posting("cash", "100"), posting("revenue", "-50")))

	suite.ErrorIs(err, apperrors.ErrUnbalancedJournal)
	suite.Contains(err.Error(), "USD 50")
	suite.mockStore.AssertNotCalled(suite.T(), "SaveJournal", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_ZeroAmount() {
	_, err := suite.service.CommitJournal(suite.ctx, journalRequest(posting("cash", "0"), posting("revenue", "0")))

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockStore.AssertNotCalled(suite.T(), "FindAccountsByIDsForUpdate", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_MissingAccount() {
	suite.lockAccounts("cash", "ghost")

	_, err := suite.service.CommitJournal(suite.ctx, journalRequest(posting("cash", "10"), posting("ghost", "-10")))

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "account ghost does not exist")
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_ForeignAccountNeedsPostGrant() {
	suite.lockAccounts("cash", "shared")
	suite.mockAuthorizer.On("AuthorizeAny", mock.Anything, []string{"u1"}, domain.Resource{EntityID: "shared"}, domain.PermissionPost).
		Return(apperrors.NewAuthorizationError("none of the acting users holds POST permission on shared")).Once()

	_, err := suite.service.CommitJournal(suite.ctx, journalRequest(posting("cash", "10"), posting("shared", "-10")))

	suite.ErrorIs(err, apperrors.ErrAuthorization)
	suite.Contains(err.Error(), "account shared is not visible")
	suite.mockStore.AssertNotCalled(suite.T(), "SaveJournal", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_ForeignAccountWithPostGrant() {
	suite.lockAccounts("cash", "shared")
	suite.mockAuthorizer.On("AuthorizeAny", mock.Anything, []string{"u1"}, domain.Resource{EntityID: "shared"}, domain.PermissionPost).
		Return(nil).Once()
	suite.mockStore.On("SaveJournal", mock.Anything, mock.AnythingOfType("domain.Journal")).Return(nil).Once()
	suite.mockStore.On("SaveOwnershipEdges", mock.Anything, mock.Anything).Return(nil).Once()
	suite.mockStore.On("ApplyBalanceChanges", mock.Anything, mock.Anything, "u1", fixedNow).Return(nil).Once()

	_, err := suite.service.CommitJournal(suite.ctx, journalRequest(posting("cash", "10"), posting("shared", "-10")))

	suite.Require().NoError(err)
	suite.mockAuthorizer.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_RemittanceKeyRequired() {
	suite.lockAccounts("cash", "revenue")
	req := journalRequest(posting("cash", "10"), posting("revenue", "-10"))
	req.Remittances = []dto.RemittanceRequest{{TransactionID: "tx-1", Amount: decimal.NewFromInt(10)}}

	_, err := suite.service.CommitJournal(suite.ctx, req)

	suite.ErrorIs(err, apperrors.ErrValidation, "the credit_system scheme needs a credit system on every remittance")
	suite.Contains(err.Error(), "remittances[0]")
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_RemittanceAmountMustBePositive() {
	for _, amt := range []int64{0, -5} {
		req := journalRequest(posting("cash", "10"), posting("revenue", "-10"))
		req.Remittances = []dto.RemittanceRequest{{TransactionID: "tx-1", CreditSystemID: "cs1", Amount: decimal.NewFromInt(amt)}}

		_, err := suite.service.CommitJournal(suite.ctx, req)

		suite.ErrorIs(err, apperrors.ErrValidation)
		suite.Contains(err.Error(), "remittances[0].amount")
	}
	suite.mockStore.AssertNotCalled(suite.T(), "FindAccountsByIDsForUpdate", mock.Anything, mock.Anything)
}

func (suite *LedgerServiceTestSuite) TestCommitJournal_DuplicateRemittanceInOneJournal() {
	suite.lockAccounts("cash", "revenue")
	req := journalRequest(posting("cash", "10"), posting("revenue", "-10"))
	req.Remittances = []dto.RemittanceRequest{
		{TransactionID: "tx-1", CreditSystemID: "cs1", Amount: decimal.NewFromInt(5)},
		{TransactionID: "tx-1", CreditSystemID: "cs1", Amount: decimal.NewFromInt(5)},
	}

	_, err := suite.service.CommitJournal(suite.ctx, req)

	suite.ErrorIs(err, apperrors.ErrDuplicateRemittance)
}
