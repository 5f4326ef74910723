package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/core/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Setup ---

type WorkflowServiceTestSuite struct {
	suite.Suite
	mockStore      *MockStore
	mockAuthorizer *MockAuthorizer
	service        portssvc.WorkflowSvcFacade
	ctx            context.Context

	instance *domain.WorkflowInstance
	approve  *domain.StatePath
}

func (suite *WorkflowServiceTestSuite) SetupTest() {
	suite.mockStore = new(MockStore)
	suite.mockAuthorizer = new(MockAuthorizer)
	suite.service = services.NewWorkflowService(suite.mockStore, suite.mockAuthorizer, services.WithClock(fixedClock))
	suite.ctx = context.Background()

	suite.instance = &domain.WorkflowInstance{
		InstanceID:     "inst1",
		GraphID:        "g1",
		SegregationID:  "seg1",
		CurrentStateID: "draft",
		Version:        3,
	}
	suite.approve = &domain.StatePath{
		PathID:        "p1",
		GraphID:       "g1",
		Codename:      "approve",
		SourceStateID: "draft",
		TargetStateID: "approved",
	}
}

func TestWorkflowServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowServiceTestSuite))
}

func (suite *WorkflowServiceTestSuite) expectLookups() {
	suite.mockStore.On("FindInstanceByID", mock.Anything, "inst1").Return(suite.instance, nil).Once()
	suite.mockStore.On("FindStatePathByCodename", mock.Anything, "approve").Return(suite.approve, nil).Once()
}

// --- Test Cases ---

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_Success() {
	suite.expectLookups()
	suite.mockAuthorizer.On("Authorize", mock.Anything, []string{"u1", "u2"}, suite.instance.Resource(), domain.PermissionTransition).
		Return(nil).Once()
	suite.mockStore.On("CompareAndSetInstanceState", mock.Anything, "inst1", int64(3), "approved", "u1", fixedNow).
		Return(nil).Once()
	suite.mockStore.On("SaveStateTransition", mock.Anything, mock.MatchedBy(func(t domain.StateTransition) bool {
		return t.FromStateID == "draft" && t.ToStateID == "approved" && t.Sequence == 4 && t.PathCodename == "approve"
	})).Return(nil).Once()
	suite.mockStore.On("SaveOwnershipEdges", mock.Anything, mock.MatchedBy(func(edges []domain.OwnershipEdge) bool {
		return len(edges) == 2 && edges[0].Kind == domain.OwnedStateTransition
	})).Return(nil).Once()

	var hooked domain.WorkflowInstance
	suite.service.RegisterHook("approve", func(_ context.Context, inst domain.WorkflowInstance, _ domain.StateTransition) error {
		hooked = inst
		return nil
	})

	transition, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "approve", []string{"u2", "u1", "u2"})

	suite.Require().NoError(err)
	suite.Equal(int64(4), transition.Sequence)
	suite.Equal([]string{"u1", "u2"}, transition.OwnerIDs())
	suite.Equal(fixedNow, transition.ExecutedAt)
	suite.Equal("approved", hooked.CurrentStateID, "hooks see the moved instance")
	suite.Equal(int64(4), hooked.Version)
	suite.mockStore.AssertExpectations(suite.T())
	suite.mockAuthorizer.AssertExpectations(suite.T())
}

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_WrongSourceState() {
	suite.instance.CurrentStateID = "approved"
	suite.expectLookups()

	_, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "approve", []string{"u1"})

	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
	suite.mockAuthorizer.AssertNotCalled(suite.T(), "Authorize", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockStore.AssertNotCalled(suite.T(), "CompareAndSetInstanceState", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_UnknownPath() {
	suite.mockStore.On("FindInstanceByID", mock.Anything, "inst1").Return(suite.instance, nil).Once()
	suite.mockStore.On("FindStatePathByCodename", mock.Anything, "publish").
		Return(nil, apperrors.NewNotFoundError("state path not found")).Once()

	_, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "publish", []string{"u1"})

	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_PathOfAnotherGraph() {
	suite.approve.GraphID = "g2"
	suite.expectLookups()

	_, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "approve", []string{"u1"})

	suite.ErrorIs(err, apperrors.ErrInvalidTransition)
}

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_NotAuthorized() {
	suite.expectLookups()
	suite.mockAuthorizer.On("Authorize", mock.Anything, []string{"u1"}, suite.instance.Resource(), domain.PermissionTransition).
		Return(apperrors.NewAuthorizationError("user u1 lacks TRANSITION permission on inst1")).Once()

	_, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "approve", []string{"u1"})

	suite.ErrorIs(err, apperrors.ErrAuthorization)
	suite.mockStore.AssertNotCalled(suite.T(), "SaveStateTransition", mock.Anything, mock.Anything)
}

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_LostRace() {
	suite.expectLookups()
	suite.mockAuthorizer.On("Authorize", mock.Anything, []string{"u1"}, mock.Anything, domain.PermissionTransition).Return(nil).Once()
	suite.mockStore.On("CompareAndSetInstanceState", mock.Anything, "inst1", int64(3), "approved", "u1", fixedNow).
		Return(apperrors.NewConflictError("instance inst1 was modified concurrently")).Once()

	_, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "approve", []string{"u1"})

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.True(apperrors.IsRetryable(err))
	suite.mockStore.AssertNotCalled(suite.T(), "SaveStateTransition", mock.Anything, mock.Anything)
}

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_HookFailurePropagates() {
	suite.expectLookups()
	suite.mockAuthorizer.On("Authorize", mock.Anything, []string{"u1"}, mock.Anything, domain.PermissionTransition).Return(nil).Once()
	suite.mockStore.On("CompareAndSetInstanceState", mock.Anything, "inst1", int64(3), "approved", "u1", fixedNow).Return(nil).Once()
	suite.mockStore.On("SaveStateTransition", mock.Anything, mock.AnythingOfType("domain.StateTransition")).Return(nil).Once()
	suite.mockStore.On("SaveOwnershipEdges", mock.Anything, mock.Anything).Return(nil).Once()

	boom := errors.New("ledger unavailable")
	suite.service.RegisterHook("approve", func(context.Context, domain.WorkflowInstance, domain.StateTransition) error {
		return boom
	})

	transition, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "approve", []string{"u1"})

	suite.Nil(transition)
	suite.ErrorIs(err, boom)
}

func (suite *WorkflowServiceTestSuite) TestExecuteTransition_RequiresActingUser() {
	_, err := suite.service.ExecuteTransition(suite.ctx, "inst1", "approve", nil)

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockStore.AssertNotCalled(suite.T(), "FindInstanceByID", mock.Anything, mock.Anything)
}
