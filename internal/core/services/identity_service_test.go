package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/core/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// --- Test Suite Setup ---

type IdentityServiceTestSuite struct {
	suite.Suite
	mockStore *MockStore
	service   portssvc.IdentitySvcFacade
	ctx       context.Context
}

func (suite *IdentityServiceTestSuite) SetupTest() {
	suite.mockStore = new(MockStore)
	suite.service = services.NewIdentityService(suite.mockStore, services.WithClock(fixedClock))
	suite.ctx = context.Background()
}

func TestIdentityServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceTestSuite))
}

// --- Test Cases ---

func (suite *IdentityServiceTestSuite) TestCreateUser_Success() {
	req := dto.CreateUserRequest{Email: "  Alice@Example.COM ", Username: "alice"}

	suite.mockStore.On("SaveUser", suite.ctx, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "alice@example.com" && u.Username == "alice" && u.UserID != "" && u.CreatedAt.Equal(fixedNow)
	})).Return(nil).Once()

	user, err := suite.service.CreateUser(suite.ctx, req)

	suite.Require().NoError(err)
	suite.Require().NotNil(user)
	suite.Equal("alice@example.com", user.Email)
	suite.mockStore.AssertExpectations(suite.T())
}

func (suite *IdentityServiceTestSuite) TestCreateUser_BlankAfterTrimIsRejected() {
	user, err := suite.service.CreateUser(suite.ctx, dto.CreateUserRequest{Email: "bob@example.com", Username: "   "})

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Nil(user)
	suite.mockStore.AssertNotCalled(suite.T(), "SaveUser", mock.Anything, mock.Anything)
}

func (suite *IdentityServiceTestSuite) TestCreateUser_ValidationFailure() {
	user, err := suite.service.CreateUser(suite.ctx, dto.CreateUserRequest{Email: "not-an-email", Username: "al"})

	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockStore.AssertNotCalled(suite.T(), "SaveUser", mock.Anything, mock.Anything)
}

func (suite *IdentityServiceTestSuite) TestCreateUser_Duplicate() {
	suite.mockStore.On("SaveUser", suite.ctx, mock.AnythingOfType("domain.User")).
		Return(apperrors.NewDuplicateError("email already taken")).Once()

	user, err := suite.service.CreateUser(suite.ctx, dto.CreateUserRequest{Email: "bob@example.com", Username: "bob"})

	suite.Nil(user)
	suite.ErrorIs(err, apperrors.ErrDuplicate)
	suite.mockStore.AssertExpectations(suite.T())
}

func (suite *IdentityServiceTestSuite) TestGrantDisposition_CreatesNew() {
	req := dto.GrantDispositionRequest{
		UserID:        "u1",
		SegregationID: "seg1",
		Permissions:   []domain.Permission{domain.PermissionTransition, domain.PermissionRead, domain.PermissionRead},
		GrantedBy:     "admin",
	}
	suite.mockStore.On("FindDisposition", mock.Anything, "u1", "seg1").
		Return(nil, apperrors.NewNotFoundError("disposition not found")).Once()
	suite.mockStore.On("SaveDisposition", mock.Anything, mock.MatchedBy(func(d domain.Disposition) bool {
		return d.UserID == "u1" && d.GrantedBy == "admin" && len(d.Permissions) == 2
	})).Return(nil).Once()

	d, err := suite.service.GrantDisposition(suite.ctx, req)

	suite.Require().NoError(err)
	suite.Equal([]domain.Permission{domain.PermissionRead, domain.PermissionTransition}, d.Permissions)
	suite.mockStore.AssertExpectations(suite.T())
}

func (suite *IdentityServiceTestSuite) TestGrantDisposition_MergesExisting() {
	existing := &domain.Disposition{
		DispositionID: "d1",
		UserID:        "u1",
		SegregationID: "seg1",
		Permissions:   []domain.Permission{domain.PermissionRead},
	}
	merged := []domain.Permission{domain.PermissionPost, domain.PermissionRead}

	suite.mockStore.On("FindDisposition", mock.Anything, "u1", "seg1").Return(existing, nil).Once()
	suite.mockStore.On("UpdateDispositionPermissions", mock.Anything, "d1", merged).Return(nil).Once()

	d, err := suite.service.GrantDisposition(suite.ctx, dto.GrantDispositionRequest{
		UserID:        "u1",
		SegregationID: "seg1",
		Permissions:   []domain.Permission{domain.PermissionPost},
		GrantedBy:     "admin",
	})

	suite.Require().NoError(err)
	suite.Equal(merged, d.Permissions)
	suite.mockStore.AssertExpectations(suite.T())
	suite.mockStore.AssertNotCalled(suite.T(), "SaveDisposition", mock.Anything, mock.Anything)
}

func (suite *IdentityServiceTestSuite) TestGrantDisposition_StoreFailure() {
	boom := errors.New("connection reset")
	suite.mockStore.On("FindDisposition", mock.Anything, "u1", "seg1").Return(nil, boom).Once()

	_, err := suite.service.GrantDisposition(suite.ctx, dto.GrantDispositionRequest{
		UserID:        "u1",
		SegregationID: "seg1",
		Permissions:   []domain.Permission{domain.PermissionRead},
		GrantedBy:     "admin",
	})

	suite.ErrorIs(err, boom)
}

func (suite *IdentityServiceTestSuite) TestAuthorize() {
	instance := domain.Resource{EntityID: "inst1", SegregationID: "seg1"}

	tests := []struct {
		name         string
		users        []string
		resource     domain.Resource
		permission   domain.Permission
		entries      []domain.AccessControlEntry
		dispositions []domain.Disposition
		wantErr      error
	}{
		{
			name:       "granted through ACE",
			users:      []string{"u1"},
			resource:   instance,
			permission: domain.PermissionTransition,
			entries:    []domain.AccessControlEntry{{EntityID: "inst1", ManagerUserID: "u1", Permission: domain.PermissionTransition}},
		},
		{
			name:         "granted through disposition",
			users:        []string{"u1"},
			resource:     instance,
			permission:   domain.PermissionTransition,
			dispositions: []domain.Disposition{{UserID: "u1", SegregationID: "seg1", Permissions: []domain.Permission{domain.PermissionTransition}}},
		},
		{
			name:         "manage implies transition",
			users:        []string{"u1"},
			resource:     instance,
			permission:   domain.PermissionTransition,
			dispositions: []domain.Disposition{{UserID: "u1", SegregationID: "seg1", Permissions: []domain.Permission{domain.PermissionManage}}},
		},
		{
			name:         "every acting user must hold the permission",
			users:        []string{"u2", "u1"},
			resource:     instance,
			permission:   domain.PermissionTransition,
			entries:      []domain.AccessControlEntry{{EntityID: "inst1", ManagerUserID: "u1", Permission: domain.PermissionTransition}},
			dispositions: []domain.Disposition{{UserID: "u2", SegregationID: "seg1", Permissions: []domain.Permission{domain.PermissionRead}}},
			wantErr:      apperrors.ErrAuthorization,
		},
		{
			name:       "no segregation means ACEs only",
			users:      []string{"u1"},
			resource:   domain.Resource{EntityID: "acct1"},
			permission: domain.PermissionPost,
			wantErr:    apperrors.ErrAuthorization,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.SetupTest()
			users := domain.UniqueSorted(tt.users)
			suite.mockStore.On("ListAccessControlEntries", mock.Anything, tt.resource.EntityID, users).Return(tt.entries, nil).Once()
			if tt.resource.SegregationID != "" {
				suite.mockStore.On("ListDispositions", mock.Anything, users, tt.resource.SegregationID).Return(tt.dispositions, nil).Maybe()
			}

			err := suite.service.Authorize(suite.ctx, tt.users, tt.resource, tt.permission)

			if tt.wantErr != nil {
				suite.ErrorIs(err, tt.wantErr)
				return
			}
			suite.NoError(err)
		})
	}
}

func (suite *IdentityServiceTestSuite) TestAuthorize_SkipsDispositionsWhenACEsSuffice() {
	resource := domain.Resource{EntityID: "inst1", SegregationID: "seg1"}
	suite.mockStore.On("ListAccessControlEntries", mock.Anything, "inst1", []string{"u1"}).
		Return([]domain.AccessControlEntry{{EntityID: "inst1", ManagerUserID: "u1", Permission: domain.PermissionManage}}, nil).Once()

	err := suite.service.Authorize(suite.ctx, []string{"u1"}, resource, domain.PermissionRead)

	suite.NoError(err)
	suite.mockStore.AssertNotCalled(suite.T(), "ListDispositions", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *IdentityServiceTestSuite) TestAuthorize_RequiresActingUser() {
	err := suite.service.Authorize(suite.ctx, nil, domain.Resource{EntityID: "x"}, domain.PermissionRead)
	suite.ErrorIs(err, apperrors.ErrValidation)

	err = suite.service.Authorize(suite.ctx, []string{"u1"}, domain.Resource{EntityID: "x"}, domain.Permission("FLY"))
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *IdentityServiceTestSuite) TestAuthorizeAny() {
	resource := domain.Resource{EntityID: "acct1"}
	users := []string{"u1", "u2"}
	suite.mockStore.On("ListAccessControlEntries", mock.Anything, "acct1", users).
		Return([]domain.AccessControlEntry{{EntityID: "acct1", ManagerUserID: "u2", Permission: domain.PermissionPost}}, nil).Once()

	suite.NoError(suite.service.AuthorizeAny(suite.ctx, users, resource, domain.PermissionPost))

	suite.mockStore.On("ListAccessControlEntries", mock.Anything, "acct1", users).Return(nil, nil).Once()
	suite.ErrorIs(suite.service.AuthorizeAny(suite.ctx, users, resource, domain.PermissionPost), apperrors.ErrAuthorization)
}
