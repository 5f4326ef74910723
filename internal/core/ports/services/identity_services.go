package services

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// IdentityReaderSvc defines read operations for users and roles
type IdentityReaderSvc interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error)

	// FindUserByLogin resolves the user registered under an external provider login.
	FindUserByLogin(ctx context.Context, provider, providerKey string) (*domain.User, error)
}

// IdentityWriterSvc defines write operations for users, roles and grants
type IdentityWriterSvc interface {
	CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.User, error)
	CreateRole(ctx context.Context, req dto.CreateRoleRequest) (*domain.Role, error)
	AssignRole(ctx context.Context, userID, roleID string) error
	RegisterExternalLogin(ctx context.Context, req dto.RegisterExternalLoginRequest) (*domain.Registration, error)
	CreateSegregation(ctx context.Context, req dto.CreateSegregationRequest) (*domain.Segregation, error)

	// GrantDisposition creates a disposition or merges the permissions into the existing one.
	GrantDisposition(ctx context.Context, req dto.GrantDispositionRequest) (*domain.Disposition, error)
	GrantAccess(ctx context.Context, req dto.GrantAccessRequest) (*domain.AccessControlEntry, error)
}

// AuthorizerSvc answers permission checks for sets of acting users.
type AuthorizerSvc interface {
	// Authorize succeeds only if every user holds permission on resource, either
	// through an access control entry on the entity or a disposition over its
	// segregation.
	Authorize(ctx context.Context, userIDs []string, resource domain.Resource, permission domain.Permission) error

	// AuthorizeAny succeeds if at least one of userIDs holds permission on resource.
	AuthorizeAny(ctx context.Context, userIDs []string, resource domain.Resource, permission domain.Permission) error
}

// IdentitySvcFacade combines all identity-related service interfaces
type IdentitySvcFacade interface {
	IdentityReaderSvc
	IdentityWriterSvc
	AuthorizerSvc
}
