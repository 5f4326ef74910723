package repositories

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

// IdentityReader defines read operations for users, roles and access grants
type IdentityReader interface {
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	FindUsersByIDs(ctx context.Context, userIDs []string) (map[string]domain.User, error)
	FindRoleByID(ctx context.Context, roleID string) (*domain.Role, error)
	ListRolesByUser(ctx context.Context, userID string) ([]domain.Role, error)
	FindRegistrationByLogin(ctx context.Context, provider, providerKey string) (*domain.Registration, error)
	FindSegregationByID(ctx context.Context, segregationID string) (*domain.Segregation, error)
	FindDisposition(ctx context.Context, userID, segregationID string) (*domain.Disposition, error)

	// ListDispositions returns the dispositions held by any of userIDs over segregationID.
	ListDispositions(ctx context.Context, userIDs []string, segregationID string) ([]domain.Disposition, error)

	// ListAccessControlEntries returns the entries on entityID managed by any of userIDs.
	ListAccessControlEntries(ctx context.Context, entityID string, userIDs []string) ([]domain.AccessControlEntry, error)
}

// IdentityWriter defines write operations for users, roles and access grants
type IdentityWriter interface {
	SaveUser(ctx context.Context, user domain.User) error
	SaveRole(ctx context.Context, role domain.Role) error
	SaveUserRole(ctx context.Context, userRole domain.UserRole) error
	SaveRegistration(ctx context.Context, registration domain.Registration) error
	SaveSegregation(ctx context.Context, segregation domain.Segregation) error
	SaveDisposition(ctx context.Context, disposition domain.Disposition) error

	// UpdateDispositionPermissions replaces the permission set of an existing disposition.
	UpdateDispositionPermissions(ctx context.Context, dispositionID string, permissions []domain.Permission) error
	SaveAccessControlEntry(ctx context.Context, entry domain.AccessControlEntry) error
}

// IdentityRepositoryFacade combines all identity-related repository interfaces
type IdentityRepositoryFacade interface {
	IdentityReader
	IdentityWriter
}
