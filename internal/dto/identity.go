package dto

import "github.com/SscSPs/ledgerflow/internal/core/domain"

// CreateUserRequest defines the data needed to create a user.
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=64"`
}

// CreateRoleRequest defines the data needed to create a role.
type CreateRoleRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// RegisterExternalLoginRequest binds a user to an identity provider login.
type RegisterExternalLoginRequest struct {
	UserID      string `json:"userID" validate:"required"`
	Provider    string `json:"provider" validate:"required,max=64"`
	ProviderKey string `json:"providerKey" validate:"required,max=255"`
}

type CreateSegregationRequest struct {
	Codename    string `json:"codename" validate:"required,max=64"`
	Description string `json:"description" validate:"max=1024"`
}

// GrantDispositionRequest grants permissions over a segregation. Permissions are
// merged into an existing disposition of the same user and segregation.
type GrantDispositionRequest struct {
	UserID        string              `json:"userID" validate:"required"`
	SegregationID string              `json:"segregationID" validate:"required"`
	Permissions   []domain.Permission `json:"permissions" validate:"required,min=1,dive,oneof=READ TRANSITION POST MANAGE"`
	GrantedBy     string              `json:"grantedBy" validate:"required"`
}

// GrantAccessRequest creates an access control entry on a single entity.
type GrantAccessRequest struct {
	EntityID      string            `json:"entityID" validate:"required"`
	ManagerUserID string            `json:"managerUserID" validate:"required"`
	Permission    domain.Permission `json:"permission" validate:"required,oneof=READ TRANSITION POST MANAGE"`
}
