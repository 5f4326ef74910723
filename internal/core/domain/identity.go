package domain

import "time"

// User represents a person acting on the platform.
type User struct {
	UserID    string    `json:"userID"`   // Primary Key (e.g., UUID)
	Email     string    `json:"email"`    // Unique
	Username  string    `json:"username"` // Unique
	CreatedAt time.Time `json:"createdAt"`
}

// Role is a named group of users.
type Role struct {
	RoleID string `json:"roleID"`
	Name   string `json:"name"` // Unique
}

// UserRole is one edge of the user/role many-to-many relation.
type UserRole struct {
	UserID string `json:"userID"`
	RoleID string `json:"roleID"`
}

// Registration binds a user to an external identity provider login.
// (Provider, ProviderKey) is unique.
type Registration struct {
	RegistrationID string    `json:"registrationID"`
	UserID         string    `json:"userID"`
	Provider       string    `json:"provider"`
	ProviderKey    string    `json:"providerKey"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Segregation is a named partition of the domain that dispositions grant rights over.
type Segregation struct {
	SegregationID string    `json:"segregationID"`
	Codename      string    `json:"codename"` // Unique
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Permission is a capability checked by the access fabric.
type Permission string

const (
	PermissionRead       Permission = "READ"
	PermissionTransition Permission = "TRANSITION"
	PermissionPost       Permission = "POST"
	PermissionManage     Permission = "MANAGE" // implies every other permission
)

// IsValid reports whether p is a known permission.
func (p Permission) IsValid() bool {
	switch p {
	case PermissionRead, PermissionTransition, PermissionPost, PermissionManage:
		return true
	}
	return false
}

// Disposition grants a user a set of permissions over a segregation.
type Disposition struct {
	DispositionID string       `json:"dispositionID"`
	UserID        string       `json:"userID"` // Required FK -> users
	SegregationID string       `json:"segregationID"`
	Permissions   []Permission `json:"permissions"`
	GrantedAt     time.Time    `json:"grantedAt"`
	GrantedBy     string       `json:"grantedBy"`
}

// Allows reports whether the disposition covers the permission.
func (d Disposition) Allows(p Permission) bool {
	return allows(d.Permissions, p)
}

// AccessControlEntry grants a manager user a permission over one entity.
// (EntityID, ManagerUserID, Permission) is unique.
type AccessControlEntry struct {
	EntityID      string     `json:"entityID"`
	ManagerUserID string     `json:"managerUserID"`
	Permission    Permission `json:"permission"`
	GrantedAt     time.Time  `json:"grantedAt"`
}

// Allows reports whether the entry covers the permission.
func (a AccessControlEntry) Allows(p Permission) bool {
	return allows([]Permission{a.Permission}, p)
}

// Resource identifies an entity for an authorization check.
type Resource struct {
	EntityID      string
	SegregationID string // optional
}

func allows(granted []Permission, p Permission) bool {
	for _, g := range granted {
		if g == p || g == PermissionManage {
			return true
		}
	}
	return false
}
