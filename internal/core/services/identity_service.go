package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// identityService manages users, roles and the grants the access fabric checks.
type identityService struct {
	BaseService
}

// NewIdentityService creates a new identity service over store.
func NewIdentityService(store portsrepo.Store, opts ...ServiceOption) portssvc.IdentitySvcFacade {
	o := newServiceOptions(opts)
	return &identityService{BaseService: newBaseService(store, o)}
}

var _ portssvc.IdentitySvcFacade = (*identityService)(nil)

func (s *identityService) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*domain.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	user := domain.User{
		UserID:    uuid.NewString(),
		Email:     req.Email,
		Username:  req.Username,
		CreatedAt: s.now(),
	}
	if err := s.reader(ctx).SaveUser(ctx, user); err != nil {
		s.LogError(ctx, err, "Failed to save user", slog.String("username", user.Username))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.LogInfo(ctx, "User created", slog.String("user_id", user.UserID))
	return &user, nil
}

func (s *identityService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.reader(ctx).FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return user, nil
}

func (s *identityService) CreateRole(ctx context.Context, req dto.CreateRoleRequest) (*domain.Role, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	role := domain.Role{RoleID: uuid.NewString(), Name: strings.TrimSpace(req.Name)}
	if err := s.reader(ctx).SaveRole(ctx, role); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return &role, nil
}

func (s *identityService) AssignRole(ctx context.Context, userID, roleID string) error {
	if userID == "" || roleID == "" {
		return apperrors.NewValidationFailedError("userID and roleID are required")
	}
	if err := s.reader(ctx).SaveUserRole(ctx, domain.UserRole{UserID: userID, RoleID: roleID}); err != nil {
		return fmt.Errorf("failed to assign role %s to user %s: %w", roleID, userID, err)
	}
	return nil
}

func (s *identityService) ListUserRoles(ctx context.Context, userID string) ([]domain.Role, error) {
	store := s.reader(ctx)
	if _, err := store.FindUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to list roles of user %s: %w", userID, err)
	}
	roles, err := store.ListRolesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles of user %s: %w", userID, err)
	}
	return roles, nil
}

func (s *identityService) RegisterExternalLogin(ctx context.Context, req dto.RegisterExternalLoginRequest) (*domain.Registration, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	registration := domain.Registration{
		RegistrationID: uuid.NewString(),
		UserID:         req.UserID,
		Provider:       strings.ToLower(req.Provider),
		ProviderKey:    req.ProviderKey,
		CreatedAt:      s.now(),
	}
	if err := s.reader(ctx).SaveRegistration(ctx, registration); err != nil {
		return nil, fmt.Errorf("failed to register %s login: %w", registration.Provider, err)
	}
	return &registration, nil
}

func (s *identityService) FindUserByLogin(ctx context.Context, provider, providerKey string) (*domain.User, error) {
	store := s.reader(ctx)
	registration, err := store.FindRegistrationByLogin(ctx, strings.ToLower(provider), providerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s login: %w", provider, err)
	}
	user, err := store.FindUserByID(ctx, registration.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user of %s login: %w", provider, err)
	}
	return user, nil
}

func (s *identityService) CreateSegregation(ctx context.Context, req dto.CreateSegregationRequest) (*domain.Segregation, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	segregation := domain.Segregation{
		SegregationID: uuid.NewString(),
		Codename:      req.Codename,
		Description:   req.Description,
		CreatedAt:     s.now(),
	}
	if err := s.reader(ctx).SaveSegregation(ctx, segregation); err != nil {
		return nil, fmt.Errorf("failed to create segregation: %w", err)
	}
	return &segregation, nil
}

func (s *identityService) GrantDisposition(ctx context.Context, req dto.GrantDispositionRequest) (*domain.Disposition, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var out *domain.Disposition
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		existing, err := tx.FindDisposition(ctx, req.UserID, req.SegregationID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			d := domain.Disposition{
				DispositionID: uuid.NewString(),
				UserID:        req.UserID,
				SegregationID: req.SegregationID,
				Permissions:   mergePermissions(nil, req.Permissions),
				GrantedAt:     s.now(),
				GrantedBy:     req.GrantedBy,
			}
			if err := tx.SaveDisposition(ctx, d); err != nil {
				return err
			}
			out = &d
			return nil
		case err != nil:
			return err
		}

		existing.Permissions = mergePermissions(existing.Permissions, req.Permissions)
		if err := tx.UpdateDispositionPermissions(ctx, existing.DispositionID, existing.Permissions); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to grant disposition",
			slog.String("user_id", req.UserID),
			slog.String("segregation_id", req.SegregationID))
		return nil, fmt.Errorf("failed to grant disposition: %w", err)
	}
	return out, nil
}

func mergePermissions(current, added []domain.Permission) []domain.Permission {
	set := make(map[domain.Permission]struct{}, len(current)+len(added))
	for _, p := range current {
		set[p] = struct{}{}
	}
	for _, p := range added {
		set[p] = struct{}{}
	}
	out := make([]domain.Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *identityService) GrantAccess(ctx context.Context, req dto.GrantAccessRequest) (*domain.AccessControlEntry, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	entry := domain.AccessControlEntry{
		EntityID:      req.EntityID,
		ManagerUserID: req.ManagerUserID,
		Permission:    req.Permission,
		GrantedAt:     s.now(),
	}
	if err := s.reader(ctx).SaveAccessControlEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to grant %s on %s: %w", req.Permission, req.EntityID, err)
	}
	return &entry, nil
}

func (s *identityService) Authorize(ctx context.Context, userIDs []string, resource domain.Resource, permission domain.Permission) error {
	users, granted, err := s.grantedUsers(ctx, userIDs, resource, permission)
	if err != nil {
		return err
	}
	for _, userID := range users {
		if _, ok := granted[userID]; !ok {
			s.LogDebug(ctx, "Authorization denied",
				slog.String("user_id", userID),
				slog.String("entity_id", resource.EntityID),
				slog.String("permission", string(permission)))
			return apperrors.NewAuthorizationError(
				fmt.Sprintf("user %s lacks %s permission on %s", userID, permission, resource.EntityID))
		}
	}
	return nil
}

func (s *identityService) AuthorizeAny(ctx context.Context, userIDs []string, resource domain.Resource, permission domain.Permission) error {
	_, granted, err := s.grantedUsers(ctx, userIDs, resource, permission)
	if err != nil {
		return err
	}
	if len(granted) == 0 {
		return apperrors.NewAuthorizationError(
			fmt.Sprintf("none of the acting users holds %s permission on %s", permission, resource.EntityID))
	}
	return nil
}

// grantedUsers returns the distinct acting users and the subset of them holding
// permission on resource through an ACE or a disposition.
func (s *identityService) grantedUsers(ctx context.Context, userIDs []string, resource domain.Resource, permission domain.Permission) ([]string, map[string]struct{}, error) {
	users := domain.UniqueSorted(userIDs)
	if len(users) == 0 {
		return nil, nil, apperrors.NewValidationFailedError("at least one acting user is required")
	}
	if !permission.IsValid() {
		return nil, nil, apperrors.NewValidationFailedError(fmt.Sprintf("unknown permission %q", permission))
	}

	store := s.reader(ctx)
	granted := make(map[string]struct{}, len(users))
	entries, err := store.ListAccessControlEntries(ctx, resource.EntityID, users)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load access control entries: %w", err)
	}
	for _, e := range entries {
		if e.Allows(permission) {
			granted[e.ManagerUserID] = struct{}{}
		}
	}
	if resource.SegregationID != "" && len(granted) < len(users) {
		dispositions, err := store.ListDispositions(ctx, users, resource.SegregationID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load dispositions: %w", err)
		}
		for _, d := range dispositions {
			if d.Allows(permission) {
				granted[d.UserID] = struct{}{}
			}
		}
	}
	return users, granted, nil
}
