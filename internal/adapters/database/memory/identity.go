package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

func (s *Store) SaveUser(ctx context.Context, user domain.User) error {
	return s.write(ctx, func(st *state) error {
		if err := st.claim(domain.UQUserEmail, user.UserID, user.Email); err != nil {
			return err
		}
		if err := st.claim(domain.UQUserUsername, user.UserID, user.Username); err != nil {
			return err
		}
		st.users[user.UserID] = user
		return nil
	})
}

func (s *Store) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	var out *domain.User
	err := s.read(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return notFound("user", userID)
		}
		out = &u
		return nil
	})
	return out, err
}

func (s *Store) FindUsersByIDs(_ context.Context, userIDs []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(userIDs))
	err := s.read(func(st *state) error {
		for _, id := range userIDs {
			if u, ok := st.users[id]; ok {
				out[id] = u
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) SaveRole(ctx context.Context, role domain.Role) error {
	return s.write(ctx, func(st *state) error {
		if err := st.claim(domain.UQRoleName, role.RoleID, role.Name); err != nil {
			return err
		}
		st.roles[role.RoleID] = role
		return nil
	})
}

func (s *Store) FindRoleByID(_ context.Context, roleID string) (*domain.Role, error) {
	var out *domain.Role
	err := s.read(func(st *state) error {
		r, ok := st.roles[roleID]
		if !ok {
			return notFound("role", roleID)
		}
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) SaveUserRole(ctx context.Context, userRole domain.UserRole) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.users[userRole.UserID]; !ok {
			return missingRef("user", userRole.UserID)
		}
		if _, ok := st.roles[userRole.RoleID]; !ok {
			return missingRef("role", userRole.RoleID)
		}
		if err := st.claimNew(domain.UQUserRole, userRole.UserID, userRole.RoleID); err != nil {
			return err
		}
		st.userRoles[userRole] = struct{}{}
		return nil
	})
}

func (s *Store) ListRolesByUser(_ context.Context, userID string) ([]domain.Role, error) {
	var out []domain.Role
	err := s.read(func(st *state) error {
		for ur := range st.userRoles {
			if ur.UserID == userID {
				out = append(out, st.roles[ur.RoleID])
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *Store) SaveRegistration(ctx context.Context, registration domain.Registration) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.users[registration.UserID]; !ok {
			return missingRef("user", registration.UserID)
		}
		if err := st.claim(domain.UQRegistrationLogin, registration.RegistrationID, registration.Provider, registration.ProviderKey); err != nil {
			return err
		}
		st.registrations[registration.RegistrationID] = registration
		return nil
	})
}

func (s *Store) FindRegistrationByLogin(_ context.Context, provider, providerKey string) (*domain.Registration, error) {
	var out *domain.Registration
	err := s.read(func(st *state) error {
		id, ok := st.lookup(domain.UQRegistrationLogin, provider, providerKey)
		if !ok {
			return notFound("registration", provider+"/"+providerKey)
		}
		r := st.registrations[id]
		out = &r
		return nil
	})
	return out, err
}

func (s *Store) SaveSegregation(ctx context.Context, segregation domain.Segregation) error {
	return s.write(ctx, func(st *state) error {
		if err := st.claim(domain.UQSegregationCodename, segregation.SegregationID, segregation.Codename); err != nil {
			return err
		}
		st.segregations[segregation.SegregationID] = segregation
		return nil
	})
}

func (s *Store) FindSegregationByID(_ context.Context, segregationID string) (*domain.Segregation, error) {
	var out *domain.Segregation
	err := s.read(func(st *state) error {
		seg, ok := st.segregations[segregationID]
		if !ok {
			return notFound("segregation", segregationID)
		}
		out = &seg
		return nil
	})
	return out, err
}

func (s *Store) SaveDisposition(ctx context.Context, disposition domain.Disposition) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.users[disposition.UserID]; !ok {
			return missingRef("user", disposition.UserID)
		}
		if _, ok := st.segregations[disposition.SegregationID]; !ok {
			return missingRef("segregation", disposition.SegregationID)
		}
		if err := st.claim(domain.UQDispositionUser, disposition.DispositionID, disposition.UserID, disposition.SegregationID); err != nil {
			return err
		}
		disposition.Permissions = append([]domain.Permission(nil), disposition.Permissions...)
		st.dispositions[disposition.DispositionID] = disposition
		return nil
	})
}

func (s *Store) UpdateDispositionPermissions(ctx context.Context, dispositionID string, permissions []domain.Permission) error {
	return s.write(ctx, func(st *state) error {
		d, ok := st.dispositions[dispositionID]
		if !ok {
			return notFound("disposition", dispositionID)
		}
		d.Permissions = append([]domain.Permission(nil), permissions...)
		st.dispositions[dispositionID] = d
		return nil
	})
}

func (s *Store) FindDisposition(_ context.Context, userID, segregationID string) (*domain.Disposition, error) {
	var out *domain.Disposition
	err := s.read(func(st *state) error {
		id, ok := st.lookup(domain.UQDispositionUser, userID, segregationID)
		if !ok {
			return notFound("disposition", userID+"/"+segregationID)
		}
		d := st.dispositions[id]
		out = &d
		return nil
	})
	return out, err
}

func (s *Store) ListDispositions(_ context.Context, userIDs []string, segregationID string) ([]domain.Disposition, error) {
	var out []domain.Disposition
	err := s.read(func(st *state) error {
		for _, userID := range domain.UniqueSorted(userIDs) {
			if id, ok := st.lookup(domain.UQDispositionUser, userID, segregationID); ok {
				out = append(out, st.dispositions[id])
			}
		}
		return nil
	})
	return out, err
}

func aceKey(e domain.AccessControlEntry) string {
	return e.EntityID + "/" + e.ManagerUserID + "/" + string(e.Permission)
}

func (s *Store) SaveAccessControlEntry(ctx context.Context, entry domain.AccessControlEntry) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.users[entry.ManagerUserID]; !ok {
			return missingRef("user", entry.ManagerUserID)
		}
		key := aceKey(entry)
		if err := st.claimNew(domain.UQAccessControlEntry, entry.EntityID, entry.ManagerUserID, string(entry.Permission)); err != nil {
			return err
		}
		st.aces[key] = entry
		return nil
	})
}

func (s *Store) ListAccessControlEntries(_ context.Context, entityID string, userIDs []string) ([]domain.AccessControlEntry, error) {
	users := idSet(userIDs)
	var out []domain.AccessControlEntry
	err := s.read(func(st *state) error {
		for _, e := range st.aces {
			if _, ok := users[e.ManagerUserID]; ok && e.EntityID == entityID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return aceKey(out[i]) < aceKey(out[j]) })
	return out, err
}
