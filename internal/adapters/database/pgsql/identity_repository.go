package pgsql

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

// PgxIdentityRepository persists users, roles, registrations and access grants.
type PgxIdentityRepository struct {
	*BaseRepository
}

func newPgxIdentityRepository(base *BaseRepository) *PgxIdentityRepository {
	return &PgxIdentityRepository{BaseRepository: base}
}

var _ portsrepo.IdentityRepositoryFacade = (*PgxIdentityRepository)(nil)

func (r *PgxIdentityRepository) SaveUser(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (user_id, email, username, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4);
	`
	if _, err := r.db().Exec(ctx, query, user.UserID, user.Email, user.Username, user.CreatedAt); err != nil {
		return dbError("failed to save user "+user.UserID, err)
	}
	return nil
}

const selectUser = `SELECT user_id, email, COALESCE(username, ''), created_at FROM users`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.UserID, &u.Email, &u.Username, &u.CreatedAt)
	return u, err
}

func (r *PgxIdentityRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	u, err := scanUser(r.db().QueryRow(ctx, selectUser+` WHERE user_id = $1;`, userID))
	if err != nil {
		return nil, findError("user", userID, err)
	}
	return &u, nil
}

func (r *PgxIdentityRepository) FindUsersByIDs(ctx context.Context, userIDs []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(userIDs))
	if len(userIDs) == 0 {
		return users, nil
	}
	rows, err := r.db().Query(ctx, selectUser+` WHERE user_id = ANY($1);`, userIDs)
	if err != nil {
		return nil, dbError("failed to query users", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbError("failed to scan user row", err)
		}
		users[u.UserID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating user rows", err)
	}
	return users, nil
}

func (r *PgxIdentityRepository) SaveRole(ctx context.Context, role domain.Role) error {
	if _, err := r.db().Exec(ctx, `INSERT INTO roles (role_id, name) VALUES ($1, $2);`, role.RoleID, role.Name); err != nil {
		return dbError("failed to save role "+role.Name, err)
	}
	return nil
}

func (r *PgxIdentityRepository) FindRoleByID(ctx context.Context, roleID string) (*domain.Role, error) {
	var role domain.Role
	err := r.db().QueryRow(ctx, `SELECT role_id, name FROM roles WHERE role_id = $1;`, roleID).Scan(&role.RoleID, &role.Name)
	if err != nil {
		return nil, findError("role", roleID, err)
	}
	return &role, nil
}

func (r *PgxIdentityRepository) SaveUserRole(ctx context.Context, userRole domain.UserRole) error {
	if _, err := r.db().Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2);`, userRole.UserID, userRole.RoleID); err != nil {
		return dbError("failed to save role of user "+userRole.UserID, err)
	}
	return nil
}

func (r *PgxIdentityRepository) ListRolesByUser(ctx context.Context, userID string) ([]domain.Role, error) {
	query := `
		SELECT r.role_id, r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name;
	`
	rows, err := r.db().Query(ctx, query, userID)
	if err != nil {
		return nil, dbError("failed to query roles of user "+userID, err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Role, error) {
		var role domain.Role
		err := row.Scan(&role.RoleID, &role.Name)
		return role, err
	})
	if err != nil {
		return nil, dbError("failed to scan role rows", err)
	}
	return roles, nil
}

func (r *PgxIdentityRepository) SaveRegistration(ctx context.Context, registration domain.Registration) error {
	query := `
		INSERT INTO registrations (registration_id, user_id, provider, provider_key, created_at)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err := r.db().Exec(ctx, query,
		registration.RegistrationID,
		registration.UserID,
		registration.Provider,
		registration.ProviderKey,
		registration.CreatedAt,
	)
	if err != nil {
		return dbError("failed to save registration", err)
	}
	return nil
}

func (r *PgxIdentityRepository) FindRegistrationByLogin(ctx context.Context, provider, providerKey string) (*domain.Registration, error) {
	query := `
		SELECT registration_id, user_id, provider, provider_key, created_at
		FROM registrations
		WHERE provider = $1 AND provider_key = $2;
	`
	var reg domain.Registration
	err := r.db().QueryRow(ctx, query, provider, providerKey).Scan(
		&reg.RegistrationID,
		&reg.UserID,
		&reg.Provider,
		&reg.ProviderKey,
		&reg.CreatedAt,
	)
	if err != nil {
		return nil, findError("registration", provider+"/"+providerKey, err)
	}
	return &reg, nil
}

func (r *PgxIdentityRepository) SaveSegregation(ctx context.Context, segregation domain.Segregation) error {
	query := `
		INSERT INTO segregations (segregation_id, codename, description, created_at)
		VALUES ($1, $2, $3, $4);
	`
	_, err := r.db().Exec(ctx, query, segregation.SegregationID, segregation.Codename, segregation.Description, segregation.CreatedAt)
	if err != nil {
		return dbError("failed to save segregation "+segregation.Codename, err)
	}
	return nil
}

func (r *PgxIdentityRepository) FindSegregationByID(ctx context.Context, segregationID string) (*domain.Segregation, error) {
	query := `SELECT segregation_id, codename, description, created_at FROM segregations WHERE segregation_id = $1;`
	var seg domain.Segregation
	err := r.db().QueryRow(ctx, query, segregationID).Scan(&seg.SegregationID, &seg.Codename, &seg.Description, &seg.CreatedAt)
	if err != nil {
		return nil, findError("segregation", segregationID, err)
	}
	return &seg, nil
}

func permissionStrings(ps []domain.Permission) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func (r *PgxIdentityRepository) SaveDisposition(ctx context.Context, disposition domain.Disposition) error {
	query := `
		INSERT INTO dispositions (disposition_id, user_id, segregation_id, permissions, granted_at, granted_by)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db().Exec(ctx, query,
		disposition.DispositionID,
		disposition.UserID,
		disposition.SegregationID,
		permissionStrings(disposition.Permissions),
		disposition.GrantedAt,
		disposition.GrantedBy,
	)
	if err != nil {
		return dbError("failed to save disposition for user "+disposition.UserID, err)
	}
	return nil
}

func (r *PgxIdentityRepository) UpdateDispositionPermissions(ctx context.Context, dispositionID string, permissions []domain.Permission) error {
	cmdTag, err := r.db().Exec(ctx,
		`UPDATE dispositions SET permissions = $2 WHERE disposition_id = $1;`,
		dispositionID, permissionStrings(permissions))
	if err != nil {
		return dbError("failed to update disposition "+dispositionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return notFound("disposition", dispositionID)
	}
	return nil
}

const selectDisposition = `
	SELECT disposition_id, user_id, segregation_id, permissions, granted_at, granted_by
	FROM dispositions
`

func scanDisposition(row pgx.Row) (domain.Disposition, error) {
	var d domain.Disposition
	var permissions []string
	if err := row.Scan(&d.DispositionID, &d.UserID, &d.SegregationID, &permissions, &d.GrantedAt, &d.GrantedBy); err != nil {
		return d, err
	}
	d.Permissions = make([]domain.Permission, len(permissions))
	for i, p := range permissions {
		d.Permissions[i] = domain.Permission(p)
	}
	return d, nil
}

func (r *PgxIdentityRepository) FindDisposition(ctx context.Context, userID, segregationID string) (*domain.Disposition, error) {
	d, err := scanDisposition(r.db().QueryRow(ctx, selectDisposition+` WHERE user_id = $1 AND segregation_id = $2;`, userID, segregationID))
	if err != nil {
		return nil, findError("disposition", userID+"/"+segregationID, err)
	}
	return &d, nil
}

func (r *PgxIdentityRepository) ListDispositions(ctx context.Context, userIDs []string, segregationID string) ([]domain.Disposition, error) {
	rows, err := r.db().Query(ctx,
		selectDisposition+` WHERE user_id = ANY($1) AND segregation_id = $2 ORDER BY user_id;`,
		domain.UniqueSorted(userIDs), segregationID)
	if err != nil {
		return nil, dbError("failed to query dispositions", err)
	}
	dispositions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Disposition, error) {
		return scanDisposition(row)
	})
	if err != nil {
		return nil, dbError("failed to scan disposition rows", err)
	}
	return dispositions, nil
}

func (r *PgxIdentityRepository) SaveAccessControlEntry(ctx context.Context, entry domain.AccessControlEntry) error {
	query := `
		INSERT INTO access_control_entries (entity_id, manager_user_id, permission, granted_at)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := r.db().Exec(ctx, query, entry.EntityID, entry.ManagerUserID, entry.Permission, entry.GrantedAt); err != nil {
		return dbError("failed to save access control entry on "+entry.EntityID, err)
	}
	return nil
}

func (r *PgxIdentityRepository) ListAccessControlEntries(ctx context.Context, entityID string, userIDs []string) ([]domain.AccessControlEntry, error) {
	query := `
		SELECT entity_id, manager_user_id, permission, granted_at
		FROM access_control_entries
		WHERE entity_id = $1 AND manager_user_id = ANY($2)
		ORDER BY manager_user_id, permission;
	`
	rows, err := r.db().Query(ctx, query, entityID, userIDs)
	if err != nil {
		return nil, dbError("failed to query access control entries of "+entityID, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AccessControlEntry, error) {
		var e domain.AccessControlEntry
		err := row.Scan(&e.EntityID, &e.ManagerUserID, &e.Permission, &e.GrantedAt)
		return e, err
	})
	if err != nil {
		return nil, dbError("failed to scan access control entries", err)
	}
	return entries, nil
}
