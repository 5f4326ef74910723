package pgsql

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

// PgxOwnershipRepository manages the entity_owners join table.
type PgxOwnershipRepository struct {
	*BaseRepository
}

func newPgxOwnershipRepository(base *BaseRepository) *PgxOwnershipRepository {
	return &PgxOwnershipRepository{BaseRepository: base}
}

var _ portsrepo.OwnershipRepository = (*PgxOwnershipRepository)(nil)

// SaveOwnershipEdges inserts edges in one batch; existing edges are skipped.
func (r *PgxOwnershipRepository) SaveOwnershipEdges(ctx context.Context, edges []domain.OwnershipEdge) error {
	batch := &pgx.Batch{}
	for _, e := range edges {
		batch.Queue(`
			INSERT INTO entity_owners (kind, entity_id, user_id)
			VALUES ($1, $2, $3)
			ON CONFLICT ON CONSTRAINT entity_owners_pkey DO NOTHING;
		`, e.Kind, e.EntityID, e.UserID)
	}
	return r.inTx(ctx, func(q querier) error {
		return sendBatch(ctx, q, batch, "failed to save ownership edges")
	})
}

func (r *PgxOwnershipRepository) ListOwnerIDs(ctx context.Context, kind domain.OwnedKind, entityID string) ([]string, error) {
	owners, err := r.ownersOf(ctx, kind, []string{entityID})
	if err != nil {
		return nil, err
	}
	return owners[entityID], nil
}

func (r *PgxOwnershipRepository) ListOwnedEntityIDs(ctx context.Context, kind domain.OwnedKind, userIDs []string) ([]string, error) {
	query := `
		SELECT DISTINCT entity_id
		FROM entity_owners
		WHERE kind = $1 AND user_id = ANY($2)
		ORDER BY entity_id;
	`
	rows, err := r.db().Query(ctx, query, kind, userIDs)
	if err != nil {
		return nil, dbError("failed to query owned entities", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, dbError("failed to scan owned entities", err)
	}
	return ids, nil
}

// ownersOf loads the sorted owner IDs of several entities of one kind.
func (r *PgxOwnershipRepository) ownersOf(ctx context.Context, kind domain.OwnedKind, entityIDs []string) (map[string][]string, error) {
	owners := make(map[string][]string, len(entityIDs))
	if len(entityIDs) == 0 {
		return owners, nil
	}
	query := `
		SELECT entity_id, user_id
		FROM entity_owners
		WHERE kind = $1 AND entity_id = ANY($2)
		ORDER BY entity_id, user_id;
	`
	rows, err := r.db().Query(ctx, query, kind, entityIDs)
	if err != nil {
		return nil, dbError("failed to query owners", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityID, userID string
		if err := rows.Scan(&entityID, &userID); err != nil {
			return nil, dbError("failed to scan owner row", err)
		}
		owners[entityID] = append(owners[entityID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("error iterating owner rows", err)
	}
	return owners, nil
}

// deleteOwners removes every edge pointing at an entity.
func (r *PgxOwnershipRepository) deleteOwners(ctx context.Context, q querier, kind domain.OwnedKind, entityID string) error {
	if _, err := q.Exec(ctx, `DELETE FROM entity_owners WHERE kind = $1 AND entity_id = $2;`, kind, entityID); err != nil {
		return dbError("failed to delete owners of "+entityID, err)
	}
	return nil
}
