package repositories

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

// OwnershipRepository manages the payload-free ownership join relation.
type OwnershipRepository interface {
	// SaveOwnershipEdges adds edges; edges that already exist are left untouched.
	SaveOwnershipEdges(ctx context.Context, edges []domain.OwnershipEdge) error
	ListOwnerIDs(ctx context.Context, kind domain.OwnedKind, entityID string) ([]string, error)

	// ListOwnedEntityIDs returns the IDs of kind owned by any of userIDs.
	ListOwnedEntityIDs(ctx context.Context, kind domain.OwnedKind, userIDs []string) ([]string, error)
}
