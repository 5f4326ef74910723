package memory

import (
	"context"
	"sort"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

func (s *Store) SaveOwnershipEdges(ctx context.Context, edges []domain.OwnershipEdge) error {
	return s.write(ctx, func(st *state) error {
		return st.addEdges(edges)
	})
}

func (s *Store) ListOwnerIDs(_ context.Context, kind domain.OwnedKind, entityID string) ([]string, error) {
	var out []string
	err := s.read(func(st *state) error {
		out = st.ownersOf(kind, entityID)
		return nil
	})
	return out, err
}

func (s *Store) ListOwnedEntityIDs(_ context.Context, kind domain.OwnedKind, userIDs []string) ([]string, error) {
	users := idSet(userIDs)
	seen := make(map[string]struct{})
	err := s.read(func(st *state) error {
		for e := range st.edges {
			if _, ok := users[e.UserID]; ok && e.Kind == kind {
				seen[e.EntityID] = struct{}{}
			}
		}
		return nil
	})
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, err
}
