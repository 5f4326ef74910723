package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

func (s *Store) SaveGraph(ctx context.Context, graph domain.WorkflowGraph) error {
	return s.write(ctx, func(st *state) error {
		if err := st.claim(domain.UQGraphCodename, graph.GraphID, graph.Codename); err != nil {
			return err
		}
		st.graphs[graph.GraphID] = graph
		return nil
	})
}

func (s *Store) FindGraphByID(_ context.Context, graphID string) (*domain.WorkflowGraph, error) {
	var out *domain.WorkflowGraph
	err := s.read(func(st *state) error {
		g, ok := st.graphs[graphID]
		if !ok {
			return notFound("workflow graph", graphID)
		}
		out = &g
		return nil
	})
	return out, err
}

func (s *Store) SaveStateGroup(ctx context.Context, group domain.StateGroup) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.graphs[group.GraphID]; !ok {
			return missingRef("workflow graph", group.GraphID)
		}
		if err := st.claim(domain.UQStateGroupCodename, group.GroupID, group.GraphID, group.Codename); err != nil {
			return err
		}
		st.groups[group.GroupID] = group
		return nil
	})
}

func (s *Store) FindStateGroupByID(_ context.Context, groupID string) (*domain.StateGroup, error) {
	var out *domain.StateGroup
	err := s.read(func(st *state) error {
		g, ok := st.groups[groupID]
		if !ok {
			return notFound("state group", groupID)
		}
		out = &g
		return nil
	})
	return out, err
}

func (s *Store) SaveState(ctx context.Context, node domain.State) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.groups[node.GroupID]; !ok {
			return missingRef("state group", node.GroupID)
		}
		if err := st.claim(domain.UQStateCodename, node.StateID, node.GroupID, node.Codename); err != nil {
			return err
		}
		st.states[node.StateID] = node
		return nil
	})
}

func (s *Store) FindStateByID(_ context.Context, stateID string) (*domain.State, error) {
	var out *domain.State
	err := s.read(func(st *state) error {
		n, ok := st.states[stateID]
		if !ok {
			return notFound("state", stateID)
		}
		out = &n
		return nil
	})
	return out, err
}

func (s *Store) ListStatesByGraph(_ context.Context, graphID string) ([]domain.State, error) {
	var out []domain.State
	err := s.read(func(st *state) error {
		for _, n := range st.states {
			if n.GraphID == graphID {
				out = append(out, n)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StateID < out[j].StateID })
	return out, err
}

func (s *Store) SaveStatePath(ctx context.Context, path domain.StatePath) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.states[path.SourceStateID]; !ok {
			return missingRef("state", path.SourceStateID)
		}
		if _, ok := st.states[path.TargetStateID]; !ok {
			return missingRef("state", path.TargetStateID)
		}
		if err := st.claim(domain.UQStatePathCodename, path.PathID, path.Codename); err != nil {
			return err
		}
		st.paths[path.PathID] = path
		return nil
	})
}

func (s *Store) FindStatePathByCodename(_ context.Context, codename string) (*domain.StatePath, error) {
	var out *domain.StatePath
	err := s.read(func(st *state) error {
		id, ok := st.lookup(domain.UQStatePathCodename, codename)
		if !ok {
			return notFound("state path", codename)
		}
		p := st.paths[id]
		out = &p
		return nil
	})
	return out, err
}

func (s *Store) SaveInstance(ctx context.Context, instance domain.WorkflowInstance) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.graphs[instance.GraphID]; !ok {
			return missingRef("workflow graph", instance.GraphID)
		}
		if _, ok := st.segregations[instance.SegregationID]; !ok {
			return missingRef("segregation", instance.SegregationID)
		}
		if _, ok := st.states[instance.CurrentStateID]; !ok {
			return missingRef("state", instance.CurrentStateID)
		}
		if _, exists := st.instances[instance.InstanceID]; exists {
			return apperrors.NewDuplicateError(fmt.Sprintf("workflow instance %s already exists", instance.InstanceID))
		}
		st.instances[instance.InstanceID] = instance
		return nil
	})
}

func (s *Store) FindInstanceByID(_ context.Context, instanceID string) (*domain.WorkflowInstance, error) {
	var out *domain.WorkflowInstance
	err := s.read(func(st *state) error {
		inst, ok := st.instances[instanceID]
		if !ok {
			return notFound("workflow instance", instanceID)
		}
		out = &inst
		return nil
	})
	return out, err
}

func (s *Store) CompareAndSetInstanceState(ctx context.Context, instanceID string, expectedVersion int64, stateID, userID string, at time.Time) error {
	return s.write(ctx, func(st *state) error {
		inst, ok := st.instances[instanceID]
		if !ok {
			return notFound("workflow instance", instanceID)
		}
		if inst.Version != expectedVersion {
			return apperrors.NewConflictError(fmt.Sprintf("workflow instance %s moved past version %d", instanceID, expectedVersion))
		}
		inst.CurrentStateID = stateID
		inst.Version++
		inst.LastModifiedAt = at
		inst.LastUpdatedAt = at
		inst.LastUpdatedBy = userID
		st.instances[instanceID] = inst
		return nil
	})
}

func (s *Store) SaveStateTransition(ctx context.Context, transition domain.StateTransition) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.instances[transition.InstanceID]; !ok {
			return missingRef("workflow instance", transition.InstanceID)
		}
		if err := st.claim(domain.UQTransitionSequence, transition.TransitionID, transition.InstanceID, fmt.Sprint(transition.Sequence)); err != nil {
			return err
		}
		transition.Ownership = domain.Ownership{}
		st.transitions[transition.InstanceID] = append(st.transitions[transition.InstanceID], transition)
		return nil
	})
}

func (s *Store) ListTransitionsByInstance(_ context.Context, instanceID string) ([]domain.StateTransition, error) {
	var out []domain.StateTransition
	err := s.read(func(st *state) error {
		for _, t := range st.transitions[instanceID] {
			t.Ownership = domain.Ownership{UserIDs: st.ownersOf(domain.OwnedStateTransition, t.TransitionID)}
			out = append(out, t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, err
}
