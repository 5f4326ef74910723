package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

// PgxWorkflowRepository persists workflow graphs, instances and their transitions.
type PgxWorkflowRepository struct {
	*BaseRepository
	owners *PgxOwnershipRepository
}

func newPgxWorkflowRepository(base *BaseRepository, owners *PgxOwnershipRepository) *PgxWorkflowRepository {
	return &PgxWorkflowRepository{BaseRepository: base, owners: owners}
}

var _ portsrepo.WorkflowRepositoryFacade = (*PgxWorkflowRepository)(nil)

func (r *PgxWorkflowRepository) SaveGraph(ctx context.Context, graph domain.WorkflowGraph) error {
	query := `
		INSERT INTO workflow_graphs (graph_id, codename, description, created_at, created_by, last_updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db().Exec(ctx, query,
		graph.GraphID,
		graph.Codename,
		graph.Description,
		graph.CreatedAt,
		graph.CreatedBy,
		graph.LastUpdatedAt,
		graph.LastUpdatedBy,
	)
	if err != nil {
		return dbError("failed to save workflow graph "+graph.Codename, err)
	}
	return nil
}

func (r *PgxWorkflowRepository) FindGraphByID(ctx context.Context, graphID string) (*domain.WorkflowGraph, error) {
	query := `
		SELECT graph_id, codename, description, created_at, created_by, last_updated_at, last_updated_by
		FROM workflow_graphs
		WHERE graph_id = $1;
	`
	var g domain.WorkflowGraph
	err := r.db().QueryRow(ctx, query, graphID).Scan(
		&g.GraphID,
		&g.Codename,
		&g.Description,
		&g.CreatedAt,
		&g.CreatedBy,
		&g.LastUpdatedAt,
		&g.LastUpdatedBy,
	)
	if err != nil {
		return nil, findError("workflow graph", graphID, err)
	}
	return &g, nil
}

func (r *PgxWorkflowRepository) SaveStateGroup(ctx context.Context, group domain.StateGroup) error {
	query := `INSERT INTO state_groups (group_id, graph_id, codename) VALUES ($1, $2, $3);`
	if _, err := r.db().Exec(ctx, query, group.GroupID, group.GraphID, group.Codename); err != nil {
		return dbError("failed to save state group "+group.Codename, err)
	}
	return nil
}

func (r *PgxWorkflowRepository) FindStateGroupByID(ctx context.Context, groupID string) (*domain.StateGroup, error) {
	var g domain.StateGroup
	err := r.db().QueryRow(ctx, `SELECT group_id, graph_id, codename FROM state_groups WHERE group_id = $1;`, groupID).
		Scan(&g.GroupID, &g.GraphID, &g.Codename)
	if err != nil {
		return nil, findError("state group", groupID, err)
	}
	return &g, nil
}

func (r *PgxWorkflowRepository) SaveState(ctx context.Context, state domain.State) error {
	query := `
		INSERT INTO states (state_id, group_id, graph_id, codename, is_initial, is_terminal)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db().Exec(ctx, query, state.StateID, state.GroupID, state.GraphID, state.Codename, state.Initial, state.Terminal)
	if err != nil {
		return dbError("failed to save state "+state.Codename, err)
	}
	return nil
}

const selectState = `SELECT state_id, group_id, graph_id, codename, is_initial, is_terminal FROM states`

func scanState(row pgx.Row) (domain.State, error) {
	var s domain.State
	err := row.Scan(&s.StateID, &s.GroupID, &s.GraphID, &s.Codename, &s.Initial, &s.Terminal)
	return s, err
}

func (r *PgxWorkflowRepository) FindStateByID(ctx context.Context, stateID string) (*domain.State, error) {
	s, err := scanState(r.db().QueryRow(ctx, selectState+` WHERE state_id = $1;`, stateID))
	if err != nil {
		return nil, findError("state", stateID, err)
	}
	return &s, nil
}

func (r *PgxWorkflowRepository) ListStatesByGraph(ctx context.Context, graphID string) ([]domain.State, error) {
	rows, err := r.db().Query(ctx, selectState+` WHERE graph_id = $1 ORDER BY state_id;`, graphID)
	if err != nil {
		return nil, dbError("failed to query states of graph "+graphID, err)
	}
	states, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.State, error) {
		return scanState(row)
	})
	if err != nil {
		return nil, dbError("failed to scan state rows", err)
	}
	return states, nil
}

func (r *PgxWorkflowRepository) SaveStatePath(ctx context.Context, path domain.StatePath) error {
	query := `
		INSERT INTO state_paths (path_id, graph_id, codename, source_state_id, target_state_id)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err := r.db().Exec(ctx, query, path.PathID, path.GraphID, path.Codename, path.SourceStateID, path.TargetStateID)
	if err != nil {
		return dbError("failed to save state path "+path.Codename, err)
	}
	return nil
}

func (r *PgxWorkflowRepository) FindStatePathByCodename(ctx context.Context, codename string) (*domain.StatePath, error) {
	query := `
		SELECT path_id, graph_id, codename, source_state_id, target_state_id
		FROM state_paths
		WHERE codename = $1;
	`
	var p domain.StatePath
	err := r.db().QueryRow(ctx, query, codename).Scan(&p.PathID, &p.GraphID, &p.Codename, &p.SourceStateID, &p.TargetStateID)
	if err != nil {
		return nil, findError("state path", codename, err)
	}
	return &p, nil
}

func (r *PgxWorkflowRepository) SaveInstance(ctx context.Context, instance domain.WorkflowInstance) error {
	query := `
		INSERT INTO workflow_instances (
			instance_id, graph_id, segregation_id, entity_ref, current_state_id, version, last_modified_at,
			created_at, created_by, last_updated_at, last_updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.db().Exec(ctx, query,
		instance.InstanceID,
		instance.GraphID,
		instance.SegregationID,
		instance.EntityRef,
		instance.CurrentStateID,
		instance.Version,
		instance.LastModifiedAt,
		instance.CreatedAt,
		instance.CreatedBy,
		instance.LastUpdatedAt,
		instance.LastUpdatedBy,
	)
	if err != nil {
		return dbError("failed to save workflow instance "+instance.InstanceID, err)
	}
	return nil
}

func (r *PgxWorkflowRepository) FindInstanceByID(ctx context.Context, instanceID string) (*domain.WorkflowInstance, error) {
	query := `
		SELECT instance_id, graph_id, segregation_id, entity_ref, current_state_id, version, last_modified_at,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM workflow_instances
		WHERE instance_id = $1;
	`
	var w domain.WorkflowInstance
	err := r.db().QueryRow(ctx, query, instanceID).Scan(
		&w.InstanceID,
		&w.GraphID,
		&w.SegregationID,
		&w.EntityRef,
		&w.CurrentStateID,
		&w.Version,
		&w.LastModifiedAt,
		&w.CreatedAt,
		&w.CreatedBy,
		&w.LastUpdatedAt,
		&w.LastUpdatedBy,
	)
	if err != nil {
		return nil, findError("workflow instance", instanceID, err)
	}
	return &w, nil
}

// CompareAndSetInstanceState is a single conditional UPDATE; the row lock it
// takes serializes concurrent traversals of the same instance.
func (r *PgxWorkflowRepository) CompareAndSetInstanceState(ctx context.Context, instanceID string, expectedVersion int64, stateID, userID string, at time.Time) error {
	query := `
		UPDATE workflow_instances
		SET current_state_id = $3,
		    version = version + 1,
		    last_modified_at = $4,
		    last_updated_at = $4,
		    last_updated_by = $5
		WHERE instance_id = $1 AND version = $2;
	`
	cmdTag, err := r.db().Exec(ctx, query, instanceID, expectedVersion, stateID, at, userID)
	if err != nil {
		return dbError("failed to move workflow instance "+instanceID, err)
	}
	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workflow_instances WHERE instance_id = $1);`, instanceID).Scan(&exists); err != nil {
		return dbError("failed to check workflow instance "+instanceID, err)
	}
	if !exists {
		return notFound("workflow instance", instanceID)
	}
	return apperrors.NewConflictError(fmt.Sprintf("workflow instance %s moved past version %d", instanceID, expectedVersion))
}

func (r *PgxWorkflowRepository) SaveStateTransition(ctx context.Context, transition domain.StateTransition) error {
	query := `
		INSERT INTO state_transitions (
			transition_id, instance_id, path_id, path_codename, from_state_id, to_state_id, sequence, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.db().Exec(ctx, query,
		transition.TransitionID,
		transition.InstanceID,
		transition.PathID,
		transition.PathCodename,
		transition.FromStateID,
		transition.ToStateID,
		transition.Sequence,
		transition.ExecutedAt,
	)
	if err != nil {
		return dbError("failed to save state transition for instance "+transition.InstanceID, err)
	}
	return nil
}

func (r *PgxWorkflowRepository) ListTransitionsByInstance(ctx context.Context, instanceID string) ([]domain.StateTransition, error) {
	query := `
		SELECT transition_id, instance_id, path_id, path_codename, from_state_id, to_state_id, sequence, executed_at
		FROM state_transitions
		WHERE instance_id = $1
		ORDER BY sequence;
	`
	rows, err := r.db().Query(ctx, query, instanceID)
	if err != nil {
		return nil, dbError("failed to query transitions of instance "+instanceID, err)
	}
	transitions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StateTransition, error) {
		var t domain.StateTransition
		err := row.Scan(&t.TransitionID, &t.InstanceID, &t.PathID, &t.PathCodename, &t.FromStateID, &t.ToStateID, &t.Sequence, &t.ExecutedAt)
		return t, err
	})
	if err != nil {
		return nil, dbError("failed to scan transition rows", err)
	}

	ids := make([]string, len(transitions))
	for i, t := range transitions {
		ids[i] = t.TransitionID
	}
	owners, err := r.owners.ownersOf(ctx, domain.OwnedStateTransition, ids)
	if err != nil {
		return nil, err
	}
	for i := range transitions {
		transitions[i].UserIDs = owners[transitions[i].TransitionID]
	}
	return transitions, nil
}
