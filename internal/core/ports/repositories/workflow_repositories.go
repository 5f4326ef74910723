package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
)

// WorkflowReader defines read operations for workflow graphs and instances
type WorkflowReader interface {
	FindGraphByID(ctx context.Context, graphID string) (*domain.WorkflowGraph, error)
	FindStateGroupByID(ctx context.Context, groupID string) (*domain.StateGroup, error)
	FindStateByID(ctx context.Context, stateID string) (*domain.State, error)
	ListStatesByGraph(ctx context.Context, graphID string) ([]domain.State, error)
	FindStatePathByCodename(ctx context.Context, codename string) (*domain.StatePath, error)
	FindInstanceByID(ctx context.Context, instanceID string) (*domain.WorkflowInstance, error)

	// ListTransitionsByInstance returns the executed transitions of an instance in sequence order.
	ListTransitionsByInstance(ctx context.Context, instanceID string) ([]domain.StateTransition, error)
}

// WorkflowWriter defines write operations for workflow graphs and instances
type WorkflowWriter interface {
	SaveGraph(ctx context.Context, graph domain.WorkflowGraph) error
	SaveStateGroup(ctx context.Context, group domain.StateGroup) error
	SaveState(ctx context.Context, state domain.State) error
	SaveStatePath(ctx context.Context, path domain.StatePath) error
	SaveInstance(ctx context.Context, instance domain.WorkflowInstance) error

	// CompareAndSetInstanceState moves the current-state pointer only if the stored
	// version still equals expectedVersion, incrementing it. A lost race is reported
	// as apperrors.ErrConflict.
	CompareAndSetInstanceState(ctx context.Context, instanceID string, expectedVersion int64, stateID, userID string, at time.Time) error

	// SaveStateTransition appends a transition record. Owner edges are written separately.
	SaveStateTransition(ctx context.Context, transition domain.StateTransition) error
}

// WorkflowRepositoryFacade combines all workflow-related repository interfaces
type WorkflowRepositoryFacade interface {
	WorkflowReader
	WorkflowWriter
}
