package services

import (
	"context"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// TransitionHook runs inside the transaction of an executed transition, after the
// instance pointer moved. Returning an error rolls the whole transition back.
type TransitionHook func(ctx context.Context, instance domain.WorkflowInstance, transition domain.StateTransition) error

// WorkflowSetupSvc defines operations that declare graphs and start instances
type WorkflowSetupSvc interface {
	CreateGraph(ctx context.Context, req dto.CreateGraphRequest) (*domain.WorkflowGraph, error)
	AddStateGroup(ctx context.Context, req dto.AddStateGroupRequest) (*domain.StateGroup, error)
	AddState(ctx context.Context, req dto.AddStateRequest) (*domain.State, error)
	AddStatePath(ctx context.Context, req dto.AddStatePathRequest) (*domain.StatePath, error)
	StartInstance(ctx context.Context, req dto.StartInstanceRequest) (*domain.WorkflowInstance, error)
}

// WorkflowExecutorSvc drives instances along declared paths
type WorkflowExecutorSvc interface {
	// ExecuteTransition moves the instance along the path named pathCodename on
	// behalf of actingUserIDs and records the traversal.
	ExecuteTransition(ctx context.Context, instanceID, pathCodename string, actingUserIDs []string) (*domain.StateTransition, error)

	// RegisterHook attaches hook to every execution of the named path.
	RegisterHook(pathCodename string, hook TransitionHook)
}

// WorkflowReaderSvc defines read operations for workflow instances
type WorkflowReaderSvc interface {
	GetInstance(ctx context.Context, instanceID string) (*domain.WorkflowInstance, error)

	// ListTransitions returns the instance history in execution order.
	ListTransitions(ctx context.Context, instanceID string) ([]domain.StateTransition, error)
}

// WorkflowSvcFacade combines all workflow-related service interfaces
type WorkflowSvcFacade interface {
	WorkflowSetupSvc
	WorkflowExecutorSvc
	WorkflowReaderSvc
}
