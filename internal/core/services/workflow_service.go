package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/SscSPs/ledgerflow/internal/apperrors"
	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
	"github.com/SscSPs/ledgerflow/internal/platform/logging"
)

// workflowService declares workflow graphs and drives instances through them.
type workflowService struct {
	BaseService
	authorizer portssvc.AuthorizerSvc

	hooksMu sync.RWMutex
	hooks   map[string][]portssvc.TransitionHook // by path codename
}

// NewWorkflowService creates a new workflow service. Transition permissions are
// checked with authorizer.
func NewWorkflowService(store portsrepo.Store, authorizer portssvc.AuthorizerSvc, opts ...ServiceOption) portssvc.WorkflowSvcFacade {
	o := newServiceOptions(opts)
	return &workflowService{
		BaseService: newBaseService(store, o),
		authorizer:  authorizer,
		hooks:       make(map[string][]portssvc.TransitionHook),
	}
}

var _ portssvc.WorkflowSvcFacade = (*workflowService)(nil)

func (s *workflowService) CreateGraph(ctx context.Context, req dto.CreateGraphRequest) (*domain.WorkflowGraph, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	graph := domain.WorkflowGraph{
		GraphID:     uuid.NewString(),
		Codename:    req.Codename,
		Description: req.Description,
		AuditFields: domain.NewAuditFields(req.UserID, s.now()),
	}
	if err := s.reader(ctx).SaveGraph(ctx, graph); err != nil {
		return nil, fmt.Errorf("failed to create workflow graph: %w", err)
	}
	return &graph, nil
}

func (s *workflowService) AddStateGroup(ctx context.Context, req dto.AddStateGroupRequest) (*domain.StateGroup, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	group := domain.StateGroup{GroupID: uuid.NewString(), GraphID: req.GraphID, Codename: req.Codename}
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if _, err := tx.FindGraphByID(ctx, req.GraphID); err != nil {
			return err
		}
		return tx.SaveStateGroup(ctx, group)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add state group: %w", err)
	}
	return &group, nil
}

func (s *workflowService) AddState(ctx context.Context, req dto.AddStateRequest) (*domain.State, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	if req.Initial && req.Terminal {
		return nil, apperrors.NewValidationFailedError("a state cannot be both initial and terminal")
	}

	var out *domain.State
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		group, err := tx.FindStateGroupByID(ctx, req.GroupID)
		if err != nil {
			return err
		}
		if req.Initial {
			existing, err := tx.ListStatesByGraph(ctx, group.GraphID)
			if err != nil {
				return err
			}
			for _, st := range existing {
				if st.Initial {
					return apperrors.NewValidationFailedError(
						fmt.Sprintf("graph %s already has initial state %s", group.GraphID, st.Codename))
				}
			}
		}
		node := domain.State{
			StateID:  uuid.NewString(),
			GroupID:  group.GroupID,
			GraphID:  group.GraphID,
			Codename: req.Codename,
			Initial:  req.Initial,
			Terminal: req.Terminal,
		}
		if err := tx.SaveState(ctx, node); err != nil {
			return err
		}
		out = &node
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add state: %w", err)
	}
	return out, nil
}

func (s *workflowService) AddStatePath(ctx context.Context, req dto.AddStatePathRequest) (*domain.StatePath, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var out *domain.StatePath
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		source, err := tx.FindStateByID(ctx, req.SourceStateID)
		if err != nil {
			return err
		}
		target, err := tx.FindStateByID(ctx, req.TargetStateID)
		if err != nil {
			return err
		}
		if source.GraphID != target.GraphID {
			return apperrors.NewValidationFailedError(
				fmt.Sprintf("states %s and %s belong to different graphs", source.Codename, target.Codename))
		}
		if source.Terminal {
			return apperrors.NewValidationFailedError(fmt.Sprintf("terminal state %s cannot have outgoing paths", source.Codename))
		}
		path := domain.StatePath{
			PathID:        uuid.NewString(),
			GraphID:       source.GraphID,
			Codename:      req.Codename,
			SourceStateID: source.StateID,
			TargetStateID: target.StateID,
		}
		if err := tx.SaveStatePath(ctx, path); err != nil {
			return err
		}
		out = &path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add state path: %w", err)
	}
	return out, nil
}

func (s *workflowService) StartInstance(ctx context.Context, req dto.StartInstanceRequest) (*domain.WorkflowInstance, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	var out *domain.WorkflowInstance
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		if _, err := tx.FindGraphByID(ctx, req.GraphID); err != nil {
			return err
		}
		if _, err := tx.FindSegregationByID(ctx, req.SegregationID); err != nil {
			return err
		}
		initial, err := s.initialState(ctx, tx, req.GraphID, req.InitialStateID)
		if err != nil {
			return err
		}
		now := s.now()
		instance := domain.WorkflowInstance{
			InstanceID:     uuid.NewString(),
			GraphID:        req.GraphID,
			SegregationID:  req.SegregationID,
			EntityRef:      req.EntityRef,
			CurrentStateID: initial.StateID,
			LastModifiedAt: now,
			AuditFields:    domain.NewAuditFields(req.UserID, now),
		}
		if err := tx.SaveInstance(ctx, instance); err != nil {
			return err
		}
		out = &instance
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow instance: %w", err)
	}
	s.LogInfo(ctx, "Workflow instance started",
		slog.String("instance_id", out.InstanceID),
		slog.String("graph_id", out.GraphID))
	return out, nil
}

func (s *workflowService) initialState(ctx context.Context, tx portsrepo.Store, graphID, stateID string) (*domain.State, error) {
	if stateID != "" {
		st, err := tx.FindStateByID(ctx, stateID)
		if err != nil {
			return nil, err
		}
		if st.GraphID != graphID {
			return nil, apperrors.NewValidationFailedError(fmt.Sprintf("state %s is not part of graph %s", st.Codename, graphID))
		}
		return st, nil
	}
	states, err := tx.ListStatesByGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}
	for _, st := range states {
		if st.Initial {
			return &st, nil
		}
	}
	return nil, apperrors.NewValidationFailedError(fmt.Sprintf("graph %s has no initial state", graphID))
}

func (s *workflowService) RegisterHook(pathCodename string, hook portssvc.TransitionHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks[pathCodename] = append(s.hooks[pathCodename], hook)
}

func (s *workflowService) hooksFor(pathCodename string) []portssvc.TransitionHook {
	s.hooksMu.RLock()
	defer s.hooksMu.RUnlock()
	return append([]portssvc.TransitionHook(nil), s.hooks[pathCodename]...)
}

func (s *workflowService) ExecuteTransition(ctx context.Context, instanceID, pathCodename string, actingUserIDs []string) (*domain.StateTransition, error) {
	actors := domain.UniqueSorted(actingUserIDs)
	if len(actors) == 0 {
		return nil, apperrors.NewValidationFailedError("at least one acting user is required")
	}
	ctx = logging.With(ctx, slog.String("instance_id", instanceID), slog.String("path", pathCodename))

	var out *domain.StateTransition
	err := s.inTx(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		instance, err := tx.FindInstanceByID(ctx, instanceID)
		if err != nil {
			return err
		}
		path, err := tx.FindStatePathByCodename(ctx, pathCodename)
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewInvalidTransitionError(fmt.Sprintf("path %q does not exist", pathCodename))
		}
		if err != nil {
			return err
		}
		if path.GraphID != instance.GraphID {
			return apperrors.NewInvalidTransitionError(
				fmt.Sprintf("path %q does not belong to graph %s", pathCodename, instance.GraphID))
		}
		if path.SourceStateID != instance.CurrentStateID {
			return apperrors.NewInvalidTransitionError(
				fmt.Sprintf("path %q starts at state %s but the instance is in state %s",
					pathCodename, path.SourceStateID, instance.CurrentStateID))
		}
		if err := s.authorizer.Authorize(ctx, actors, instance.Resource(), domain.PermissionTransition); err != nil {
			return err
		}

		now := s.now()
		if err := tx.CompareAndSetInstanceState(ctx, instance.InstanceID, instance.Version, path.TargetStateID, actors[0], now); err != nil {
			return err
		}
		transition := domain.StateTransition{
			TransitionID: uuid.NewString(),
			InstanceID:   instance.InstanceID,
			PathID:       path.PathID,
			PathCodename: path.Codename,
			FromStateID:  instance.CurrentStateID,
			ToStateID:    path.TargetStateID,
			Sequence:     instance.Version + 1,
			ExecutedAt:   now,
			Ownership:    domain.Ownership{UserIDs: actors},
		}
		if err := tx.SaveStateTransition(ctx, transition); err != nil {
			return err
		}
		if err := tx.SaveOwnershipEdges(ctx, domain.EdgesOf(transition)); err != nil {
			return err
		}

		instance.CurrentStateID = path.TargetStateID
		instance.Version = transition.Sequence
		instance.LastModifiedAt = now
		instance.LastUpdatedAt = now
		instance.LastUpdatedBy = actors[0]
		for _, hook := range s.hooksFor(pathCodename) {
			if err := hook(ctx, *instance, transition); err != nil {
				return fmt.Errorf("transition hook: %w", err)
			}
		}
		out = &transition
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidTransition) && !errors.Is(err, apperrors.ErrAuthorization) {
			s.LogError(ctx, err, "Failed to execute transition")
		}
		return nil, fmt.Errorf("failed to execute transition %s: %w", pathCodename, err)
	}
	s.LogInfo(ctx, "Transition executed", slog.Int64("sequence", out.Sequence))
	return out, nil
}

func (s *workflowService) GetInstance(ctx context.Context, instanceID string) (*domain.WorkflowInstance, error) {
	instance, err := s.reader(ctx).FindInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow instance %s: %w", instanceID, err)
	}
	return instance, nil
}

func (s *workflowService) ListTransitions(ctx context.Context, instanceID string) ([]domain.StateTransition, error) {
	store := s.reader(ctx)
	if _, err := store.FindInstanceByID(ctx, instanceID); err != nil {
		return nil, fmt.Errorf("failed to list transitions of %s: %w", instanceID, err)
	}
	transitions, err := store.ListTransitionsByInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions of %s: %w", instanceID, err)
	}
	return transitions, nil
}
