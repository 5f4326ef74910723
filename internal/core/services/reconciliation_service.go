package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerflow/internal/core/ports/services"
	"github.com/SscSPs/ledgerflow/internal/dto"
)

// reconciliationService re-folds the funds-transfer logs and reports rows whose
// denormalized state drifted from them. It never repairs.
type reconciliationService struct {
	BaseService
	transfers portssvc.FundsTransferReaderSvc
	workers   int
	pageSize  int
}

// NewReconciliationService creates a new reconciliation service.
func NewReconciliationService(store portsrepo.Store, transfers portssvc.FundsTransferReaderSvc, opts ...ServiceOption) portssvc.ReconciliationSvc {
	o := newServiceOptions(opts)
	return &reconciliationService{
		BaseService: newBaseService(store, o),
		transfers:   transfers,
		workers:     o.reconcileWorkers,
		pageSize:    o.reconcilePageSize,
	}
}

var _ portssvc.ReconciliationSvc = (*reconciliationService)(nil)

func (s *reconciliationService) Reconcile(ctx context.Context) (*dto.ReconciliationReport, error) {
	report := &dto.ReconciliationReport{StartedAt: s.now()}

	err := s.eachPage(ctx, s.store.ListRequestIDs, func(ids []string) error {
		drifts, err := s.verifyRequests(ctx, ids)
		report.CheckedRequests += len(ids)
		report.RequestDrifts = append(report.RequestDrifts, drifts...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile requests: %w", err)
	}

	err = s.eachPage(ctx, s.store.ListBatchIDs, func(ids []string) error {
		drifts, err := s.verifyBatches(ctx, ids)
		report.CheckedBatches += len(ids)
		report.BatchDrifts = append(report.BatchDrifts, drifts...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile batches: %w", err)
	}

	report.FinishedAt = s.now()
	for _, d := range report.RequestDrifts {
		s.LogWarn(ctx, "Funds transfer request drifted from its event log",
			slog.String("request_id", d.RequestID),
			slog.String("stored_state", string(d.StoredState)),
			slog.String("folded_state", string(d.FoldedState)),
			slog.String("fold_error", d.FoldError))
	}
	for _, d := range report.BatchDrifts {
		s.LogWarn(ctx, "Funds transfer batch drifted from its members",
			slog.String("batch_id", d.BatchID),
			slog.String("stored_state", string(d.StoredState)),
			slog.String("folded_state", string(d.FoldedState)))
	}
	s.LogInfo(ctx, "Reconciliation finished",
		slog.Int("requests", report.CheckedRequests),
		slog.Int("batches", report.CheckedBatches),
		slog.Int("drifts", len(report.RequestDrifts)+len(report.BatchDrifts)))
	return report, nil
}

type listIDsFunc func(ctx context.Context, afterID string, limit int) ([]string, error)

func (s *reconciliationService) eachPage(ctx context.Context, list listIDsFunc, fn func(ids []string) error) error {
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids, err := list(ctx, after, s.pageSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := fn(ids); err != nil {
			return err
		}
		if len(ids) < s.pageSize {
			return nil
		}
		after = ids[len(ids)-1]
	}
}

func (s *reconciliationService) verifyRequests(ctx context.Context, ids []string) ([]dto.RequestStateReport, error) {
	var (
		mu     sync.Mutex
		drifts []dto.RequestStateReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, id := range ids {
		g.Go(func() error {
			r, err := s.transfers.VerifyRequestState(gctx, id)
			if err != nil {
				return err
			}
			if !r.Consistent() {
				mu.Lock()
				drifts = append(drifts, *r)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortReports(drifts, func(r dto.RequestStateReport) string { return r.RequestID })
	return drifts, nil
}

func (s *reconciliationService) verifyBatches(ctx context.Context, ids []string) ([]dto.BatchStateReport, error) {
	var (
		mu     sync.Mutex
		drifts []dto.BatchStateReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, id := range ids {
		g.Go(func() error {
			// the batch lock keeps member folds out while the members are read
			return s.inTx(gctx, func(ctx context.Context, tx portsrepo.Store) error {
				batch, err := tx.FindBatchForUpdate(ctx, id)
				if err != nil {
					return err
				}
				members, err := tx.ListRequestsByBatch(ctx, id)
				if err != nil {
					return err
				}
				states := make([]domain.TransferState, 0, len(members))
				for _, m := range members {
					states = append(states, m.State)
				}
				if folded := domain.FoldBatchState(states); folded != batch.State {
					mu.Lock()
					drifts = append(drifts, dto.BatchStateReport{BatchID: id, StoredState: batch.State, FoldedState: folded})
					mu.Unlock()
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortReports(drifts, func(r dto.BatchStateReport) string { return r.BatchID })
	return drifts, nil
}

func sortReports[T any](reports []T, key func(T) string) {
	slices.SortFunc(reports, func(a, b T) int { return strings.Compare(key(a), key(b)) })
}
