package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/ledgerflow/internal/core/domain"
	portsrepo "github.com/SscSPs/ledgerflow/internal/core/ports/repositories"
	"github.com/SscSPs/ledgerflow/internal/platform/logging"
)

// ServiceOption configures the services built by NewServiceContainer and the New*Service constructors.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock               func() time.Time
	remittanceKeyScheme domain.RemittanceKeyScheme
	reconcileWorkers    int
	reconcilePageSize   int
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(clock func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithRemittanceKeyScheme sets the deployment's remittance key scheme.
func WithRemittanceKeyScheme(scheme domain.RemittanceKeyScheme) ServiceOption {
	return func(o *serviceOptions) {
		if scheme.IsValid() {
			o.remittanceKeyScheme = scheme
		}
	}
}

// WithReconcileConcurrency bounds the number of rows a reconciliation pass checks in parallel
// and the page size it reads IDs with.
func WithReconcileConcurrency(workers, pageSize int) ServiceOption {
	return func(o *serviceOptions) {
		if workers > 0 {
			o.reconcileWorkers = workers
		}
		if pageSize > 0 {
			o.reconcilePageSize = pageSize
		}
	}
}

func newServiceOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{
		clock:               func() time.Time { return time.Now().UTC() },
		remittanceKeyScheme: domain.RemittanceKeyCreditSystem,
		reconcileWorkers:    8,
		reconcilePageSize:   200,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// BaseService provides common functionality for all services
type BaseService struct {
	store portsrepo.Store
	now   func() time.Time
}

func newBaseService(store portsrepo.Store, o serviceOptions) BaseService {
	return BaseService{store: store, now: o.clock}
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogWarn logs a warning with consistent formatting
func (s *BaseService) LogWarn(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Warn(msg, keyvals...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

type txKey struct{}

// inTx runs fn inside the transaction carried by ctx, or starts one. The
// transaction-scoped store is put on the context handed to fn, so services
// called from fn join the same transaction.
func (s *BaseService) inTx(ctx context.Context, fn portsrepo.TxFunc) error {
	if tx, ok := ctx.Value(txKey{}).(portsrepo.Store); ok {
		return fn(ctx, tx)
	}
	return s.store.RunInTransaction(ctx, func(ctx context.Context, tx portsrepo.Store) error {
		return fn(context.WithValue(ctx, txKey{}, tx), tx)
	})
}

// reader returns the transaction-scoped store when ctx carries one, the root store otherwise.
func (s *BaseService) reader(ctx context.Context) portsrepo.Store {
	if tx, ok := ctx.Value(txKey{}).(portsrepo.Store); ok {
		return tx
	}
	return s.store
}
