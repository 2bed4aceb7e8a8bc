package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// OrderReconciler resolves one transaction against the gateway.
type OrderReconciler interface {
	ReconcileOrder(ctx context.Context, tx *domain.Transaction, source string) (*domain.Transaction, error)
}

// Reconciler periodically re-checks pending orders whose gateway callback
// never arrived.
type Reconciler struct {
	store      domain.TransactionStore
	service    OrderReconciler
	interval   time.Duration
	batchSize  int
	staleAfter time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewReconciler(
	store domain.TransactionStore,
	service OrderReconciler,
	interval time.Duration,
	batchSize int,
	staleAfter time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		store:      store,
		service:    service,
		interval:   interval,
		batchSize:  batchSize,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting background reconciler",
		"interval", r.interval,
		"batch_size", r.batchSize,
		"stale_after", r.staleAfter,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping background reconciler")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle and reports how many
// transactions changed status.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	return r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) int {
	stale, err := r.store.ListStale(ctx, r.now().Add(-r.staleAfter), r.batchSize)
	if err != nil {
		r.logger.Error("failed to list stale transactions", "error", err)
		return 0
	}

	if len(stale) == 0 {
		return 0
	}

	r.logger.Info("reconciling stale orders", "count", len(stale))

	changed := 0
	for _, tx := range stale {
		if ctx.Err() != nil {
			return changed
		}

		updated, err := r.service.ReconcileOrder(ctx, tx, services.SourceReconciler)
		if err != nil {
			r.logger.Error("reconciliation failed for order", "order_id", tx.OrderID, "error", err)
			continue
		}
		if updated.Status != tx.Status {
			changed++
			r.logger.Info("reconciled order", "order_id", tx.OrderID, "new_status", updated.Status)
		}
	}
	return changed
}
