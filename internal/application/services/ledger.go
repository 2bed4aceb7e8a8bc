package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/metrics"
)

// Transition sources, used in logs, metrics and events.
const (
	SourceCreateOrder = "create_order"
	SourceInitiate    = "initiate"
	SourceWebhook     = "webhook"
	SourceRedirect    = "redirect"
	SourceReconciler  = "reconciler"
	SourceManual      = "manual_verification"
	SourceSettlement  = "settlement"
)

// Ledger is the single write path for transaction state. Every status change
// goes through the store's conditional update; applied changes are counted
// and published.
type Ledger struct {
	store     domain.TransactionStore
	publisher application.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewLedger(
	store domain.TransactionStore,
	publisher application.EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) Store() domain.TransactionStore {
	return l.store
}

// Transition applies patch to orderID. Errors from the store are returned
// unchanged so callers can decide whether a rejected transition matters.
func (l *Ledger) Transition(ctx context.Context, orderID string, patch domain.TransactionPatch, source string) (*domain.Transaction, error) {
	tx, err := l.store.Update(ctx, orderID, patch)
	if patch.Status == nil {
		return tx, err
	}

	target := string(*patch.Status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrTransactionNotFound) {
			l.metrics.ObserveTransition(target, source, metrics.ResultRejected)
		}
		return nil, err
	}

	l.metrics.ObserveTransition(target, source, metrics.ResultApplied)
	l.logger.Info("transaction status changed",
		"order_id", orderID,
		"status", tx.Status,
		"source", source,
	)

	event := application.TransactionEvent{
		TransactionID: tx.ID,
		OrderID:       tx.OrderID,
		Status:        tx.Status,
		Amount:        tx.Amount.StringFixed(2),
		Source:        source,
		OccurredAt:    tx.UpdatedAt,
	}
	if err := l.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		l.logger.Warn("failed to publish transaction event",
			"order_id", orderID,
			"status", tx.Status,
			"error", err,
		)
	}

	return tx, nil
}
