package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/metrics"
)

// WebhookOutcome describes what a webhook did to the ledger. Every outcome
// is acknowledged to the gateway.
type WebhookOutcome string

const (
	OutcomeApplied   WebhookOutcome = "applied"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeConflict  WebhookOutcome = "conflict_ignored"
	OutcomeUnknown   WebhookOutcome = "unknown_order"
	OutcomeIgnored   WebhookOutcome = "ignored_type"
)

type ReconciliationService struct {
	ledger  *Ledger
	gateway application.PaymentGateway
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewReconciliationService(
	ledger *Ledger,
	gateway application.PaymentGateway,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		ledger:  ledger,
		gateway: gateway,
		metrics: m,
		logger:  logger,
	}
}

// HandleWebhook verifies and applies a gateway callback. Only signature,
// payload and store failures produce an error.
func (s *ReconciliationService) HandleWebhook(ctx context.Context, raw []byte, timestamp, signature string) (WebhookOutcome, error) {
	if err := s.gateway.VerifyWebhookSignature(raw, timestamp, signature); err != nil {
		s.logger.Warn("rejected webhook with invalid signature", "error", err)
		s.metrics.ObserveWebhook("unknown", "invalid_signature")
		return "", application.NewInvalidSignatureError(err)
	}

	event, err := s.gateway.ParseWebhookEvent(raw)
	if err != nil {
		s.metrics.ObserveWebhook("unknown", "malformed")
		return "", application.NewValidationError("Malformed webhook payload", err)
	}

	logger := s.logger.With("order_id", event.OrderID, "event_type", event.Type)

	patch, ok := webhookPatch(event)
	if !ok {
		logger.Info("ignoring webhook event type")
		s.metrics.ObserveWebhook(string(event.Type), string(OutcomeIgnored))
		return OutcomeIgnored, nil
	}

	_, err = s.ledger.Transition(ctx, event.OrderID, patch, SourceWebhook)
	outcome := OutcomeApplied
	switch {
	case err == nil:
		logger.Info("webhook applied", "status", *patch.Status)
	case errors.Is(err, domain.ErrTransactionNotFound):
		outcome = OutcomeUnknown
		logger.Warn("webhook for unknown order")
	case errors.Is(err, domain.ErrInvalidTransition):
		outcome = OutcomeConflict
		if current, ok := currentStatus(err); ok && current == *patch.Status {
			outcome = OutcomeDuplicate
		}
		logger.Warn("webhook transition not applied", "outcome", outcome, "error", err)
	default:
		logger.Error("failed to apply webhook", "error", err)
		s.metrics.ObserveWebhook(string(event.Type), "error")
		return "", application.NewInternalError(err)
	}

	s.metrics.ObserveWebhook(string(event.Type), string(outcome))
	return outcome, nil
}

func webhookPatch(event *application.WebhookEvent) (domain.TransactionPatch, bool) {
	patch := domain.TransactionPatch{
		GatewayPayload: event.Raw,
	}
	if event.Status != "" {
		patch.GatewayStatus = domain.Ptr(event.Status)
	}
	if event.PaymentID != "" {
		patch.GatewayPaymentID = domain.Ptr(event.PaymentID)
	}

	switch event.Type {
	case application.EventPaymentSuccess:
		patch.Status = domain.Ptr(domain.StatusSuccess)
	case application.EventPaymentFailed:
		patch.Status = domain.Ptr(domain.StatusFailed)
		reason := event.Message
		if reason == "" {
			reason = "Payment failed"
		}
		patch.FailureReason = domain.Ptr(reason)
	case application.EventPaymentUserDropped:
		patch.Status = domain.Ptr(domain.StatusCancelled)
	default:
		return domain.TransactionPatch{}, false
	}
	return patch, true
}

// HandleRedirect serves the browser return from checkout. A pending order
// with a session is checked against the gateway first; gateway errors are
// logged and the stored view is returned.
func (s *ReconciliationService) HandleRedirect(ctx context.Context, orderID string) (*domain.Transaction, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("order_id"), "")
	}

	tx, err := s.ledger.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, toServiceError(err, orderID)
	}

	if tx.Status != domain.StatusPending || tx.SessionID() == "" {
		return tx, nil
	}

	reconciled, err := s.ReconcileOrder(ctx, tx, SourceRedirect)
	if err != nil {
		s.logger.Warn("redirect reconciliation failed", "order_id", orderID, "error", err)
		return tx, nil
	}
	return reconciled, nil
}

// ReconcileOrder pulls the order state from the gateway and applies the
// matching transition. Orders still open upstream are left untouched.
func (s *ReconciliationService) ReconcileOrder(ctx context.Context, tx *domain.Transaction, source string) (*domain.Transaction, error) {
	order, err := s.gateway.FetchOrder(ctx, tx.OrderID)
	if err != nil {
		return tx, err
	}

	patch := domain.TransactionPatch{GatewayStatus: domain.Ptr(order.Status)}
	switch order.Status {
	case application.GatewayOrderPaid:
		patch.Status = domain.Ptr(domain.StatusSuccess)
	case application.GatewayOrderExpired:
		patch.Status = domain.Ptr(domain.StatusFailed)
		patch.FailureReason = domain.Ptr("Order expired")
	case application.GatewayOrderTerminated:
		patch.Status = domain.Ptr(domain.StatusCancelled)
	default:
		return tx, nil
	}

	updated, err := s.ledger.Transition(ctx, tx.OrderID, patch, source)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Someone else moved it first; report what is stored now.
			return s.ledger.store.FindByOrderID(ctx, tx.OrderID)
		}
		return tx, err
	}
	return updated, nil
}
