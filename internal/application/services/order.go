package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/metrics"
)

type OrderResult struct {
	OrderID          string
	PaymentSessionID string
	// Replayed is true when an earlier request with the same key already
	// produced this session.
	Replayed bool
}

type OrderService struct {
	ledger   *Ledger
	gateway  application.PaymentGateway
	locker   application.Locker
	currency string
	logger   *slog.Logger
}

func NewOrderService(
	ledger *Ledger,
	gateway application.PaymentGateway,
	locker application.Locker,
	currency string,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		ledger:   ledger,
		gateway:  gateway,
		locker:   locker,
		currency: currency,
		logger:   logger,
	}
}

// CreateOrder records a pending transaction and opens a checkout session
// for it upstream. The record is written before the gateway is called so a
// lost response can still be reconciled by order id.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*OrderResult, error) {
	amount, err := domain.ParseAmount(cmd.Amount)
	if err != nil {
		return nil, toServiceError(err, "")
	}
	method, err := domain.ParsePaymentMethod(cmd.Method)
	if err != nil {
		return nil, toServiceError(err, "")
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID != "" {
		if err := domain.ValidateOrderID(orderID); err != nil {
			return nil, toServiceError(err, "")
		}
	}
	recharge, err := cmd.Recharge.toDomain()
	if err != nil {
		return nil, toServiceError(err, "")
	}
	key := strings.TrimSpace(cmd.IdempotencyKey)

	if key != "" {
		result, existing, err := s.replay(ctx, key)
		if err != nil || result != nil {
			return result, err
		}

		release, acquired, err := s.locker.Acquire(ctx, "create-order:"+key)
		switch {
		case err != nil:
			s.logger.Warn("idempotency lock unavailable, relying on store constraints",
				"idempotency_key", key,
				"error", err,
			)
		case !acquired:
			result, _, err := s.replay(ctx, key)
			if err != nil || result != nil {
				return result, err
			}
			return nil, application.NewRequestInProgressError()
		default:
			defer release(context.WithoutCancel(ctx))
			// The holder before us may have finished in the meantime.
			result, existing, err = s.replay(ctx, key)
			if err != nil || result != nil {
				return result, err
			}
		}

		if existing != nil {
			orderID = existing.OrderID
		}
	}

	if orderID == "" {
		orderID = domain.NewOrderID(s.ledger.now())
	}

	tx, err := domain.NewTransaction(uuid.NewString(), orderID, amount, s.currency, method)
	if err != nil {
		return nil, toServiceError(err, "")
	}
	tx.IdempotencyKey = key
	tx.Customer = cmd.Customer
	tx.Description = cmd.Description
	tx.Recharge = recharge

	stored, created, err := s.ledger.store.Create(ctx, tx)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
			return nil, application.NewRequestInProgressError()
		}
		return nil, toServiceError(err, orderID)
	}

	if !created {
		if err := checkReusable(stored, amount); err != nil {
			return nil, err
		}
		if session := stored.SessionID(); session != "" {
			return &OrderResult{OrderID: stored.OrderID, PaymentSessionID: session, Replayed: true}, nil
		}
	}

	return s.openSession(ctx, stored)
}

func (s *OrderService) openSession(ctx context.Context, tx *domain.Transaction) (*OrderResult, error) {
	logger := s.logger.With("order_id", tx.OrderID)

	resp, err := s.gateway.CreateOrder(ctx, application.GatewayOrderRequest{
		OrderID:      tx.OrderID,
		Amount:       tx.Amount,
		Currency:     tx.Currency,
		CustomerID:   customerID(tx),
		Customer:     tx.Customer,
		MethodFilter: tx.PaymentMethod.GatewayCode(),
		Note:         tx.Description,
	})
	if err != nil {
		logger.Error("gateway order creation failed", "error", err)
		if errors.Is(err, application.ErrInvalidGatewayResponse) {
			return nil, application.NewInvalidGatewayResponseError(err)
		}
		return nil, application.NewGatewayUnavailableError(err)
	}

	_, err = s.ledger.Transition(ctx, tx.OrderID, domain.TransactionPatch{
		GatewayOrderID: domain.Ptr(resp.GatewayOrderID),
		GatewayStatus:  domain.Ptr(resp.OrderStatus),
		Details:        map[string]any{domain.DetailSession: resp.SessionID},
	}, SourceCreateOrder)
	if err != nil {
		logger.Error("failed to record payment session", "error", err)
		return nil, toServiceError(err, tx.OrderID)
	}

	logger.Info("payment session created", "method", tx.PaymentMethod)
	return &OrderResult{OrderID: tx.OrderID, PaymentSessionID: resp.SessionID}, nil
}

// replay returns a finished result for key when one exists, or the pending
// record the key already points at.
func (s *OrderService) replay(ctx context.Context, key string) (*OrderResult, *domain.Transaction, error) {
	existing, err := s.ledger.store.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil, nil
		}
		return nil, nil, toServiceError(err, key)
	}
	if session := existing.SessionID(); session != "" {
		s.logger.Info("replaying idempotent create-order", "order_id", existing.OrderID)
		return &OrderResult{OrderID: existing.OrderID, PaymentSessionID: session, Replayed: true}, existing, nil
	}
	return nil, existing, nil
}

// checkReusable rejects an order id that already belongs to a different or
// finished payment.
func checkReusable(stored *domain.Transaction, amount decimal.Decimal) error {
	if stored.Status != domain.StatusPending {
		return application.NewValidationError("orderId is already used by a completed transaction", nil)
	}
	if !stored.Amount.Equal(amount) {
		return application.NewValidationError("orderId is already used with a different amount", nil)
	}
	return nil
}

func customerID(tx *domain.Transaction) string {
	return "cust_" + strings.ReplaceAll(tx.ID, "-", "")[:16]
}

// Initiate records a pending transaction without contacting the gateway.
// It starts the settlement flow and returns the internal transaction id.
func (s *OrderService) Initiate(ctx context.Context, cmd InitiateCommand) (*domain.Transaction, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("name"), "")
	}
	if strings.TrimSpace(cmd.PaymentMethod) == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("paymentMethod"), "")
	}
	amount, err := domain.ParseAmount(cmd.Amount)
	if err != nil {
		return nil, toServiceError(err, "")
	}
	method, err := domain.ParsePaymentMethod(cmd.PaymentMethod)
	if err != nil {
		return nil, toServiceError(err, "")
	}
	recharge, err := cmd.Recharge.toDomain()
	if err != nil {
		return nil, toServiceError(err, "")
	}

	tx, err := domain.NewTransaction(uuid.NewString(), domain.NewOrderID(s.ledger.now()), amount, s.currency, method)
	if err != nil {
		return nil, toServiceError(err, "")
	}
	tx.Customer = domain.Customer{Name: name}
	tx.Recharge = recharge

	stored, _, err := s.ledger.store.Create(ctx, tx)
	if err != nil {
		return nil, toServiceError(err, tx.OrderID)
	}

	s.ledger.metrics.ObserveTransition(string(domain.StatusPending), SourceInitiate, metrics.ResultApplied)
	s.logger.Info("payment initiated",
		"transaction_id", stored.ID,
		"order_id", stored.OrderID,
		"recharge", stored.HasRecharge(),
	)
	return stored, nil
}
