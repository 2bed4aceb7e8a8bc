package testhelpers

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/mocks"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/metrics"
)

// Harness wires the services against an in-memory store and mocked ports.
type Harness struct {
	Store     *memory.TransactionStore
	Gateway   *mocks.MockPaymentGateway
	Recharge  *mocks.MockRechargeService
	Locker    *mocks.MockLocker
	Publisher *mocks.MockEventPublisher
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Ledger    *services.Ledger
}

func NewHarness(t *testing.T) *Harness {
	t.Helper()
	reg := prometheus.NewRegistry()
	h := &Harness{
		Store:     memory.NewTransactionStore(),
		Gateway:   mocks.NewMockPaymentGateway(t),
		Recharge:  mocks.NewMockRechargeService(t),
		Locker:    mocks.NewMockLocker(t),
		Publisher: mocks.NewMockEventPublisher(t),
		Registry:  reg,
		Metrics:   metrics.New(reg),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.Publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	h.Ledger = services.NewLedger(h.Store, h.Publisher, h.Metrics, h.Logger)
	return h
}

// PublishedStatuses lists the statuses of every published event in order.
func (h *Harness) PublishedStatuses() []domain.Status {
	var out []domain.Status
	for _, call := range h.Publisher.Calls {
		if call.Method != "Publish" {
			continue
		}
		out = append(out, call.Arguments.Get(1).(application.TransactionEvent).Status)
	}
	return out
}

// SeedPending stores a pending transaction, optionally with a session.
func (h *Harness) SeedPending(t *testing.T, orderID, session string) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(uuid.NewString(), orderID, decimal.RequireFromString("100.00"), "INR", domain.MethodUPI)
	require.NoError(t, err)
	if session != "" {
		tx.PaymentDetails[domain.DetailSession] = session
	}
	stored, created, err := h.Store.Create(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, created)
	return stored
}

// SeedWithStatus stores a transaction and walks it to status through the store.
func (h *Harness) SeedWithStatus(t *testing.T, orderID string, status domain.Status) *domain.Transaction {
	t.Helper()
	tx := h.SeedPending(t, orderID, "session_"+orderID)
	if status == domain.StatusPending {
		return tx
	}
	updated, err := h.Store.Update(context.Background(), orderID, domain.TransactionPatch{Status: domain.Ptr(status)})
	require.NoError(t, err)
	return updated
}

// SeedRecharge stores a pending transaction that carries recharge metadata.
func (h *Harness) SeedRecharge(t *testing.T, orderID string) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(uuid.NewString(), orderID, decimal.RequireFromString("239.00"), "INR", domain.MethodUPI)
	require.NoError(t, err)
	tx.Recharge = &domain.Recharge{Mobile: "9876543210", Operator: "Jio", PlanID: "JIO239"}
	stored, _, err := h.Store.Create(context.Background(), tx)
	require.NoError(t, err)
	return stored
}

// DefaultCreateOrderCommand returns a valid create-order command.
func DefaultCreateOrderCommand() services.CreateOrderCommand {
	return services.CreateOrderCommand{
		Amount:   decimal.RequireFromString("100.00"),
		Method:   "upi",
		Customer: domain.Customer{Name: "Asha", Email: "asha@example.com"},
	}
}
