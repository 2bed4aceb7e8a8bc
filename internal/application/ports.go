package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// PaymentGateway is the port for the external payment gateway.
type PaymentGateway interface {
	// CreateOrder registers an order upstream and returns the checkout session.
	// Implementations must not retry: a repeated call may create a second order.
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrderResponse, error)

	// FetchOrder reads the upstream order state. Safe to retry.
	FetchOrder(ctx context.Context, orderID string) (*GatewayOrder, error)

	ParseWebhookEvent(raw []byte) (*WebhookEvent, error)
	VerifyWebhookSignature(raw []byte, timestamp, signature string) error
}

// ErrInvalidGatewayResponse marks a 2xx gateway answer that lacks required
// fields. Gateway clients wrap it.
var ErrInvalidGatewayResponse = errors.New("invalid gateway response")

type GatewayOrderRequest struct {
	OrderID      string
	Amount       decimal.Decimal
	Currency     string
	CustomerID   string
	Customer     domain.Customer
	MethodFilter string
	Note         string
}

type GatewayOrderResponse struct {
	SessionID      string
	GatewayOrderID string
	OrderStatus    string
}

// Upstream order states.
const (
	GatewayOrderActive     = "ACTIVE"
	GatewayOrderPaid       = "PAID"
	GatewayOrderExpired    = "EXPIRED"
	GatewayOrderTerminated = "TERMINATED"
)

type GatewayOrder struct {
	OrderID        string
	GatewayOrderID string
	Status         string
}

type WebhookEventType string

const (
	EventPaymentSuccess     WebhookEventType = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed      WebhookEventType = "PAYMENT_FAILED_WEBHOOK"
	EventPaymentUserDropped WebhookEventType = "PAYMENT_USER_DROPPED_WEBHOOK"
)

// WebhookEvent is the gateway-neutral view of an asynchronous payment callback.
type WebhookEvent struct {
	Type      WebhookEventType
	OrderID   string
	Status    string
	PaymentID string
	Message   string
	Raw       []byte
}

// RechargeService performs the mobile-recharge side effect after settlement.
type RechargeService interface {
	Execute(ctx context.Context, req RechargeRequest) (*domain.RechargeResult, error)
	Status(ctx context.Context, rechargeID string) (*domain.RechargeResult, error)
}

type RechargeRequest struct {
	Mobile   string
	Operator string
	Amount   decimal.Decimal
	PlanID   string
}

// Locker serialises work on a key across processes.
type Locker interface {
	// Acquire returns acquired=false without error when someone else holds the key.
	Acquire(ctx context.Context, key string) (release func(context.Context), acquired bool, err error)
}

// EventPublisher announces applied status transitions to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, event TransactionEvent) error
}

type TransactionEvent struct {
	TransactionID string        `json:"transactionId"`
	OrderID       string        `json:"orderId"`
	Status        domain.Status `json:"status"`
	Amount        string        `json:"amount"`
	Source        string        `json:"source"`
	OccurredAt    time.Time     `json:"occurredAt"`
}
