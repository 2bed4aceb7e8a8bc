// Package mocks holds testify mocks for the application ports.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

type MockPaymentGateway struct {
	mock.Mock
}

func NewMockPaymentGateway(t mock.TestingT) *MockPaymentGateway {
	m := &MockPaymentGateway{}
	m.Test(t)
	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(func() { m.AssertExpectations(t) })
	}
	return m
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*application.GatewayOrderResponse)
	return resp, args.Error(1)
}

func (m *MockPaymentGateway) FetchOrder(ctx context.Context, orderID string) (*application.GatewayOrder, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*application.GatewayOrder)
	return order, args.Error(1)
}

func (m *MockPaymentGateway) ParseWebhookEvent(raw []byte) (*application.WebhookEvent, error) {
	args := m.Called(raw)
	event, _ := args.Get(0).(*application.WebhookEvent)
	return event, args.Error(1)
}

func (m *MockPaymentGateway) VerifyWebhookSignature(raw []byte, timestamp, signature string) error {
	return m.Called(raw, timestamp, signature).Error(0)
}

type MockRechargeService struct {
	mock.Mock
}

func NewMockRechargeService(t mock.TestingT) *MockRechargeService {
	m := &MockRechargeService{}
	m.Test(t)
	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(func() { m.AssertExpectations(t) })
	}
	return m
}

func (m *MockRechargeService) Execute(ctx context.Context, req application.RechargeRequest) (*domain.RechargeResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*domain.RechargeResult)
	return result, args.Error(1)
}

func (m *MockRechargeService) Status(ctx context.Context, rechargeID string) (*domain.RechargeResult, error) {
	args := m.Called(ctx, rechargeID)
	result, _ := args.Get(0).(*domain.RechargeResult)
	return result, args.Error(1)
}

type MockLocker struct {
	mock.Mock

	mu       sync.Mutex
	released []string
}

func NewMockLocker(t mock.TestingT) *MockLocker {
	m := &MockLocker{}
	m.Test(t)
	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(func() { m.AssertExpectations(t) })
	}
	return m
}

// Acquire returns a release func that records key in Released.
func (m *MockLocker) Acquire(ctx context.Context, key string) (func(context.Context), bool, error) {
	args := m.Called(ctx, key)
	release := func(context.Context) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.released = append(m.released, key)
	}
	return release, args.Bool(0), args.Error(1)
}

func (m *MockLocker) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}

type MockEventPublisher struct {
	mock.Mock
}

func NewMockEventPublisher(t mock.TestingT) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Test(t)
	if c, ok := t.(interface{ Cleanup(func()) }); ok {
		c.Cleanup(func() { m.AssertExpectations(t) })
	}
	return m
}

func (m *MockEventPublisher) Publish(ctx context.Context, event application.TransactionEvent) error {
	return m.Called(ctx, event).Error(0)
}

var (
	_ application.PaymentGateway  = (*MockPaymentGateway)(nil)
	_ application.RechargeService = (*MockRechargeService)(nil)
	_ application.Locker          = (*MockLocker)(nil)
	_ application.EventPublisher  = (*MockEventPublisher)(nil)
)
