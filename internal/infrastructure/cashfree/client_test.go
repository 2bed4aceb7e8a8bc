package cashfree

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(config.GatewayConfig{
		Environment:            "TEST",
		Test:                   config.GatewayCredentials{ClientID: "app-id", ClientSecret: "secret"},
		BaseURL:                baseURL,
		APIVersion:             "2023-08-01",
		Timeout:                2 * time.Second,
		Currency:               "INR",
		ReturnURL:              "http://localhost:8080/payment/verify?order_id={order_id}",
		VerifyWebhookSignature: true,
	}, config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 3}, nil)
}

func TestCreateOrder_SendsCashfreeRequest(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "app-id", r.Header.Get("x-client-id"))
		assert.Equal(t, "secret", r.Header.Get("x-client-secret"))
		assert.Equal(t, "2023-08-01", r.Header.Get("x-api-version"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"cf_order_id": 2149460581, "order_id": "ORD_1", "order_status": "ACTIVE", "payment_session_id": "session_abc"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{
		OrderID:      "ORD_1",
		Amount:       decimal.RequireFromString("100.5"),
		Currency:     "INR",
		CustomerID:   "cust_1",
		Customer:     domain.Customer{Name: "Asha"},
		MethodFilter: "upi",
	})

	require.NoError(t, err)
	assert.Equal(t, "session_abc", resp.SessionID)
	assert.Equal(t, "2149460581", resp.GatewayOrderID)
	assert.Equal(t, "ACTIVE", resp.OrderStatus)

	assert.Equal(t, "ORD_1", captured["order_id"])
	assert.Equal(t, 100.5, captured["order_amount"])
	assert.Equal(t, "INR", captured["order_currency"])

	customer := captured["customer_details"].(map[string]any)
	assert.Equal(t, placeholderPhone, customer["customer_phone"])
	assert.Equal(t, "cust_1", customer["customer_id"])

	meta := captured["order_meta"].(map[string]any)
	assert.Equal(t, "upi", meta["payment_methods"])
	assert.Contains(t, meta["return_url"], "{order_id}")
}

func TestCreateOrder_MissingSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cf_order_id": "1", "order_status": "ACTIVE"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).CreateOrder(context.Background(), application.GatewayOrderRequest{
		OrderID: "ORD_1", Amount: decimal.NewFromInt(10), Currency: "INR",
	})

	assert.ErrorIs(t, err, ErrMissingSession)
}

func TestCreateOrder_IsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message": "try later", "code": "service_unavailable", "type": "api_error"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).CreateOrder(context.Background(), application.GatewayOrderRequest{
		OrderID: "ORD_1", Amount: decimal.NewFromInt(10), Currency: "INR",
	})

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.Equal(t, "service_unavailable", gwErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateOrder_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream down`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).CreateOrder(context.Background(), application.GatewayOrderRequest{
		OrderID: "ORD_1", Amount: decimal.NewFromInt(10), Currency: "INR",
	})

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, "unexpected_response", gwErr.Code)
	assert.Equal(t, "upstream down", gwErr.Message)
}

func TestCreateOrder_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.timeout = 50 * time.Millisecond

	_, err := client.CreateOrder(context.Background(), application.GatewayOrderRequest{
		OrderID: "ORD_1", Amount: decimal.NewFromInt(10), Currency: "INR",
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchOrder_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/orders/ORD_9", r.URL.Path)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message": "boom", "code": "internal_error"}`))
			return
		}
		_, _ = w.Write([]byte(`{"cf_order_id": "77", "order_id": "ORD_9", "order_status": "PAID"}`))
	}))
	defer server.Close()

	order, err := newTestClient(t, server.URL).FetchOrder(context.Background(), "ORD_9")

	require.NoError(t, err)
	assert.Equal(t, application.GatewayOrderPaid, order.Status)
	assert.Equal(t, "77", order.GatewayOrderID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchOrder_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "order not found", "code": "order_not_found", "type": "invalid_request_error"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchOrder(context.Background(), "missing")

	gwErr, ok := IsGatewayError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, gwErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchOrder_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "slow down", "code": "rate_limit"}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchOrder(context.Background(), "ORD_1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}
