// Package cashfree is the Cashfree Payment Gateway client.
package cashfree

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/metrics"
)

// Cashfree rejects orders without a customer phone.
const placeholderPhone = "9999999999"

type Client struct {
	baseURL      string
	apiVersion   string
	clientID     string
	clientSecret string
	returnURL    string
	notifyURL    string
	timeout      time.Duration
	verifySig    bool
	retry        retryPolicy
	httpClient   *http.Client
	metrics      *metrics.Metrics
}

// NewClient builds a client for the environment selected in cfg.
func NewClient(cfg config.GatewayConfig, retryCfg config.RetryConfig, m *metrics.Metrics) *Client {
	creds := cfg.Credentials()
	return &Client{
		baseURL:      cfg.ResolvedBaseURL(),
		apiVersion:   cfg.APIVersion,
		clientID:     creds.ClientID,
		clientSecret: creds.ClientSecret,
		returnURL:    cfg.ReturnURL,
		notifyURL:    cfg.NotifyURL,
		timeout:      cfg.Timeout,
		verifySig:    cfg.VerifyWebhookSignature,
		retry:        newRetryPolicy(retryCfg),
		httpClient:   &http.Client{},
		metrics:      m,
	}
}

var _ application.PaymentGateway = (*Client)(nil)

// CreateOrder is bounded by the configured timeout and never retried.
func (c *Client) CreateOrder(ctx context.Context, req application.GatewayOrderRequest) (*application.GatewayOrderResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	phone := req.Customer.Phone
	if phone == "" {
		phone = placeholderPhone
	}

	body := CreateOrderRequest{
		OrderID:       req.OrderID,
		OrderAmount:   Amount(req.Amount),
		OrderCurrency: req.Currency,
		CustomerDetails: CustomerDetails{
			CustomerID:    req.CustomerID,
			CustomerPhone: phone,
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
		},
		OrderMeta: OrderMeta{
			ReturnURL:      c.returnURL,
			NotifyURL:      c.notifyURL,
			PaymentMethods: req.MethodFilter,
		},
		OrderNote: req.Note,
	}

	start := time.Now()
	resp, err := sendRequest[CreateOrderRequest, OrderResponse](ctx, c, http.MethodPost, c.baseURL+"/orders", &body)
	c.metrics.ObserveGatewayCall("create_order", err, time.Since(start))
	if err != nil {
		return nil, err
	}

	if resp.PaymentSessionID == "" {
		return nil, ErrMissingSession
	}

	return &application.GatewayOrderResponse{
		SessionID:      resp.PaymentSessionID,
		GatewayOrderID: string(resp.CFOrderID),
		OrderStatus:    resp.OrderStatus,
	}, nil
}

// FetchOrder reads the order state, retrying transient failures.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*application.GatewayOrder, error) {
	endpoint := fmt.Sprintf("%s/orders/%s", c.baseURL, url.PathEscape(orderID))

	resp, err := retry(ctx, c.retry, func(ctx context.Context) (*OrderResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		resp, err := sendRequest[any, OrderResponse](ctx, c, http.MethodGet, endpoint, nil)
		c.metrics.ObserveGatewayCall("fetch_order", err, time.Since(start))
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return &application.GatewayOrder{
		OrderID:        resp.OrderID,
		GatewayOrderID: string(resp.CFOrderID),
		Status:         resp.OrderStatus,
	}, nil
}

func sendRequest[Req any, Resp any](ctx context.Context, c *Client, method, endpoint string, reqBody *Req) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("x-api-version", c.apiVersion)
	httpReq.Header.Set("x-client-id", c.clientID)
	httpReq.Header.Set("x-client-secret", c.clientSecret)
	httpReq.Header.Set("x-request-id", uuid.NewString())
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
			return nil, &GatewayError{
				Code:       "unexpected_response",
				Message:    string(body),
				StatusCode: resp.StatusCode,
			}
		}
		return nil, &GatewayError{
			Code:       errResp.Code,
			Type:       errResp.Type,
			Message:    errResp.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var out Resp
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &out, nil
}
