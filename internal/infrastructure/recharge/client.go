// Package recharge performs mobile recharges after a payment settles.
package recharge

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

const (
	ModeTest = "test"
	ModeLive = "live"
)

type Client struct {
	mode       string
	baseURL    string
	apiKey     string
	delay      time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewClient(cfg config.RechargeConfig, logger *slog.Logger) *Client {
	return &Client{
		mode:       cfg.Mode,
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		delay:      cfg.SimulatedDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

var _ application.RechargeService = (*Client)(nil)

type rechargeRequest struct {
	Mobile   string `json:"mobile"`
	Operator string `json:"operator"`
	// Amount goes out as a bare number with two decimals.
	Amount json.Number `json:"amount"`
	PlanID string      `json:"planId,omitempty"`
}

type rechargeResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
}

// Execute tops up the given mobile number. A provider that answers with a
// non-success status yields a FAILED result, not an error. Errors are
// reserved for transport and decoding failures.
func (c *Client) Execute(ctx context.Context, req application.RechargeRequest) (*domain.RechargeResult, error) {
	c.logger.Info("executing recharge",
		"mobile", req.Mobile,
		"operator", req.Operator,
		"amount", req.Amount.StringFixed(2),
		"mode", c.mode,
	)

	if c.mode != ModeLive {
		return c.simulate(ctx)
	}

	body, err := json.Marshal(rechargeRequest{
		Mobile:   req.Mobile,
		Operator: req.Operator,
		Amount:   json.Number(req.Amount.StringFixed(2)),
		PlanID:   req.PlanID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal recharge request: %w", err)
	}

	var resp rechargeResponse
	status, err := c.do(ctx, http.MethodPost, c.baseURL+"/recharge", body, &resp)
	if err != nil {
		return nil, err
	}

	if status >= 300 || resp.Status != domain.RechargeSuccess {
		msg := resp.Message
		if msg == "" {
			msg = "Recharge failed"
		}
		return &domain.RechargeResult{Status: domain.RechargeFailed, Message: msg}, nil
	}

	return &domain.RechargeResult{
		Status:        domain.RechargeSuccess,
		TransactionID: resp.TransactionID,
		Message:       "Recharge completed successfully",
	}, nil
}

// Status reports the provider's view of a recharge. In test mode every
// recharge is reported successful.
func (c *Client) Status(ctx context.Context, rechargeID string) (*domain.RechargeResult, error) {
	if c.mode != ModeLive {
		return &domain.RechargeResult{
			Status:        domain.RechargeSuccess,
			TransactionID: rechargeID,
			Message:       "Recharge completed (TEST MODE)",
		}, nil
	}

	var resp rechargeResponse
	status, err := c.do(ctx, http.MethodGet, c.baseURL+"/status/"+url.PathEscape(rechargeID), nil, &resp)
	if err != nil || status >= 300 {
		c.logger.Warn("unable to check recharge status", "recharge_id", rechargeID, "error", err, "status", status)
		return &domain.RechargeResult{
			Status:        domain.RechargeUnknown,
			TransactionID: rechargeID,
			Message:       "Unable to check status",
		}, nil
	}

	return &domain.RechargeResult{
		Status:        resp.Status,
		TransactionID: rechargeID,
		Message:       resp.Message,
	}, nil
}

func (c *Client) simulate(ctx context.Context) (*domain.RechargeResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.delay):
	}

	return &domain.RechargeResult{
		Status:        domain.RechargeSuccess,
		TransactionID: fmt.Sprintf("RCH%d%s", c.now().UnixMilli(), randomSuffix(5)),
		Message:       "Recharge completed successfully (TEST MODE)",
	}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("create recharge request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("recharge api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read recharge response: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode < 300 {
			return resp.StatusCode, fmt.Errorf("decode recharge response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = suffixAlphabet[int(b[i])%len(suffixAlphabet)]
	}
	return string(b)
}
