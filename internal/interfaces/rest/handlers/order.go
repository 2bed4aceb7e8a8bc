package handlers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
)

const idempotencyKeyHeader = "Idempotency-Key"

type rechargeRequest struct {
	Mobile   string `json:"mobile"`
	Operator string `json:"operator"`
	PlanID   string `json:"planId"`
}

type createOrderRequest struct {
	// Amount accepts a JSON number or a numeric string.
	Amount         decimal.Decimal  `json:"amount"`
	Method         string           `json:"method"`
	OrderID        string           `json:"orderId"`
	IdempotencyKey string           `json:"idempotencyKey"`
	CustomerName   string           `json:"customerName"`
	CustomerPhone  string           `json:"customerPhone"`
	CustomerEmail  string           `json:"customerEmail"`
	Description    string           `json:"description"`
	Recharge       *rechargeRequest `json:"recharge"`
}

type createOrderResponse struct {
	Success          bool   `json:"success"`
	OrderID          string `json:"orderId"`
	PaymentSessionID string `json:"paymentSessionId"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	}

	result, err := h.orders.CreateOrder(r.Context(), services.CreateOrderCommand{
		Amount:         req.Amount,
		Method:         req.Method,
		OrderID:        strings.TrimSpace(req.OrderID),
		IdempotencyKey: key,
		Customer: domain.Customer{
			Name:  req.CustomerName,
			Phone: req.CustomerPhone,
			Email: req.CustomerEmail,
		},
		Description: req.Description,
		Recharge:    req.Recharge.toCommand(),
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, createOrderResponse{
		Success:          true,
		OrderID:          result.OrderID,
		PaymentSessionID: result.PaymentSessionID,
	})
}

type initiateRequest struct {
	Name          string          `json:"name"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Mobile        string          `json:"mobile"`
	Operator      string          `json:"operator"`
	PlanID        string          `json:"planId"`
}

type initiateResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	Message       string `json:"message"`
}

// InitiatePayment records a pending payment without opening a checkout
// session. Settlement picks it up later.
func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	tx, err := h.orders.Initiate(r.Context(), services.InitiateCommand{
		Name:          req.Name,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Recharge: &services.RechargeDetails{
			Mobile:   req.Mobile,
			Operator: req.Operator,
			PlanID:   req.PlanID,
		},
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, initiateResponse{
		Success:       true,
		TransactionID: tx.ID,
		OrderID:       tx.OrderID,
		Message:       "Payment initiated successfully",
	})
}

func (r *rechargeRequest) toCommand() *services.RechargeDetails {
	if r == nil {
		return nil
	}
	return &services.RechargeDetails{
		Mobile:   r.Mobile,
		Operator: r.Operator,
		PlanID:   r.PlanID,
	}
}
