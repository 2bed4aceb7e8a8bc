package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
)

type settlementRequest struct {
	TransactionID string `json:"transactionId"`
}

type settlementResponse struct {
	Success        bool                     `json:"success"`
	TransactionID  string                   `json:"transactionId"`
	OrderID        string                   `json:"orderId"`
	Status         string                   `json:"status"`
	SettlementTime time.Time                `json:"settlementTime"`
	Message        string                   `json:"message"`
	Recharge       *rest.RechargeResultView `json:"recharge"`
}

func (h *Handlers) Settle(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	result, err := h.settlement.Settle(r.Context(), req.TransactionID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, settlementResponse{
		Success:        true,
		TransactionID:  strings.TrimSpace(req.TransactionID),
		OrderID:        result.Transaction.OrderID,
		Status:         string(result.Transaction.Status),
		SettlementTime: result.SettledAt,
		Message:        "Bank settlement completed successfully",
		Recharge:       rest.ToRechargeResultView(result.Recharge),
	})
}
