package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
)

type verifyManualRequest struct {
	OrderID       string           `json:"orderId"`
	TransactionID string           `json:"transactionId"`
	Amount        *decimal.Decimal `json:"amount"`
}

type verifyManualResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

func (h *Handlers) VerifyManual(w http.ResponseWriter, r *http.Request) {
	var req verifyManualRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	tx, err := h.verification.VerifyManual(r.Context(), services.VerifyManualCommand{
		OrderID: req.OrderID,
		UTR:     req.TransactionID,
		Amount:  req.Amount,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, verifyManualResponse{
		Success: true,
		Message: "Payment submitted for verification",
		OrderID: tx.OrderID,
	})
}
