package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
)

type executeRechargeRequest struct {
	Mobile   string          `json:"mobile"`
	Operator string          `json:"operator"`
	Amount   decimal.Decimal `json:"amount"`
	PlanID   string          `json:"planId"`
}

// ExecuteRecharge tops up a mobile number directly, outside the settlement flow.
func (h *Handlers) ExecuteRecharge(w http.ResponseWriter, r *http.Request) {
	var req executeRechargeRequest
	if err := rest.DecodeJSON(r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	result, err := h.recharges.Execute(r.Context(), services.ExecuteRechargeCommand{
		Mobile:   req.Mobile,
		Operator: req.Operator,
		Amount:   req.Amount,
		PlanID:   req.PlanID,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rechargeStatusResponse{
		Success:  true,
		Recharge: rest.ToRechargeResultView(result),
	})
}
