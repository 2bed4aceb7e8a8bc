package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
)

type receiptResponse struct {
	Success bool             `json:"success"`
	Receipt rest.ReceiptView `json:"receipt"`
}

type rechargeStatusResponse struct {
	Success  bool                     `json:"success"`
	Recharge *rest.RechargeResultView `json:"recharge"`
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	tx, err := h.query.FindByAnyID(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, transactionResponse{
		Success:     true,
		Transaction: rest.ToTransactionView(tx),
	})
}

// GetReceipt answers with JSON, or with a PDF document when format=pdf.
func (h *Handlers) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	format, err := queryParam(r, "format")
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	tx, err := h.query.FindByAnyID(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	receipt := rest.ToReceiptView(tx)

	if !strings.EqualFold(format, "pdf") {
		rest.WriteJSON(w, http.StatusOK, receiptResponse{Success: true, Receipt: receipt})
		return
	}

	var buf bytes.Buffer
	if err := renderReceiptPDF(&buf, receipt, tx.Currency); err != nil {
		rest.WriteError(w, application.NewInternalError(fmt.Errorf("render receipt: %w", err)), h.logger)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%s.pdf"`, receipt.TransactionID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) GetRechargeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	result, err := h.query.RechargeStatus(r.Context(), id)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rechargeStatusResponse{
		Success:  true,
		Recharge: rest.ToRechargeResultView(result),
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.query.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		rest.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Store: "down"})
		return
	}
	rest.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: "up"})
}
