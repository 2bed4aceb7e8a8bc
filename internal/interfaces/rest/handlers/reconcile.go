package handlers

import (
	"io"
	"net/http"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/interfaces/rest"
)

const (
	webhookSignatureHeader = "x-webhook-signature"
	webhookTimestampHeader = "x-webhook-timestamp"
	maxWebhookBytes        = 1 << 20
)

type webhookAck struct {
	Status string `json:"status"`
}

type transactionResponse struct {
	Success     bool                 `json:"success"`
	Transaction rest.TransactionView `json:"transaction"`
}

// Webhook receives gateway payment callbacks. The raw body is kept intact for
// signature verification.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		rest.WriteError(w, application.NewValidationError("Unable to read webhook body", err), h.logger)
		return
	}

	outcome, err := h.reconciliation.HandleWebhook(r.Context(), raw,
		r.Header.Get(webhookTimestampHeader),
		r.Header.Get(webhookSignatureHeader),
	)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	h.logger.Debug("webhook acknowledged", "outcome", outcome)
	rest.WriteJSON(w, http.StatusOK, webhookAck{Status: "OK"})
}

// Redirect handles the browser return from checkout.
func (h *Handlers) Redirect(w http.ResponseWriter, r *http.Request) {
	orderID, err := queryParam(r, "order_id")
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	tx, err := h.reconciliation.HandleRedirect(r.Context(), orderID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, transactionResponse{
		Success:     true,
		Transaction: rest.ToTransactionView(tx),
	})
}
