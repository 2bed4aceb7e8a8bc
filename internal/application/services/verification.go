package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

type VerificationService struct {
	ledger *Ledger
	logger *slog.Logger
}

func NewVerificationService(ledger *Ledger, logger *slog.Logger) *VerificationService {
	return &VerificationService{ledger: ledger, logger: logger}
}

// VerifyManual records a customer-submitted UTR and parks the transaction in
// pending_verification. It never creates a transaction and never promotes
// one to success.
func (s *VerificationService) VerifyManual(ctx context.Context, cmd VerifyManualCommand) (*domain.Transaction, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	utr := strings.TrimSpace(cmd.UTR)
	if orderID == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("orderId"), "")
	}
	if utr == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("transactionId"), "")
	}

	patch := domain.TransactionPatch{
		Status:                domain.Ptr(domain.StatusPendingVerification),
		VerificationReference: domain.Ptr(utr),
		GatewayPaymentID:      domain.Ptr(utr),
		Description:           domain.Ptr(fmt.Sprintf("Manual UPI Payment - UTR: %s", utr)),
	}
	if cmd.Amount != nil {
		amount, err := domain.ParseAmount(*cmd.Amount)
		if err != nil {
			return nil, toServiceError(err, "")
		}
		patch.Amount = &amount
	}

	tx, err := s.ledger.Transition(ctx, orderID, patch, SourceManual)
	if err != nil {
		s.logger.Warn("manual verification rejected", "order_id", orderID, "error", err)
		return nil, toServiceError(err, orderID)
	}

	s.logger.Info("manual payment submitted for verification", "order_id", orderID)
	return tx, nil
}
