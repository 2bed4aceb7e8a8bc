package services

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// RechargeExecutionService runs a standalone mobile recharge that is not
// tied to a ledger transaction.
type RechargeExecutionService struct {
	recharge application.RechargeService
	logger   *slog.Logger
}

func NewRechargeExecutionService(recharge application.RechargeService, logger *slog.Logger) *RechargeExecutionService {
	return &RechargeExecutionService{recharge: recharge, logger: logger}
}

// Execute validates the request and calls the provider. A declined recharge
// is returned together with a RECHARGE_FAILED error.
func (s *RechargeExecutionService) Execute(ctx context.Context, cmd ExecuteRechargeCommand) (*domain.RechargeResult, error) {
	details, err := domain.NewRecharge(cmd.Mobile, cmd.Operator, cmd.PlanID)
	if err != nil {
		return nil, toServiceError(err, "")
	}
	if details == nil {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("mobile"), "")
	}
	amount, err := domain.ParseAmount(cmd.Amount)
	if err != nil {
		return nil, toServiceError(err, "")
	}

	result, err := s.recharge.Execute(ctx, application.RechargeRequest{
		Mobile:   details.Mobile,
		Operator: details.Operator,
		Amount:   amount,
		PlanID:   details.PlanID,
	})
	if err != nil {
		s.logger.Error("recharge request failed", "operator", details.Operator, "error", err)
		return nil, application.NewGatewayUnavailableError(err)
	}
	if result.Status != domain.RechargeSuccess {
		s.logger.Warn("recharge declined", "operator", details.Operator, "message", result.Message)
		return result, application.NewRechargeFailedError(result.Message)
	}

	s.logger.Info("recharge completed", "operator", details.Operator, "recharge_id", result.TransactionID)
	return result, nil
}
