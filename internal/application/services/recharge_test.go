package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services/testhelpers"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

func validRechargeCommand() services.ExecuteRechargeCommand {
	return services.ExecuteRechargeCommand{
		Mobile:   "9876543210",
		Operator: "Airtel",
		Amount:   decimal.RequireFromString("199"),
		PlanID:   "AIR199",
	}
}

func TestExecuteRecharge_Success(t *testing.T) {
	h := testhelpers.NewHarness(t)
	svc := services.NewRechargeExecutionService(h.Recharge, h.Logger)

	h.Recharge.On("Execute", mock.Anything, mock.MatchedBy(func(req application.RechargeRequest) bool {
		return req.Mobile == "9876543210" && req.Operator == "Airtel" && req.PlanID == "AIR199" &&
			req.Amount.Equal(decimal.NewFromInt(199))
	})).Return(&domain.RechargeResult{Status: domain.RechargeSuccess, TransactionID: "RCH9"}, nil).Once()

	result, err := svc.Execute(context.Background(), validRechargeCommand())
	require.NoError(t, err)
	assert.Equal(t, "RCH9", result.TransactionID)
}

func TestExecuteRecharge_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*services.ExecuteRechargeCommand)
	}{
		{"short mobile", func(c *services.ExecuteRechargeCommand) { c.Mobile = "98765" }},
		{"non numeric mobile", func(c *services.ExecuteRechargeCommand) { c.Mobile = "98765-4321" }},
		{"missing mobile and operator", func(c *services.ExecuteRechargeCommand) { c.Mobile, c.Operator = "", "" }},
		{"missing operator", func(c *services.ExecuteRechargeCommand) { c.Operator = "" }},
		{"zero amount", func(c *services.ExecuteRechargeCommand) { c.Amount = decimal.Zero }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testhelpers.NewHarness(t)
			svc := services.NewRechargeExecutionService(h.Recharge, h.Logger)
			cmd := validRechargeCommand()
			tt.modify(&cmd)

			_, err := svc.Execute(context.Background(), cmd)
			requireServiceError(t, err, application.ErrCodeValidation)
			h.Recharge.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteRecharge_DeclinedAndUnavailable(t *testing.T) {
	h := testhelpers.NewHarness(t)
	svc := services.NewRechargeExecutionService(h.Recharge, h.Logger)

	h.Recharge.On("Execute", mock.Anything, mock.Anything).
		Return(&domain.RechargeResult{Status: domain.RechargeFailed, Message: "Invalid plan"}, nil).Once()
	result, err := svc.Execute(context.Background(), validRechargeCommand())
	requireServiceError(t, err, application.ErrCodeRechargeFailed)
	require.NotNil(t, result)
	assert.Equal(t, domain.RechargeFailed, result.Status)

	h.Recharge.On("Execute", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset")).Once()
	_, err = svc.Execute(context.Background(), validRechargeCommand())
	requireServiceError(t, err, application.ErrCodeGatewayUnavailable)
}
