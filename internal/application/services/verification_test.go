package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services/testhelpers"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

func TestVerifyManual_ParksTransactionForVerification(t *testing.T) {
	h := testhelpers.NewHarness(t)
	svc := services.NewVerificationService(h.Ledger, h.Logger)
	h.SeedPending(t, "ORD_m", "")

	tx, err := svc.VerifyManual(context.Background(), services.VerifyManualCommand{OrderID: "ORD_m", UTR: " 412345678901 "})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingVerification, tx.Status)
	assert.Equal(t, "412345678901", tx.VerificationReference)
	assert.Equal(t, "412345678901", tx.GatewayPaymentID)
	assert.Equal(t, "Manual UPI Payment - UTR: 412345678901", tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("100.00")))
}

func TestVerifyManual_ResubmissionAndAmountOverride(t *testing.T) {
	h := testhelpers.NewHarness(t)
	svc := services.NewVerificationService(h.Ledger, h.Logger)
	h.SeedPending(t, "ORD_m", "")

	_, err := svc.VerifyManual(context.Background(), services.VerifyManualCommand{OrderID: "ORD_m", UTR: "111"})
	require.NoError(t, err)

	amount := decimal.RequireFromString("120.50")
	tx, err := svc.VerifyManual(context.Background(), services.VerifyManualCommand{OrderID: "ORD_m", UTR: "222", Amount: &amount})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingVerification, tx.Status)
	assert.Equal(t, "222", tx.VerificationReference)
	assert.True(t, tx.Amount.Equal(amount))

	// Found by UTR too.
	byUTR, err := h.Store.FindByAnyID(context.Background(), "222")
	require.NoError(t, err)
	assert.Equal(t, "ORD_m", byUTR.OrderID)
}

func TestVerifyManual_UnknownOrderCreatesNothing(t *testing.T) {
	h := testhelpers.NewHarness(t)
	svc := services.NewVerificationService(h.Ledger, h.Logger)

	_, err := svc.VerifyManual(context.Background(), services.VerifyManualCommand{OrderID: "ORD_ghost", UTR: "123"})
	requireServiceError(t, err, application.ErrCodeNotFound)

	_, err = h.Store.FindByOrderID(context.Background(), "ORD_ghost")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestVerifyManual_TerminalRecordConflicts(t *testing.T) {
	for _, status := range []domain.Status{domain.StatusSuccess, domain.StatusFailed, domain.StatusCancelled, domain.StatusSettled} {
		t.Run(string(status), func(t *testing.T) {
			h := testhelpers.NewHarness(t)
			svc := services.NewVerificationService(h.Ledger, h.Logger)
			h.SeedWithStatus(t, "ORD_t", status)

			_, err := svc.VerifyManual(context.Background(), services.VerifyManualCommand{OrderID: "ORD_t", UTR: "999"})
			svcErr := requireServiceError(t, err, application.ErrCodeInvalidTransition)
			assert.Equal(t, 409, svcErr.HTTPStatus)

			tx, err := h.Store.FindByOrderID(context.Background(), "ORD_t")
			require.NoError(t, err)
			assert.Equal(t, status, tx.Status)
			assert.Empty(t, tx.VerificationReference)
		})
	}
}

func TestVerifyManual_Validation(t *testing.T) {
	h := testhelpers.NewHarness(t)
	svc := services.NewVerificationService(h.Ledger, h.Logger)
	h.SeedPending(t, "ORD_v", "")

	_, err := svc.VerifyManual(context.Background(), services.VerifyManualCommand{UTR: "1"})
	requireServiceError(t, err, application.ErrCodeValidation)

	_, err = svc.VerifyManual(context.Background(), services.VerifyManualCommand{OrderID: "ORD_v"})
	requireServiceError(t, err, application.ErrCodeValidation)

	bad := decimal.RequireFromString("-1")
	_, err = svc.VerifyManual(context.Background(), services.VerifyManualCommand{OrderID: "ORD_v", UTR: "1", Amount: &bad})
	requireServiceError(t, err, application.ErrCodeValidation)
}
