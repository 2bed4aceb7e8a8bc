package domain_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want domain.PaymentMethod
		code string
	}{
		{"upi", domain.MethodUPI, "upi"},
		{"Card", domain.MethodCard, "cc,dc"},
		{" NETBANKING ", domain.MethodNetBanking, "nb"},
		{"wallet", domain.MethodWallet, "app"},
		{"general", domain.MethodGeneral, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := domain.ParsePaymentMethod(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
			assert.Equal(t, tt.code, m.GatewayCode())
		})
	}

	_, err := domain.ParsePaymentMethod("bitcoin")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidPaymentMethod))
}

func TestParseAmount(t *testing.T) {
	_, err := domain.ParseAmount(decimal.RequireFromString("100.50"))
	assert.NoError(t, err)

	_, err = domain.ParseAmount(decimal.RequireFromString("-1"))
	assert.Error(t, err)

	_, err = domain.ParseAmount(decimal.RequireFromString("10.005"))
	assert.Error(t, err)
}

func TestNewOrderID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := domain.NewOrderID(now)
	b := domain.NewOrderID(now)

	assert.Regexp(t, regexp.MustCompile(`^ORD_1700000000000_[0-9a-f]{12}$`), a)
	assert.NotEqual(t, a, b)
	assert.NoError(t, domain.ValidateOrderID(a))
}

func TestValidateOrderID(t *testing.T) {
	assert.NoError(t, domain.ValidateOrderID("order-42_A"))
	assert.Error(t, domain.ValidateOrderID("ab"))
	assert.Error(t, domain.ValidateOrderID("has space"))
}

func TestNewRecharge(t *testing.T) {
	tests := []struct {
		name     string
		mobile   string
		operator string
		code     string
	}{
		{"valid", "9876543210", "Jio", ""},
		{"nine digits", "987654321", "Jio", domain.ErrCodeInvalidMobile},
		{"eleven digits", "98765432101", "Jio", domain.ErrCodeInvalidMobile},
		{"letters", "98765abcde", "Jio", domain.ErrCodeInvalidMobile},
		{"country prefix", "+919876543210", "Jio", domain.ErrCodeInvalidMobile},
		{"missing operator", "9876543210", " ", domain.ErrCodeMissingRequiredField},
		{"missing mobile", "", "Airtel", domain.ErrCodeMissingRequiredField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := domain.NewRecharge(tt.mobile, tt.operator, "P1")
			if tt.code != "" {
				assert.True(t, domain.IsErrorCode(err, tt.code), "got %v", err)
				assert.Nil(t, r)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "9876543210", r.Mobile)
			assert.Equal(t, "P1", r.PlanID)
		})
	}

	r, err := domain.NewRecharge("", "", "P1")
	require.NoError(t, err)
	assert.Nil(t, r)
}
