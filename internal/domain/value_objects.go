package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodUPI        PaymentMethod = "UPI"
	MethodCard       PaymentMethod = "CARD"
	MethodNetBanking PaymentMethod = "NETBANKING"
	MethodWallet     PaymentMethod = "WALLET"
	MethodGeneral    PaymentMethod = "GENERAL"
)

// gatewayMethodCodes maps a payment method to the Cashfree payment_methods filter.
// An empty filter lets the checkout offer every method.
var gatewayMethodCodes = map[PaymentMethod]string{
	MethodUPI:        "upi",
	MethodCard:       "cc,dc",
	MethodNetBanking: "nb",
	MethodWallet:     "app",
	MethodGeneral:    "",
}

// ParsePaymentMethod matches tags case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", NewInvalidPaymentMethodError(s)
	}
	return m, nil
}

func (m PaymentMethod) IsValid() bool {
	_, ok := gatewayMethodCodes[m]
	return ok
}

func (m PaymentMethod) GatewayCode() string {
	return gatewayMethodCodes[m]
}

// ParseAmount accepts a positive amount with at most two decimal places.
func ParseAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, NewInvalidAmountError(d.String())
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, &DomainError{
			Code:    ErrCodeInvalidAmount,
			Message: fmt.Sprintf("amount %s has more than two decimal places", d.String()),
		}
	}
	return d, nil
}

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,45}$`)

func ValidateOrderID(orderID string) error {
	if !orderIDPattern.MatchString(orderID) {
		return NewInvalidOrderIDError(orderID)
	}
	return nil
}

var mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)

func ValidateMobile(mobile string) error {
	if !mobilePattern.MatchString(mobile) {
		return NewInvalidMobileError(mobile)
	}
	return nil
}

// NewRecharge validates recharge metadata. Both fields empty means the
// payment carries no recharge and yields nil.
func NewRecharge(mobile, operator, planID string) (*Recharge, error) {
	mobile = strings.TrimSpace(mobile)
	operator = strings.TrimSpace(operator)
	if mobile == "" && operator == "" {
		return nil, nil
	}
	if mobile == "" {
		return nil, NewMissingRequiredFieldError("mobile")
	}
	if err := ValidateMobile(mobile); err != nil {
		return nil, err
	}
	if operator == "" {
		return nil, NewMissingRequiredFieldError("operator")
	}
	return &Recharge{Mobile: mobile, Operator: operator, PlanID: strings.TrimSpace(planID)}, nil
}

// NewOrderID returns ORD_<unix millis>_<12 hex chars of a random uuid>.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("ORD_%d_%s", now.UnixMilli(), suffix)
}
