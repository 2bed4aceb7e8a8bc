package services

import (
	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

type CreateOrderCommand struct {
	Amount         decimal.Decimal
	Method         string
	OrderID        string
	IdempotencyKey string
	Customer       domain.Customer
	Description    string
	Recharge       *RechargeDetails
}

type RechargeDetails struct {
	Mobile   string
	Operator string
	PlanID   string
}

type InitiateCommand struct {
	Name          string
	Amount        decimal.Decimal
	PaymentMethod string
	Recharge      *RechargeDetails
}

type VerifyManualCommand struct {
	OrderID string
	UTR     string
	// Amount, when set, replaces the recorded amount.
	Amount *decimal.Decimal
}

func (r *RechargeDetails) toDomain() (*domain.Recharge, error) {
	if r == nil {
		return nil, nil
	}
	return domain.NewRecharge(r.Mobile, r.Operator, r.PlanID)
}

type ExecuteRechargeCommand struct {
	Mobile   string
	Operator string
	Amount   decimal.Decimal
	PlanID   string
}
