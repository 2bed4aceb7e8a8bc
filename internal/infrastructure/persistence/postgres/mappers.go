package postgres

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// toDomainModel maps a row to the domain entity
func toDomainModel(m *transactionModel) (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount %q: %w", m.Amount, err)
	}

	details := map[string]any{}
	if m.PaymentDetails != "" {
		if err := json.Unmarshal([]byte(m.PaymentDetails), &details); err != nil {
			return nil, fmt.Errorf("decode payment details: %w", err)
		}
	}

	tx := &domain.Transaction{
		ID:            m.ID,
		OrderID:       m.OrderID,
		Amount:        amount,
		Currency:      m.Currency,
		PaymentMethod: domain.PaymentMethod(m.PaymentMethod),
		Status:        domain.Status(m.Status),

		IdempotencyKey:   deref(m.IdempotencyKey),
		GatewayOrderID:   deref(m.GatewayOrderID),
		GatewayPaymentID: deref(m.GatewayPaymentID),
		GatewayStatus:    deref(m.GatewayStatus),
		PaymentDetails:   details,

		Customer: domain.Customer{
			Name:  deref(m.CustomerName),
			Phone: deref(m.CustomerPhone),
			Email: deref(m.CustomerEmail),
		},
		Description:           deref(m.Description),
		FailureReason:         deref(m.FailureReason),
		VerificationReference: deref(m.VerificationReference),

		SettledAt: m.SettledAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if m.GatewayPayload != nil {
		tx.GatewayPayload = []byte(*m.GatewayPayload)
	}

	if m.RechargeMobile != nil {
		tx.Recharge = &domain.Recharge{
			Mobile:        deref(m.RechargeMobile),
			Operator:      deref(m.RechargeOperator),
			PlanID:        deref(m.RechargePlanID),
			Status:        deref(m.RechargeStatus),
			TransactionID: deref(m.RechargeTransactionID),
			Message:       deref(m.RechargeMessage),
		}
	}

	return tx, nil
}

// toDBModel maps the domain entity to a row
func toDBModel(tx *domain.Transaction) (*transactionModel, error) {
	details := tx.PaymentDetails
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("encode payment details: %w", err)
	}

	m := &transactionModel{
		ID:                    tx.ID,
		OrderID:               tx.OrderID,
		Amount:                tx.Amount.StringFixed(2),
		Currency:              tx.Currency,
		PaymentMethod:         string(tx.PaymentMethod),
		Status:                string(tx.Status),
		IdempotencyKey:        nullable(tx.IdempotencyKey),
		GatewayOrderID:        nullable(tx.GatewayOrderID),
		GatewayPaymentID:      nullable(tx.GatewayPaymentID),
		GatewayStatus:         nullable(tx.GatewayStatus),
		PaymentDetails:        string(detailsJSON),
		CustomerName:          nullable(tx.Customer.Name),
		CustomerPhone:         nullable(tx.Customer.Phone),
		CustomerEmail:         nullable(tx.Customer.Email),
		Description:           nullable(tx.Description),
		FailureReason:         nullable(tx.FailureReason),
		VerificationReference: nullable(tx.VerificationReference),
		SettledAt:             tx.SettledAt,
		CreatedAt:             tx.CreatedAt,
		UpdatedAt:             tx.UpdatedAt,
	}

	if len(tx.GatewayPayload) > 0 {
		m.GatewayPayload = nullable(string(tx.GatewayPayload))
	}

	if r := tx.Recharge; r != nil {
		m.RechargeMobile = nullable(r.Mobile)
		m.RechargeOperator = nullable(r.Operator)
		m.RechargePlanID = nullable(r.PlanID)
		m.RechargeStatus = nullable(r.Status)
		m.RechargeTransactionID = nullable(r.TransactionID)
		m.RechargeMessage = nullable(r.Message)
	}

	return m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
