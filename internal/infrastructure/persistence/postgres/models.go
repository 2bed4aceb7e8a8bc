package postgres

import "time"

// transactionModel mirrors a transactions row. Nullable columns are pointers;
// amount and the jsonb columns are read and written as text.
type transactionModel struct {
	ID                    string
	OrderID               string
	Amount                string
	Currency              string
	PaymentMethod         string
	Status                string
	IdempotencyKey        *string
	GatewayOrderID        *string
	GatewayPaymentID      *string
	GatewayStatus         *string
	PaymentDetails        string
	GatewayPayload        *string
	CustomerName          *string
	CustomerPhone         *string
	CustomerEmail         *string
	Description           *string
	FailureReason         *string
	VerificationReference *string
	RechargeMobile        *string
	RechargeOperator      *string
	RechargePlanID        *string
	RechargeStatus        *string
	RechargeTransactionID *string
	RechargeMessage       *string
	SettledAt             *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

const selectColumns = `
	id::text, order_id, amount::text, currency, payment_method, status,
	idempotency_key, gateway_order_id, gateway_payment_id, gateway_status,
	payment_details::text, gateway_payload::text,
	customer_name, customer_phone, customer_email,
	description, failure_reason, verification_reference,
	recharge_mobile, recharge_operator, recharge_plan_id,
	recharge_status, recharge_transaction_id, recharge_message,
	settled_at, created_at, updated_at`

func (m *transactionModel) scanTargets() []any {
	return []any{
		&m.ID, &m.OrderID, &m.Amount, &m.Currency, &m.PaymentMethod, &m.Status,
		&m.IdempotencyKey, &m.GatewayOrderID, &m.GatewayPaymentID, &m.GatewayStatus,
		&m.PaymentDetails, &m.GatewayPayload,
		&m.CustomerName, &m.CustomerPhone, &m.CustomerEmail,
		&m.Description, &m.FailureReason, &m.VerificationReference,
		&m.RechargeMobile, &m.RechargeOperator, &m.RechargePlanID,
		&m.RechargeStatus, &m.RechargeTransactionID, &m.RechargeMessage,
		&m.SettledAt, &m.CreatedAt, &m.UpdatedAt,
	}
}
