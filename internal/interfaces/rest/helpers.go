package rest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// Amount renders a decimal as a bare JSON number with two decimal places.
type Amount decimal.Decimal

func (a Amount) String() string {
	return decimal.Decimal(a).StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

type CustomerView struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type RechargeView struct {
	Mobile        string `json:"mobile"`
	Operator      string `json:"operator"`
	PlanID        string `json:"planId,omitempty"`
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

type RechargeResultView struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

// TransactionView is the public shape of a transaction. Gateway order ids and
// raw callback payloads stay internal.
type TransactionView struct {
	ID                    string         `json:"id"`
	OrderID               string         `json:"orderId"`
	Amount                Amount         `json:"amount"`
	Currency              string         `json:"currency"`
	PaymentMethod         string         `json:"paymentMethod"`
	Status                string         `json:"status"`
	GatewayPaymentID      string         `json:"gatewayPaymentId,omitempty"`
	GatewayStatus         string         `json:"gatewayStatus,omitempty"`
	PaymentDetails        map[string]any `json:"paymentDetails,omitempty"`
	CustomerInfo          CustomerView   `json:"customerInfo"`
	Description           string         `json:"description,omitempty"`
	FailureReason         string         `json:"failureReason,omitempty"`
	VerificationReference string         `json:"verificationReference,omitempty"`
	Recharge              *RechargeView  `json:"recharge,omitempty"`
	SettlementTime        *time.Time     `json:"settlementTime,omitempty"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

type ReceiptView struct {
	TransactionID string `json:"transactionId"`
	OrderID       string `json:"orderId"`
	Amount        Amount `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	Status        string `json:"status"`
	Date          string `json:"date"`
	Description   string `json:"description,omitempty"`
}

func ToTransactionView(tx *domain.Transaction) TransactionView {
	view := TransactionView{
		ID:                    tx.ID,
		OrderID:               tx.OrderID,
		Amount:                Amount(tx.Amount),
		Currency:              tx.Currency,
		PaymentMethod:         string(tx.PaymentMethod),
		Status:                string(tx.Status),
		GatewayPaymentID:      tx.GatewayPaymentID,
		GatewayStatus:         tx.GatewayStatus,
		PaymentDetails:        tx.PaymentDetails,
		CustomerInfo:          CustomerView(tx.Customer),
		Description:           tx.Description,
		FailureReason:         tx.FailureReason,
		VerificationReference: tx.VerificationReference,
		SettlementTime:        tx.SettledAt,
		CreatedAt:             tx.CreatedAt,
		UpdatedAt:             tx.UpdatedAt,
	}
	if tx.Recharge != nil {
		r := RechargeView(*tx.Recharge)
		view.Recharge = &r
	}
	return view
}

// ReceiptDateLayout formats receipt dates in both the JSON and PDF renderings.
const ReceiptDateLayout = "2006-01-02 15:04:05 MST"

func ToReceiptView(tx *domain.Transaction) ReceiptView {
	date := tx.UpdatedAt
	if tx.SettledAt != nil {
		date = *tx.SettledAt
	}
	return ReceiptView{
		TransactionID: tx.ReceiptID(),
		OrderID:       tx.OrderID,
		Amount:        Amount(tx.Amount),
		PaymentMethod: string(tx.PaymentMethod),
		Status:        string(tx.Status),
		Date:          date.Format(ReceiptDateLayout),
		Description:   tx.Description,
	}
}

func ToRechargeResultView(r *domain.RechargeResult) *RechargeResultView {
	if r == nil {
		return nil
	}
	v := RechargeResultView(*r)
	return &v
}
