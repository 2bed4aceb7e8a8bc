// Package domain models a payment transaction and the rules governing its lifecycle.
package domain

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingVerification Status = "pending_verification"
	StatusSuccess             Status = "success"
	StatusFailed              Status = "failed"
	StatusCancelled           Status = "cancelled"
	StatusSettled             Status = "SETTLED"
)

// Keys used inside PaymentDetails.
const (
	DetailSession = "session"
)

// allowedPrior lists, for each target status, the states a transaction may
// be in for the transition to apply. Nothing ever moves back to pending.
var allowedPrior = map[Status][]Status{
	StatusPendingVerification: {StatusPending, StatusPendingVerification},
	StatusSuccess:             {StatusPending, StatusPendingVerification},
	StatusFailed:              {StatusPending, StatusPendingVerification},
	StatusCancelled:           {StatusPending},
	StatusSettled:             {StatusPending, StatusSuccess},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPendingVerification, StatusSuccess,
		StatusFailed, StatusCancelled, StatusSettled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusSettled:
		return true
	}
	return false
}

// AllowedPriorStates returns the states from which target can be reached.
// The returned slice must not be modified.
func AllowedPriorStates(target Status) []Status {
	return allowedPrior[target]
}

// CanTransition reports whether a transaction in from may move to to.
func CanTransition(from, to Status) error {
	if !slices.Contains(allowedPrior[to], from) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

type Customer struct {
	Name  string
	Phone string
	Email string
}

// Recharge carries mobile-recharge metadata and, after settlement, the
// outcome reported by the recharge provider.
type Recharge struct {
	Mobile        string
	Operator      string
	PlanID        string
	Status        string
	TransactionID string
	Message       string
}

type Transaction struct {
	ID            string
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod PaymentMethod
	Status        Status

	IdempotencyKey string

	GatewayOrderID   string
	GatewayPaymentID string
	GatewayStatus    string
	PaymentDetails   map[string]any
	GatewayPayload   []byte

	Customer              Customer
	Description           string
	FailureReason         string
	VerificationReference string
	Recharge              *Recharge

	SettledAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTransaction creates a pending transaction. Amount must be positive.
func NewTransaction(id, orderID string, amount decimal.Decimal, currency string, method PaymentMethod) (*Transaction, error) {
	if id == "" {
		return nil, errors.New("transaction ID is required")
	}
	if orderID == "" {
		return nil, NewMissingRequiredFieldError("orderId")
	}
	if !amount.IsPositive() {
		return nil, NewInvalidAmountError(amount.String())
	}
	if !method.IsValid() {
		return nil, NewInvalidPaymentMethodError(string(method))
	}

	now := time.Now().UTC()
	return &Transaction{
		ID:             id,
		OrderID:        orderID,
		Amount:         amount,
		Currency:       currency,
		PaymentMethod:  method,
		Status:         StatusPending,
		PaymentDetails: map[string]any{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SessionID returns the gateway payment session attached to the transaction, if any.
func (t *Transaction) SessionID() string {
	if t.PaymentDetails == nil {
		return ""
	}
	s, _ := t.PaymentDetails[DetailSession].(string)
	return s
}

func (t *Transaction) HasRecharge() bool {
	return t.Recharge != nil && t.Recharge.Mobile != "" && t.Recharge.Operator != ""
}

// ReceiptID is the identifier printed on receipts: the gateway payment id
// when known, otherwise the order id.
func (t *Transaction) ReceiptID() string {
	if t.GatewayPaymentID != "" {
		return t.GatewayPaymentID
	}
	return t.OrderID
}

// Apply checks the status precondition of patch and, when it holds, applies
// it in place. Stores that cannot express the condition natively use this
// under their own lock.
func (t *Transaction) Apply(patch TransactionPatch, now time.Time) error {
	if patch.Status != nil {
		if err := CanTransition(t.Status, *patch.Status); err != nil {
			return err
		}
		t.Status = *patch.Status
	}

	if patch.GatewayOrderID != nil {
		t.GatewayOrderID = *patch.GatewayOrderID
	}
	if patch.GatewayPaymentID != nil {
		t.GatewayPaymentID = *patch.GatewayPaymentID
	}
	if patch.GatewayStatus != nil {
		t.GatewayStatus = *patch.GatewayStatus
	}
	if patch.FailureReason != nil {
		t.FailureReason = *patch.FailureReason
	}
	if patch.VerificationReference != nil {
		t.VerificationReference = *patch.VerificationReference
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Amount != nil {
		t.Amount = *patch.Amount
	}
	if patch.GatewayPayload != nil {
		t.GatewayPayload = slices.Clone(patch.GatewayPayload)
	}
	if len(patch.Details) > 0 {
		if t.PaymentDetails == nil {
			t.PaymentDetails = map[string]any{}
		}
		maps.Copy(t.PaymentDetails, patch.Details)
	}
	if patch.RechargeResult != nil && t.Recharge != nil {
		t.Recharge.Status = patch.RechargeResult.Status
		t.Recharge.TransactionID = patch.RechargeResult.TransactionID
		t.Recharge.Message = patch.RechargeResult.Message
	}
	if patch.SettledAt != nil {
		settled := *patch.SettledAt
		t.SettledAt = &settled
	}

	t.UpdatedAt = now
	return nil
}

// TransactionPatch is a partial update. Nil fields are left untouched and
// Details is merged key by key into PaymentDetails. A non-nil Status makes
// the update conditional on the current status being one of
// AllowedPriorStates(*Status).
type TransactionPatch struct {
	Status                *Status
	GatewayOrderID        *string
	GatewayPaymentID      *string
	GatewayStatus         *string
	FailureReason         *string
	VerificationReference *string
	Description           *string
	Amount                *decimal.Decimal
	GatewayPayload        []byte
	Details               map[string]any
	RechargeResult        *RechargeResult
	SettledAt             *time.Time
}

type RechargeResult struct {
	Status        string
	TransactionID string
	Message       string
}

// Recharge outcome statuses.
const (
	RechargeSuccess = "SUCCESS"
	RechargeFailed  = "FAILED"
	RechargeUnknown = "UNKNOWN"
)

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
