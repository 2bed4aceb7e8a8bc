package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

type transactionDocument struct {
	ID            string               `bson:"_id"`
	OrderID       string               `bson:"orderId"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Currency      string               `bson:"currency"`
	PaymentMethod string               `bson:"paymentMethod"`
	Status        string               `bson:"status"`

	// Omitted when empty so the partial unique index ignores it.
	IdempotencyKey string `bson:"idempotencyKey,omitempty"`

	GatewayOrderID   string `bson:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `bson:"gatewayPaymentId,omitempty"`
	GatewayStatus    string `bson:"gatewayStatus,omitempty"`
	PaymentDetails   bson.M `bson:"paymentDetails"`
	GatewayPayload   string `bson:"gatewayPayload,omitempty"`

	Customer              customerDocument  `bson:"customerInfo"`
	Description           string            `bson:"description,omitempty"`
	FailureReason         string            `bson:"failureReason,omitempty"`
	VerificationReference string            `bson:"verificationReference,omitempty"`
	Recharge              *rechargeDocument `bson:"recharge,omitempty"`

	SettledAt *time.Time `bson:"settlementTime,omitempty"`
	CreatedAt time.Time  `bson:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

type customerDocument struct {
	Name  string `bson:"name,omitempty"`
	Phone string `bson:"phone,omitempty"`
	Email string `bson:"email,omitempty"`
}

type rechargeDocument struct {
	Mobile        string `bson:"mobile,omitempty"`
	Operator      string `bson:"operator,omitempty"`
	PlanID        string `bson:"planId,omitempty"`
	Status        string `bson:"rechargeStatus,omitempty"`
	TransactionID string `bson:"rechargeTransactionId,omitempty"`
	Message       string `bson:"rechargeMessage,omitempty"`
}

func toDocument(tx *domain.Transaction) (*transactionDocument, error) {
	amount, err := primitive.ParseDecimal128(tx.Amount.StringFixed(2))
	if err != nil {
		return nil, fmt.Errorf("encode amount: %w", err)
	}

	details := bson.M{}
	for k, v := range tx.PaymentDetails {
		details[k] = v
	}

	doc := &transactionDocument{
		ID:                    tx.ID,
		OrderID:               tx.OrderID,
		Amount:                amount,
		Currency:              tx.Currency,
		PaymentMethod:         string(tx.PaymentMethod),
		Status:                string(tx.Status),
		IdempotencyKey:        tx.IdempotencyKey,
		GatewayOrderID:        tx.GatewayOrderID,
		GatewayPaymentID:      tx.GatewayPaymentID,
		GatewayStatus:         tx.GatewayStatus,
		PaymentDetails:        details,
		GatewayPayload:        string(tx.GatewayPayload),
		Customer:              customerDocument(tx.Customer),
		Description:           tx.Description,
		FailureReason:         tx.FailureReason,
		VerificationReference: tx.VerificationReference,
		SettledAt:             tx.SettledAt,
		CreatedAt:             tx.CreatedAt,
		UpdatedAt:             tx.UpdatedAt,
	}
	if tx.Recharge != nil {
		r := rechargeDocument(*tx.Recharge)
		doc.Recharge = &r
	}
	return doc, nil
}

func toDomain(doc *transactionDocument) (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(doc.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("decode amount %s: %w", doc.Amount.String(), err)
	}

	details := make(map[string]any, len(doc.PaymentDetails))
	for k, v := range doc.PaymentDetails {
		details[k] = v
	}

	tx := &domain.Transaction{
		ID:                    doc.ID,
		OrderID:               doc.OrderID,
		Amount:                amount,
		Currency:              doc.Currency,
		PaymentMethod:         domain.PaymentMethod(doc.PaymentMethod),
		Status:                domain.Status(doc.Status),
		IdempotencyKey:        doc.IdempotencyKey,
		GatewayOrderID:        doc.GatewayOrderID,
		GatewayPaymentID:      doc.GatewayPaymentID,
		GatewayStatus:         doc.GatewayStatus,
		PaymentDetails:        details,
		Customer:              domain.Customer(doc.Customer),
		Description:           doc.Description,
		FailureReason:         doc.FailureReason,
		VerificationReference: doc.VerificationReference,
		SettledAt:             doc.SettledAt,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
	}
	if doc.GatewayPayload != "" {
		tx.GatewayPayload = []byte(doc.GatewayPayload)
	}
	if doc.Recharge != nil && doc.Recharge.Mobile != "" {
		r := domain.Recharge(*doc.Recharge)
		tx.Recharge = &r
	}
	return tx, nil
}

// updateDocument translates a patch into a $set document. PaymentDetails
// keys are set individually so existing keys survive.
func updateDocument(p domain.TransactionPatch, now time.Time) (bson.M, error) {
	set := bson.M{"updatedAt": now}

	if p.Status != nil {
		set["status"] = string(*p.Status)
	}
	if p.GatewayOrderID != nil {
		set["gatewayOrderId"] = *p.GatewayOrderID
	}
	if p.GatewayPaymentID != nil {
		set["gatewayPaymentId"] = *p.GatewayPaymentID
	}
	if p.GatewayStatus != nil {
		set["gatewayStatus"] = *p.GatewayStatus
	}
	if p.FailureReason != nil {
		set["failureReason"] = *p.FailureReason
	}
	if p.VerificationReference != nil {
		set["verificationReference"] = *p.VerificationReference
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Amount != nil {
		amount, err := primitive.ParseDecimal128(p.Amount.StringFixed(2))
		if err != nil {
			return nil, fmt.Errorf("encode amount: %w", err)
		}
		set["amount"] = amount
	}
	if len(p.GatewayPayload) > 0 {
		set["gatewayPayload"] = string(p.GatewayPayload)
	}
	for k, v := range p.Details {
		set["paymentDetails."+k] = v
	}
	if r := p.RechargeResult; r != nil {
		set["recharge.rechargeStatus"] = r.Status
		set["recharge.rechargeTransactionId"] = r.TransactionID
		set["recharge.rechargeMessage"] = r.Message
	}
	if p.SettledAt != nil {
		set["settlementTime"] = *p.SettledAt
	}

	return bson.M{"$set": set}, nil
}
