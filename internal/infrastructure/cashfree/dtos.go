package cashfree

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     Amount          `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       OrderMeta       `json:"order_meta"`
	OrderNote       string          `json:"order_note,omitempty"`
}

type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type OrderMeta struct {
	ReturnURL      string `json:"return_url,omitempty"`
	NotifyURL      string `json:"notify_url,omitempty"`
	PaymentMethods string `json:"payment_methods,omitempty"`
}

type OrderResponse struct {
	CFOrderID        FlexibleID `json:"cf_order_id"`
	OrderID          string     `json:"order_id"`
	OrderStatus      string     `json:"order_status"`
	PaymentSessionID string     `json:"payment_session_id"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// WebhookPayload is the envelope of payment webhooks (API version 2023-08-01).
type WebhookPayload struct {
	Type      string      `json:"type"`
	EventTime string      `json:"event_time"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	Order struct {
		OrderID     string `json:"order_id"`
		OrderAmount Amount `json:"order_amount"`
	} `json:"order"`
	Payment struct {
		CFPaymentID    FlexibleID `json:"cf_payment_id"`
		PaymentStatus  string     `json:"payment_status"`
		PaymentMessage string     `json:"payment_message"`
		BankReference  string     `json:"bank_reference"`
		PaymentGroup   string     `json:"payment_group"`
	} `json:"payment"`
}

// Amount is a decimal encoded as a bare JSON number.
type Amount decimal.Decimal

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = Amount(d)
	return nil
}

// FlexibleID accepts identifiers sent either as JSON strings or numbers.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = FlexibleID(n.String())
	}
	return nil
}
