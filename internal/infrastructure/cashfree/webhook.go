package cashfree

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
)

// VerifyWebhookSignature checks x-webhook-signature, which is
// base64(HMAC-SHA256(timestamp + body)) keyed with the client secret.
// It is a no-op when verification is disabled.
func (c *Client) VerifyWebhookSignature(raw []byte, timestamp, signature string) error {
	if !c.verifySig {
		return nil
	}
	if timestamp == "" || signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(timestamp))
	mac.Write(raw)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (c *Client) ParseWebhookEvent(raw []byte) (*application.WebhookEvent, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if payload.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedWebhook)
	}

	event := &application.WebhookEvent{
		Type:      application.WebhookEventType(payload.Type),
		OrderID:   payload.Data.Order.OrderID,
		Status:    payload.Data.Payment.PaymentStatus,
		PaymentID: string(payload.Data.Payment.CFPaymentID),
		Message:   payload.Data.Payment.PaymentMessage,
		Raw:       raw,
	}

	switch event.Type {
	case application.EventPaymentSuccess, application.EventPaymentFailed, application.EventPaymentUserDropped:
		if event.OrderID == "" {
			return nil, fmt.Errorf("%w: missing data.order.order_id", ErrMalformedWebhook)
		}
	}

	return event, nil
}
