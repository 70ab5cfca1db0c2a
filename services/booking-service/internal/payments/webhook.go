package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Completion is a settled checkout reported by the payment provider.
type Completion struct {
	EventID       string
	SessionID     string
	PaymentID     string
	AppointmentID string
	ReceiptNumber string
	PaidAt        time.Time
}

// ParseWebhook verifies a Stripe webhook and extracts a completed checkout.
// ok is false for verified events that do not settle a payment.
func ParseWebhook(payload []byte, sigHeader, secret string, tolerance time.Duration) (Completion, bool, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Completion{}, false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if evt.Type != stripe.EventTypeCheckoutSessionCompleted {
		return Completion{}, false, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return Completion{}, false, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.PaymentStatus != "" && session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return Completion{}, false, nil
	}

	c := Completion{
		EventID:       evt.ID,
		SessionID:     session.ID,
		PaymentID:     strings.TrimSpace(session.Metadata["payment_id"]),
		AppointmentID: strings.TrimSpace(session.Metadata["appointment_id"]),
		ReceiptNumber: strings.TrimSpace(session.Metadata["receipt_number"]),
		PaidAt:        time.Unix(evt.Created, 0).UTC(),
	}
	if c.PaymentID == "" {
		return Completion{}, false, errors.New("checkout session missing payment_id metadata")
	}
	return c, true, nil
}
