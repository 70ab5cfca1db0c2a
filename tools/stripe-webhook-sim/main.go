// Command stripe-webhook-sim posts a signed checkout event to the booking
// service so card settlement can be exercised without a Stripe account.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/libs/config"
	"github.com/stripe/stripe-go/v79/webhook"
)

type checkoutEvent struct {
	EventID       string
	Type          string
	SessionID     string
	PaymentID     string
	AppointmentID string
	ReceiptNumber string
	Created       time.Time
}

func main() {
	var (
		baseURL     = flag.String("base-url", config.String("BASE_URL", "http://localhost:8083"), "booking service base url")
		evtType     = flag.String("type", config.String("STRIPE_EVENT_TYPE", "checkout.session.completed"), "stripe event type")
		paymentID   = flag.String("payment-id", config.String("PAYMENT_ID", ""), "payment_id metadata")
		appointment = flag.String("appointment-id", config.String("APPOINTMENT_ID", ""), "appointment_id metadata")
		receipt     = flag.String("receipt", config.String("RECEIPT_NUMBER", ""), "receipt_number metadata")
		secret      = flag.String("secret", config.String("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*paymentID) == "" {
		fatal("PAYMENT_ID is required")
	}

	now := time.Now().UTC()
	payload, err := buildEventJSON(checkoutEvent{
		EventID:       fmt.Sprintf("evt_test_%d", now.UnixNano()),
		Type:          *evtType,
		SessionID:     fmt.Sprintf("cs_test_%d", now.UnixNano()),
		PaymentID:     *paymentID,
		AppointmentID: *appointment,
		ReceiptNumber: *receipt,
		Created:       now,
	})
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/payments/webhooks/stripe", bytes.NewReader(signed.Payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
}

func buildEventJSON(e checkoutEvent) ([]byte, error) {
	var paymentStatus string
	switch e.Type {
	case "checkout.session.completed":
		paymentStatus = "paid"
	case "checkout.session.expired":
		paymentStatus = "unpaid"
	default:
		return nil, fmt.Errorf("unsupported event type: %s", e.Type)
	}
	return json.Marshal(map[string]any{
		"id":          e.EventID,
		"object":      "event",
		"created":     e.Created.Unix(),
		"type":        e.Type,
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":             e.SessionID,
				"object":         "checkout.session",
				"mode":           "payment",
				"payment_status": paymentStatus,
				"metadata": map[string]string{
					"payment_id":     e.PaymentID,
					"appointment_id": e.AppointmentID,
					"receipt_number": e.ReceiptNumber,
				},
			},
		},
	})
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
