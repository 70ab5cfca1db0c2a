package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
)

var ErrCheckoutNotConfigured = errors.New("card checkout not configured")

// CheckoutRequest identifies the pending payment a hosted checkout settles.
type CheckoutRequest struct {
	PaymentID     string
	AppointmentID string
	PatientID     string
	ReceiptNumber string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type StripeConfig struct {
	SecretKey   string
	FeeCents    int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
}

// StripeCheckout creates one-off Stripe Checkout Sessions for the visit fee.
type StripeCheckout struct {
	client *checkoutsession.Client
	cfg    StripeConfig
}

func NewStripeCheckout(cfg StripeConfig) (*StripeCheckout, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, ErrCheckoutNotConfigured
	}
	if cfg.FeeCents <= 0 {
		return nil, errors.New("visit fee must be positive")
	}
	if cfg.SuccessURL == "" || cfg.CancelURL == "" {
		return nil, errors.New("checkout success and cancel urls are required")
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "Pharmacy visit"
	}
	return &StripeCheckout{
		client: &checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey},
		cfg:    cfg,
	}, nil
}

func (c *StripeCheckout) Create(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	metadata := Metadata(req)
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.AppointmentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(c.cfg.Currency)),
					UnitAmount: stripe.Int64(c.cfg.FeeCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(c.cfg.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	// One hosted session per pending payment even if the patient retries.
	params.IdempotencyKey = stripe.String("checkout-" + req.PaymentID)

	sess, err := c.client.New(params)
	if err != nil {
		return CheckoutSession{}, err
	}
	return CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// Metadata is the key set attached to sessions and read back by the webhook.
func Metadata(req CheckoutRequest) map[string]string {
	return map[string]string{
		"payment_id":     req.PaymentID,
		"appointment_id": req.AppointmentID,
		"patient_id":     req.PatientID,
		"receipt_number": req.ReceiptNumber,
	}
}
