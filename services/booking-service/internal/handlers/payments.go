package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/payments"
)

type PaymentsHandler struct {
	engine           Engine
	sessions         *SessionResolver
	logger           *slog.Logger
	webhookSecret    string
	webhookTolerance time.Duration
}

type PaymentsConfig struct {
	StripeWebhookSecret string
	WebhookTolerance    time.Duration
}

func NewPaymentsHandler(engine Engine, sessions *SessionResolver, logger *slog.Logger, cfg PaymentsConfig) *PaymentsHandler {
	tol := cfg.WebhookTolerance
	if tol <= 0 {
		tol = 5 * time.Minute
	}
	return &PaymentsHandler{
		engine:           engine,
		sessions:         sessions,
		logger:           logger,
		webhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		webhookTolerance: tol,
	}
}

type checkoutRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type checkoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

func (h *PaymentsHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := h.sessions.Resolve(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	cs, err := h.engine.StartCheckout(r.Context(), sess, req.AppointmentID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{SessionID: cs.ID, URL: cs.URL})
}

// StripeWebhook settles card payments. It is served without bearer auth; the
// signature is the authentication.
func (h *PaymentsHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.webhookSecret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	completion, ok, err := payments.ParseWebhook(body, sigHeader, h.webhookSecret, h.webhookTolerance)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}
		h.logger.Warn("stripe webhook rejected", "err", err)
		http.Error(w, "malformed checkout event", http.StatusBadRequest)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	updated, err := h.engine.ConfirmPayment(r.Context(), completion)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	status := "paid"
	if !updated {
		status = "duplicate"
		h.logger.Info("stripe checkout replay ignored",
			"provider_event_id", completion.EventID,
			"payment_id", completion.PaymentID,
		)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}
