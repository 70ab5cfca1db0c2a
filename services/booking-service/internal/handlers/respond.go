package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/pharmavisit/libs/httpx"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusFor maps booking failures onto HTTP. Unknown errors are internal.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, session.ErrSession):
		return http.StatusForbidden, "session"
	case errors.Is(err, booking.ErrPharmacyNotFound):
		return http.StatusNotFound, "pharmacy_not_found"
	case errors.Is(err, booking.ErrAppointmentNotFound):
		return http.StatusNotFound, "appointment_not_found"
	case errors.Is(err, booking.ErrPaymentNotFound):
		return http.StatusNotFound, "payment_not_found"
	case errors.Is(err, booking.ErrSlotConflict):
		return http.StatusConflict, "slot_conflict"
	case errors.Is(err, booking.ErrPaymentExists):
		return http.StatusConflict, "payment_exists"
	case errors.Is(err, booking.ErrAlreadyPaid):
		return http.StatusConflict, "already_paid"
	case errors.Is(err, booking.ErrCheckoutUnavailable):
		return http.StatusNotImplemented, "checkout_unavailable"
	// Checked before network: a PaymentLinkError may wrap a network failure.
	case errors.Is(err, booking.ErrPaymentLinkFailed):
		return http.StatusBadGateway, "payment_link_failed"
	case errors.Is(err, booking.ErrNetwork):
		return http.StatusServiceUnavailable, "network"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := statusFor(err)
	resp := errorResponse{Error: err.Error(), Code: code}
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"code", code,
			"err", err,
		)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	writeJSON(w, status, resp)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &booking.ValidationError{Reason: "invalid json body"}
	}
	return nil
}
