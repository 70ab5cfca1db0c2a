package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
)

// Engine is the booking surface served over HTTP.
type Engine interface {
	Available(ctx context.Context, sess session.Session, pharmacyID, localDate string) ([]availability.TimeOfDay, error)
	Book(ctx context.Context, sess session.Session, req booking.Request) (booking.Result, error)
	Upcoming(ctx context.Context, sess session.Session, today string) ([]booking.AppointmentView, error)
	LinkPayment(ctx context.Context, sess session.Session, appointmentID string, method model.PaymentMethod) (model.PaymentRecord, error)
	StartCheckout(ctx context.Context, sess session.Session, appointmentID string) (payments.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, c payments.Completion) (bool, error)
}

type BookingHandler struct {
	engine   Engine
	sessions *SessionResolver
	logger   *slog.Logger
}

func NewBookingHandler(engine Engine, sessions *SessionResolver, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: engine, sessions: sessions, logger: logger}
}

type slotsResponse struct {
	PharmacyID string                   `json:"pharmacy_id"`
	LocalDate  string                   `json:"local_date"`
	Timezone   string                   `json:"timezone"`
	Slots      []availability.TimeOfDay `json:"slots"` // rendered as "HH:MM"
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := h.sessions.Resolve(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	pharmacyID := strings.TrimSpace(r.URL.Query().Get("pharmacy_id"))
	localDate := strings.TrimSpace(r.URL.Query().Get("date"))
	slots, err := h.engine.Available(r.Context(), sess, pharmacyID, localDate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if slots == nil {
		slots = []availability.TimeOfDay{}
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		PharmacyID: pharmacyID,
		LocalDate:  localDate,
		Timezone:   sess.Loc().String(),
		Slots:      slots,
	})
}

type bookRequest struct {
	PharmacyID    string `json:"pharmacy_id"`
	LocalDate     string `json:"local_date"`
	TimeOfDay     string `json:"time_of_day"`
	Reason        string `json:"reason"`
	PaymentMethod string `json:"payment_method"`
}

type bookResponse struct {
	Outcome       string `json:"outcome"`
	AppointmentID string `json:"appointment_id"`
	LocalDate     string `json:"local_date"`
	SlotTime      string `json:"slot_time"`
	ScheduledAt   string `json:"scheduled_at"`
	Status        string `json:"status"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
	Warning       string `json:"warning,omitempty"`
}

// Book answers 201 whenever the appointment committed, including when the
// payment record could not be linked; the outcome and warning say which.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := h.sessions.Resolve(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.engine.Book(r.Context(), sess, booking.Request{
		PharmacyID:    req.PharmacyID,
		LocalDate:     req.LocalDate,
		TimeOfDay:     req.TimeOfDay,
		Reason:        req.Reason,
		PaymentMethod: model.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := bookResponse{
		Outcome:       string(res.Outcome),
		AppointmentID: res.AppointmentID,
		LocalDate:     res.LocalDate,
		SlotTime:      res.SlotTime,
		ScheduledAt:   res.ScheduledAt.UTC().Format(time.RFC3339),
		Status:        string(res.Status),
		ReceiptNumber: res.ReceiptNumber,
		PaymentStatus: string(res.PaymentStatus),
	}
	if res.Warning != nil {
		resp.Warning = res.Warning.Error()
		h.logger.Warn("appointment booked without payment record",
			"appointment_id", res.AppointmentID,
			"err", res.Warning.Err,
		)
	}
	writeJSON(w, http.StatusCreated, resp)
}

type upcomingItem struct {
	AppointmentID string          `json:"appointment_id"`
	PharmacyID    string          `json:"pharmacy_id"`
	PharmacyName  string          `json:"pharmacy_name"`
	LocalDate     string          `json:"local_date"`
	SlotTime      string          `json:"slot_time"`
	ScheduledAt   string          `json:"scheduled_at"`
	Reason        string          `json:"reason"`
	Status        string          `json:"status"`
	Payment       upcomingPayment `json:"payment"`
}

type upcomingPayment struct {
	State         string `json:"state"`
	Method        string `json:"method,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
}

func (h *BookingHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := h.sessions.Resolve(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	views, err := h.engine.Upcoming(r.Context(), sess, strings.TrimSpace(r.URL.Query().Get("today")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items := make([]upcomingItem, 0, len(views))
	for _, v := range views {
		items = append(items, upcomingItem{
			AppointmentID: v.AppointmentID,
			PharmacyID:    v.PharmacyID,
			PharmacyName:  v.PharmacyName,
			LocalDate:     v.LocalDate,
			SlotTime:      v.SlotTime,
			ScheduledAt:   v.ScheduledAt.In(sess.Loc()).Format(time.RFC3339),
			Reason:        v.Reason,
			Status:        string(v.Status),
			Payment: upcomingPayment{
				State:         string(v.Payment.State),
				Method:        string(v.Payment.Method),
				ReceiptNumber: v.Payment.ReceiptNumber,
			},
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type linkPaymentRequest struct {
	AppointmentID string `json:"appointment_id"`
	PaymentMethod string `json:"payment_method"`
}

type paymentResponse struct {
	PaymentID     string `json:"payment_id"`
	AppointmentID string `json:"appointment_id"`
	Method        string `json:"method"`
	ReceiptNumber string `json:"receipt_number"`
	Status        string `json:"status"`
}

// LinkPayment retries payment linkage for an appointment booked without one.
func (h *BookingHandler) LinkPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, err := h.sessions.Resolve(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req linkPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
	rec, err := h.engine.LinkPayment(r.Context(), sess, strings.TrimSpace(req.AppointmentID), method)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentResponse{
		PaymentID:     rec.ID,
		AppointmentID: rec.AppointmentID,
		Method:        string(rec.Method),
		ReceiptNumber: rec.ReceiptNumber,
		Status:        string(rec.Status),
	})
}
