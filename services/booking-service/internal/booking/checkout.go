package booking

import (
	"context"
	"strings"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
)

// StartCheckout opens a hosted card payment for the pending payment record of
// one of the patient's appointments.
func (s *Service) StartCheckout(ctx context.Context, sess session.Session, appointmentID string) (payments.CheckoutSession, error) {
	if err := s.checkSession(sess); err != nil {
		return payments.CheckoutSession{}, err
	}
	if s.checkout == nil {
		return payments.CheckoutSession{}, ErrCheckoutUnavailable
	}
	appointmentID = strings.TrimSpace(appointmentID)
	if appointmentID == "" {
		return payments.CheckoutSession{}, &ValidationError{Fields: []string{"appointment_id"}}
	}

	appt, err := s.ownedAppointment(ctx, sess, appointmentID)
	if err != nil {
		return payments.CheckoutSession{}, err
	}
	rec, ok, err := s.store.PaymentFor(ctx, appt.ID)
	if err != nil {
		return payments.CheckoutSession{}, err
	}
	if !ok {
		return payments.CheckoutSession{}, ErrPaymentNotFound
	}
	if rec.Status == model.PaymentPaid {
		return payments.CheckoutSession{}, ErrAlreadyPaid
	}
	if rec.Method != model.MethodCard {
		return payments.CheckoutSession{}, &ValidationError{Fields: []string{"payment_method"}, Reason: "checkout requires card payment"}
	}

	cs, err := s.checkout.Create(ctx, payments.CheckoutRequest{
		PaymentID:     rec.ID,
		AppointmentID: appt.ID,
		PatientID:     sess.PatientID,
		ReceiptNumber: rec.ReceiptNumber,
	})
	if err != nil {
		s.logger.Error("checkout session create failed", "appointment_id", appt.ID, "err", err)
		return payments.CheckoutSession{}, err
	}
	if err := s.store.SetCheckoutSession(ctx, rec.ID, cs.ID); err != nil {
		return payments.CheckoutSession{}, err
	}
	return cs, nil
}

// ConfirmPayment settles a pending payment. Paid is terminal, so replays
// report false without error.
func (s *Service) ConfirmPayment(ctx context.Context, c payments.Completion) (bool, error) {
	updated, err := s.store.MarkPaid(ctx, c.PaymentID, c.SessionID, c.PaidAt)
	if err != nil {
		return false, err
	}
	if updated {
		s.observe("paid")
		s.logger.Info("payment settled",
			"payment_id", c.PaymentID,
			"appointment_id", c.AppointmentID,
			"receipt", c.ReceiptNumber,
			"provider_event_id", c.EventID,
		)
	}
	return updated, nil
}
