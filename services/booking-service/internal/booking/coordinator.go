package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Request is a patient's slot selection.
type Request struct {
	PharmacyID    string
	LocalDate     string
	TimeOfDay     string
	Reason        string
	PaymentMethod model.PaymentMethod
}

type Outcome string

const (
	OutcomeBooked            Outcome = "booked"
	OutcomePaymentLinkFailed Outcome = "payment_link_failed"
)

// Result describes a committed appointment. When Outcome is
// OutcomePaymentLinkFailed the appointment is active but has no payment
// record, and Warning carries the cause.
type Result struct {
	Outcome       Outcome
	AppointmentID string
	LocalDate     string
	SlotTime      string
	ScheduledAt   time.Time
	Status        model.AppointmentStatus
	ReceiptNumber string
	PaymentStatus model.PaymentStatus
	Warning       *PaymentLinkError
}

// Book commits an appointment and then links its payment record. A slot taken
// concurrently yields ErrSlotConflict and nothing is written. A failed payment
// insert leaves the appointment in place and is reported through Result.
func (s *Service) Book(ctx context.Context, sess session.Session, req Request) (Result, error) {
	if err := s.checkSession(sess); err != nil {
		return Result{}, err
	}
	req, tod, err := validateRequest(req)
	if err != nil {
		s.observe("invalid")
		return Result{}, err
	}

	scheduledAt, err := tod.On(req.LocalDate, sess.Loc())
	if errors.Is(err, availability.ErrNonexistentTime) {
		s.observe("invalid")
		return Result{}, &ValidationError{Fields: []string{"time_of_day"}, Reason: "time does not exist on that date"}
	}
	if err != nil {
		return Result{}, &ValidationError{Fields: []string{"local_date"}}
	}

	ctx, span := s.tracer.Start(ctx, "booking.book", trace.WithAttributes(
		attribute.String("pharmacy.id", req.PharmacyID),
		attribute.String("booking.local_date", req.LocalDate),
		attribute.String("booking.slot", tod.String()),
	))
	defer span.End()

	// Once accepted the two writes run to completion even if the caller goes away.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	now := s.now()
	appt := model.Appointment{
		ID:          uuid.NewString(),
		PharmacyID:  req.PharmacyID,
		PatientID:   sess.PatientID,
		LocalDate:   req.LocalDate,
		SlotTime:    tod.String(),
		ScheduledAt: scheduledAt.UTC(),
		Reason:      req.Reason,
		Status:      model.AppointmentActive,
		CreatedAt:   now.UTC(),
	}
	if err := s.store.InsertAppointment(wctx, appt); err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotConflict) {
			span.SetStatus(codes.Error, "slot conflict")
			s.observe("conflict")
			s.logger.Info("booking conflict",
				"pharmacy_id", appt.PharmacyID,
				"local_date", appt.LocalDate,
				"slot", appt.SlotTime,
			)
			return Result{}, err
		}
		span.SetStatus(codes.Error, "appointment insert failed")
		s.observe("error")
		return Result{}, err
	}
	span.SetAttributes(attribute.String("appointment.id", appt.ID))

	result := Result{
		Outcome:       OutcomeBooked,
		AppointmentID: appt.ID,
		LocalDate:     appt.LocalDate,
		SlotTime:      appt.SlotTime,
		ScheduledAt:   appt.ScheduledAt,
		Status:        appt.Status,
	}

	rec, err := s.linkPayment(wctx, appt.ID, req.PaymentMethod, now)
	if err != nil {
		span.RecordError(err)
		s.observe(string(OutcomePaymentLinkFailed))
		s.logger.Error("payment linkage failed",
			"appointment_id", appt.ID,
			"pharmacy_id", appt.PharmacyID,
			"err", err,
		)
		result.Outcome = OutcomePaymentLinkFailed
		result.Warning = &PaymentLinkError{AppointmentID: appt.ID, Err: err}
		return result, nil
	}

	result.ReceiptNumber = rec.ReceiptNumber
	result.PaymentStatus = rec.Status
	s.observe(string(OutcomeBooked))
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"pharmacy_id", appt.PharmacyID,
		"local_date", appt.LocalDate,
		"slot", appt.SlotTime,
		"receipt", rec.ReceiptNumber,
	)
	return result, nil
}

// LinkPayment attaches a payment record to an active appointment of the
// session's patient that has none, typically after OutcomePaymentLinkFailed.
func (s *Service) LinkPayment(ctx context.Context, sess session.Session, appointmentID string, method model.PaymentMethod) (model.PaymentRecord, error) {
	if err := s.checkSession(sess); err != nil {
		return model.PaymentRecord{}, err
	}
	appointmentID = strings.TrimSpace(appointmentID)
	var bad []string
	if appointmentID == "" {
		bad = append(bad, "appointment_id")
	}
	if !method.IsValid() {
		bad = append(bad, "payment_method")
	}
	if len(bad) > 0 {
		return model.PaymentRecord{}, &ValidationError{Fields: bad}
	}

	appt, err := s.ownedAppointment(ctx, sess, appointmentID)
	if err != nil {
		return model.PaymentRecord{}, err
	}
	if appt.Status != model.AppointmentActive {
		return model.PaymentRecord{}, &ValidationError{Fields: []string{"appointment_id"}, Reason: "appointment is not active"}
	}
	if _, ok, err := s.store.PaymentFor(ctx, appt.ID); err != nil {
		return model.PaymentRecord{}, err
	} else if ok {
		return model.PaymentRecord{}, ErrPaymentExists
	}

	rec, err := s.linkPayment(ctx, appt.ID, method, s.now())
	if err != nil {
		if errors.Is(err, ErrPaymentExists) {
			return model.PaymentRecord{}, err
		}
		return model.PaymentRecord{}, &PaymentLinkError{AppointmentID: appt.ID, Err: err}
	}
	s.logger.Info("payment linked", "appointment_id", appt.ID, "receipt", rec.ReceiptNumber)
	return rec, nil
}

func (s *Service) linkPayment(ctx context.Context, appointmentID string, method model.PaymentMethod, now time.Time) (model.PaymentRecord, error) {
	rec := model.PaymentRecord{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		Method:        method,
		ReceiptNumber: payments.GenerateReceipt(method, now),
		Status:        model.PaymentPending,
		CreatedAt:     now.UTC(),
	}
	if err := s.store.InsertPayment(ctx, rec); err != nil {
		return model.PaymentRecord{}, err
	}
	return rec, nil
}

func (s *Service) ownedAppointment(ctx context.Context, sess session.Session, id string) (model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.PatientID != sess.PatientID {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	return appt, nil
}

func validateRequest(req Request) (Request, availability.TimeOfDay, error) {
	req.PharmacyID = strings.TrimSpace(req.PharmacyID)
	req.LocalDate = strings.TrimSpace(req.LocalDate)
	req.TimeOfDay = strings.TrimSpace(req.TimeOfDay)
	req.Reason = strings.TrimSpace(req.Reason)
	req.PaymentMethod = model.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))

	var bad []string
	if req.PharmacyID == "" {
		bad = append(bad, "pharmacy_id")
	}
	if _, err := time.Parse(availability.DateFormat, req.LocalDate); err != nil {
		bad = append(bad, "local_date")
	}
	tod, err := availability.ParseTimeOfDay(req.TimeOfDay)
	if err != nil || tod >= availability.EndOfDay {
		bad = append(bad, "time_of_day")
	}
	if req.Reason == "" {
		bad = append(bad, "reason")
	}
	if !req.PaymentMethod.IsValid() {
		bad = append(bad, "payment_method")
	}
	if len(bad) > 0 {
		return req, 0, &ValidationError{Fields: bad}
	}
	return req, tod, nil
}
