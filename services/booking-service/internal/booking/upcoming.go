package booking

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
)

// PaymentState is the payment column of an upcoming appointment.
type PaymentState string

const (
	PaymentNone    PaymentState = "none"
	PaymentPending PaymentState = PaymentState(model.PaymentPending)
	PaymentPaid    PaymentState = PaymentState(model.PaymentPaid)
)

type AppointmentView struct {
	AppointmentID string
	PharmacyID    string
	PharmacyName  string
	LocalDate     string
	SlotTime      string
	ScheduledAt   time.Time
	Reason        string
	Status        model.AppointmentStatus
	Payment       PaymentView
}

type PaymentView struct {
	State         PaymentState
	Method        model.PaymentMethod
	ReceiptNumber string
}

// Upcoming lists the session patient's active appointments dated today or
// later, ordered by date and slot. today defaults to the current date in the
// session's zone. Appointments whose pharmacy cannot be resolved are left out.
func (s *Service) Upcoming(ctx context.Context, sess session.Session, today string) ([]AppointmentView, error) {
	if err := s.checkSession(sess); err != nil {
		return nil, err
	}
	today = strings.TrimSpace(today)
	if today == "" {
		today = s.now().In(sess.Loc()).Format(availability.DateFormat)
	} else if _, err := time.Parse(availability.DateFormat, today); err != nil {
		return nil, &ValidationError{Fields: []string{"today"}}
	}

	rows, err := s.store.UpcomingRows(ctx, sess.PatientID, today)
	if err != nil {
		return nil, err
	}

	out := make([]AppointmentView, 0, len(rows))
	for _, row := range rows {
		a := row.Appointment
		if a.LocalDate < today || a.Status != model.AppointmentActive {
			continue
		}
		if row.PharmacyName == nil {
			s.logger.Debug("upcoming appointment without pharmacy skipped", "appointment_id", a.ID, "pharmacy_id", a.PharmacyID)
			continue
		}
		view := AppointmentView{
			AppointmentID: a.ID,
			PharmacyID:    a.PharmacyID,
			PharmacyName:  *row.PharmacyName,
			LocalDate:     a.LocalDate,
			SlotTime:      a.SlotTime,
			ScheduledAt:   a.ScheduledAt,
			Reason:        a.Reason,
			Status:        a.Status,
			Payment:       PaymentView{State: PaymentNone},
		}
		if p := row.Payment; p != nil {
			view.Payment = PaymentView{
				State:         PaymentState(p.Status),
				Method:        p.Method,
				ReceiptNumber: p.ReceiptNumber,
			}
		}
		out = append(out, view)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LocalDate != out[j].LocalDate {
			return out[i].LocalDate < out[j].LocalDate
		}
		return out[i].SlotTime < out[j].SlotTime
	})
	return out, nil
}
