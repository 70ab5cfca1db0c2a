package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/pharmavisit/libs/db"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/outbox"
)

// Repository is the Postgres implementation of booking.Store and
// booking.Directory.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

var (
	_ booking.Store     = (*Repository)(nil)
	_ booking.Directory = (*Repository)(nil)
)

func (r *Repository) BookedFor(ctx context.Context, pharmacyID, localDate string) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scheduled_at
		FROM appointments
		WHERE pharmacy_id = $1 AND local_date = $2 AND status = 'active'
	`, pharmacyID, localDate)
	if err != nil {
		return nil, classify("booked for", err)
	}
	booked, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	return booked, classify("booked for", err)
}

// InsertAppointment writes the appointment and its booked event atomically.
func (r *Repository) InsertAppointment(ctx context.Context, appt model.Appointment) error {
	evt, err := outbox.NewEvent("appointment", appt.ID, outbox.AppointmentBooked, outbox.AppointmentBookedPayload{
		AppointmentID: appt.ID,
		PharmacyID:    appt.PharmacyID,
		PatientID:     appt.PatientID,
		LocalDate:     appt.LocalDate,
		SlotTime:      appt.SlotTime,
		ScheduledAt:   appt.ScheduledAt,
	})
	if err != nil {
		return err
	}
	err = r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointments
				(id, pharmacy_id, patient_id, local_date, slot_time, scheduled_at, reason, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, appt.ID, appt.PharmacyID, appt.PatientID, appt.LocalDate, appt.SlotTime,
			appt.ScheduledAt, appt.Reason, string(appt.Status), appt.CreatedAt); err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	return classify("insert appointment", err)
}

func (r *Repository) InsertPayment(ctx context.Context, rec model.PaymentRecord) error {
	evt, err := outbox.NewEvent("payment", rec.ID, outbox.PaymentLinked, outbox.PaymentPayload{
		PaymentID:     rec.ID,
		AppointmentID: rec.AppointmentID,
		Method:        string(rec.Method),
		ReceiptNumber: rec.ReceiptNumber,
		Status:        string(rec.Status),
	})
	if err != nil {
		return err
	}
	err = r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payment_records (id, appointment_id, method, receipt_number, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rec.ID, rec.AppointmentID, string(rec.Method), rec.ReceiptNumber, string(rec.Status), rec.CreatedAt); err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	return classify("insert payment", err)
}

func (r *Repository) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	var (
		a      model.Appointment
		status string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, pharmacy_id, patient_id, local_date, slot_time, scheduled_at, reason, status, created_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(&a.ID, &a.PharmacyID, &a.PatientID, &a.LocalDate, &a.SlotTime, &a.ScheduledAt, &a.Reason, &status, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	if err != nil {
		return model.Appointment{}, classify("get appointment", err)
	}
	a.Status = model.AppointmentStatus(status)
	return a, nil
}

func (r *Repository) PaymentFor(ctx context.Context, appointmentID string) (model.PaymentRecord, bool, error) {
	if _, err := uuid.Parse(appointmentID); err != nil {
		return model.PaymentRecord{}, false, nil
	}
	var (
		p               model.PaymentRecord
		method, status  string
		checkoutSession *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, appointment_id::text, method, receipt_number, status, checkout_session_id, paid_at, created_at
		FROM payment_records
		WHERE appointment_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, appointmentID).Scan(&p.ID, &p.AppointmentID, &method, &p.ReceiptNumber, &status, &checkoutSession, &p.PaidAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PaymentRecord{}, false, nil
	}
	if err != nil {
		return model.PaymentRecord{}, false, classify("payment for", err)
	}
	p.Method = model.PaymentMethod(method)
	p.Status = model.PaymentStatus(status)
	if checkoutSession != nil {
		p.CheckoutSessionID = *checkoutSession
	}
	return p, true, nil
}

func (r *Repository) SetCheckoutSession(ctx context.Context, paymentID, sessionID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_records
		SET checkout_session_id = $2
		WHERE id = $1 AND status = 'pending'
	`, paymentID, sessionID)
	if err != nil {
		return classify("set checkout session", err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrPaymentNotFound
	}
	return nil
}

// MarkPaid moves a pending payment to paid and emits the paid event. It
// reports false when the payment is unknown or already paid.
func (r *Repository) MarkPaid(ctx context.Context, paymentID, sessionID string, paidAt time.Time) (bool, error) {
	if _, err := uuid.Parse(paymentID); err != nil {
		return false, nil
	}
	var updated bool
	err := r.pool.InTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var appointmentID, method, receipt string
		err := tx.QueryRow(ctx, `
			UPDATE payment_records
			SET status = 'paid',
				paid_at = $3,
				checkout_session_id = COALESCE(NULLIF($2, ''), checkout_session_id)
			WHERE id = $1 AND status = 'pending'
			RETURNING appointment_id::text, method, receipt_number
		`, paymentID, sessionID, paidAt).Scan(&appointmentID, &method, &receipt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		evt, err := outbox.NewEvent("payment", paymentID, outbox.PaymentPaid, outbox.PaymentPayload{
			PaymentID:     paymentID,
			AppointmentID: appointmentID,
			Method:        method,
			ReceiptNumber: receipt,
			Status:        string(model.PaymentPaid),
			PaidAt:        &paidAt,
		})
		if err != nil {
			return err
		}
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, classify("mark paid", err)
	}
	return updated, nil
}

func (r *Repository) UpcomingRows(ctx context.Context, patientID, fromDate string) ([]booking.UpcomingRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id::text, a.pharmacy_id, a.patient_id, a.local_date, a.slot_time, a.scheduled_at,
			a.reason, a.status, a.created_at,
			ph.name,
			pr.id::text, pr.method, pr.receipt_number, pr.status, pr.checkout_session_id, pr.paid_at, pr.created_at
		FROM appointments a
		LEFT JOIN pharmacies ph ON ph.id = a.pharmacy_id
		LEFT JOIN LATERAL (
			SELECT p.*
			FROM payment_records p
			WHERE p.appointment_id = a.id
			ORDER BY p.created_at DESC
			LIMIT 1
		) pr ON true
		WHERE a.patient_id = $1 AND a.local_date >= $2 AND a.status = 'active'
		ORDER BY a.local_date, a.slot_time
	`, patientID, fromDate)
	if err != nil {
		return nil, classify("upcoming", err)
	}
	out, err := pgx.CollectRows(rows, scanUpcoming)
	if err != nil {
		return nil, classify("upcoming", err)
	}
	return out, nil
}

func scanUpcoming(row pgx.CollectableRow) (booking.UpcomingRow, error) {
	var (
		a                                 model.Appointment
		status                            string
		pharmacyName                      *string
		payID, method, receipt, payStatus *string
		checkoutSession                   *string
		paidAt, payCreated                *time.Time
	)
	if err := row.Scan(&a.ID, &a.PharmacyID, &a.PatientID, &a.LocalDate, &a.SlotTime, &a.ScheduledAt,
		&a.Reason, &status, &a.CreatedAt,
		&pharmacyName,
		&payID, &method, &receipt, &payStatus, &checkoutSession, &paidAt, &payCreated); err != nil {
		return booking.UpcomingRow{}, err
	}
	a.Status = model.AppointmentStatus(status)

	out := booking.UpcomingRow{Appointment: a, PharmacyName: pharmacyName}
	if payID != nil {
		p := &model.PaymentRecord{
			ID:                *payID,
			AppointmentID:     a.ID,
			Method:            model.PaymentMethod(deref(method)),
			ReceiptNumber:     deref(receipt),
			Status:            model.PaymentStatus(deref(payStatus)),
			CheckoutSessionID: deref(checkoutSession),
			PaidAt:            paidAt,
		}
		if payCreated != nil {
			p.CreatedAt = *payCreated
		}
		out.Payment = p
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
