package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/payments"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore enforces the active slot key the same way the database index does.
type memStore struct {
	mu           sync.Mutex
	appts        map[string]model.Appointment
	active       map[model.SlotKey]string
	payments     map[string]model.PaymentRecord
	names        map[string]string
	failPayments bool
}

func newMemStore() *memStore {
	return &memStore{
		appts:    map[string]model.Appointment{},
		active:   map[model.SlotKey]string{},
		payments: map[string]model.PaymentRecord{},
		names:    map[string]string{},
	}
}

func (s *memStore) BookedFor(_ context.Context, pharmacyID, localDate string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for _, a := range s.appts {
		if a.PharmacyID == pharmacyID && a.LocalDate == localDate && a.Status == model.AppointmentActive {
			out = append(out, a.ScheduledAt)
		}
	}
	return out, nil
}

func (s *memStore) InsertAppointment(_ context.Context, appt model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.active[appt.Key()]; taken {
		return ErrSlotConflict
	}
	s.active[appt.Key()] = appt.ID
	s.appts[appt.ID] = appt
	return nil
}

func (s *memStore) InsertPayment(_ context.Context, rec model.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPayments {
		return &StorageError{Op: "insert payment", Err: errors.New("connection reset")}
	}
	if _, ok := s.payments[rec.AppointmentID]; ok {
		return ErrPaymentExists
	}
	s.payments[rec.AppointmentID] = rec
	return nil
}

func (s *memStore) GetAppointment(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	return a, nil
}

func (s *memStore) PaymentFor(_ context.Context, appointmentID string) (model.PaymentRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[appointmentID]
	return p, ok, nil
}

func (s *memStore) SetCheckoutSession(_ context.Context, paymentID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range s.payments {
		if p.ID == paymentID {
			p.CheckoutSessionID = sessionID
			s.payments[k] = p
			return nil
		}
	}
	return ErrPaymentNotFound
}

func (s *memStore) MarkPaid(_ context.Context, paymentID, sessionID string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, p := range s.payments {
		if p.ID == paymentID && p.Status == model.PaymentPending {
			p.Status = model.PaymentPaid
			p.CheckoutSessionID = sessionID
			p.PaidAt = &paidAt
			s.payments[k] = p
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) UpcomingRows(_ context.Context, patientID, fromDate string) ([]UpcomingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []UpcomingRow
	for _, a := range s.appts {
		if a.PatientID != patientID || a.LocalDate < fromDate {
			continue
		}
		row := UpcomingRow{Appointment: a}
		if name, ok := s.names[a.PharmacyID]; ok {
			row.PharmacyName = &name
		}
		if p, ok := s.payments[a.ID]; ok {
			row.Payment = &p
		}
		out = append(out, row)
	}
	return out, nil
}

type memDirectory map[string]model.Pharmacy

func (d memDirectory) GetPharmacy(_ context.Context, id string) (model.Pharmacy, error) {
	p, ok := d[id]
	if !ok {
		return model.Pharmacy{}, ErrPharmacyNotFound
	}
	return p, nil
}

type fakeCheckout struct {
	got []payments.CheckoutRequest
	err error
}

func (f *fakeCheckout) Create(_ context.Context, req payments.CheckoutRequest) (payments.CheckoutSession, error) {
	if f.err != nil {
		return payments.CheckoutSession{}, f.err
	}
	f.got = append(f.got, req)
	return payments.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.test/cs_test_1"}, nil
}
