package storage

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
)

const (
	activeSlotKey      = "appointments_active_slot_key"
	paymentAppointment = "payment_records_appointment_key"
)

// classify maps driver errors onto the booking error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505" && pgErr.ConstraintName == activeSlotKey:
			return booking.ErrSlotConflict
		case pgErr.Code == "23505" && pgErr.ConstraintName == paymentAppointment:
			return booking.ErrPaymentExists
		case pgErr.Code == "23503":
			return booking.ErrAppointmentNotFound
		}
		return &booking.StorageError{Op: op, Err: err}
	}
	return &booking.StorageError{Op: op, Network: isNetwork(err), Err: err}
}

func isNetwork(err error) bool {
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
