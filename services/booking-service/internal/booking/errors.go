package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrSlotConflict        = errors.New("slot already booked")
	ErrSession             = session.ErrSession
	ErrPaymentLinkFailed   = errors.New("payment linkage failed")
	ErrStorage             = errors.New("storage failure")
	ErrNetwork             = errors.New("network failure")
	ErrPharmacyNotFound    = errors.New("pharmacy not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrPaymentExists       = errors.New("payment already linked")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrAlreadyPaid         = errors.New("payment already settled")
	ErrCheckoutUnavailable = errors.New("card checkout unavailable")
)

// ValidationError lists the request fields that are missing or malformed.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	msg := "invalid request"
	if e.Reason != "" {
		msg = e.Reason
	}
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	return msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PaymentLinkError is returned when the appointment committed but its payment
// record did not.
type PaymentLinkError struct {
	AppointmentID string
	Err           error
}

func (e *PaymentLinkError) Error() string {
	return fmt.Sprintf("appointment %s booked without payment record: %v", e.AppointmentID, e.Err)
}

func (e *PaymentLinkError) Unwrap() error { return e.Err }

func (e *PaymentLinkError) Is(target error) bool { return target == ErrPaymentLinkFailed }

// StorageError wraps a failed storage operation. Network marks failures where
// the database could not be reached or did not answer in time.
type StorageError struct {
	Op      string
	Network bool
	Err     error
}

func (e *StorageError) Error() string {
	kind := "storage"
	if e.Network {
		kind = "network"
	}
	return fmt.Sprintf("%s error during %s: %v", kind, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	if e.Network {
		return target == ErrNetwork
	}
	return target == ErrStorage
}
