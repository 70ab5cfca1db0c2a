package model

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer:
		return true
	}
	return false
}

// PaymentRecord is linked 1:1 to an appointment after it is created. Its
// absence is a legal state (linkage failed after the appointment committed).
type PaymentRecord struct {
	ID                string
	AppointmentID     string
	Method            PaymentMethod
	ReceiptNumber     string
	Status            PaymentStatus
	CheckoutSessionID string
	PaidAt            *time.Time
	CreatedAt         time.Time
}
