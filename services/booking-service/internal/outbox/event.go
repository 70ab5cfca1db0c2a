package outbox

import (
	"encoding/json"
	"time"
)

// Event types published by the booking service. The Kafka topic equals the
// event type.
const (
	AppointmentBooked = "pharmacy.appointment.booked.v1"
	PaymentLinked     = "pharmacy.payment.linked.v1"
	PaymentPaid       = "pharmacy.payment.paid.v1"
)

// Event is the envelope written to the outbox table in the same transaction
// as the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type AppointmentBookedPayload struct {
	AppointmentID string    `json:"appointment_id"`
	PharmacyID    string    `json:"pharmacy_id"`
	PatientID     string    `json:"patient_id"`
	LocalDate     string    `json:"local_date"`
	SlotTime      string    `json:"slot_time"`
	ScheduledAt   time.Time `json:"scheduled_at"`
}

type PaymentPayload struct {
	PaymentID     string     `json:"payment_id"`
	AppointmentID string     `json:"appointment_id"`
	Method        string     `json:"method"`
	ReceiptNumber string     `json:"receipt_number,omitempty"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// NewEvent marshals payload into an event envelope.
func NewEvent(aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
