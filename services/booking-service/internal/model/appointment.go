package model

import "time"

type AppointmentStatus string

const (
	AppointmentActive    AppointmentStatus = "active"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Appointment is a committed booking. LocalDate and SlotTime are stored exactly
// as the patient selected them; ScheduledAt is the absolute instant derived at
// submission and is never used to re-derive LocalDate.
type Appointment struct {
	ID          string
	PharmacyID  string
	PatientID   string
	LocalDate   string // YYYY-MM-DD
	SlotTime    string // HH:MM
	ScheduledAt time.Time
	Reason      string
	Status      AppointmentStatus
	CreatedAt   time.Time
}

// SlotKey is the uniqueness key for active appointments.
type SlotKey struct {
	PharmacyID string
	LocalDate  string
	SlotTime   string
}

func (a Appointment) Key() SlotKey {
	return SlotKey{PharmacyID: a.PharmacyID, LocalDate: a.LocalDate, SlotTime: a.SlotTime}
}
