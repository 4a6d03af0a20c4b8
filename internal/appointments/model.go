package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// PaymentStatus tracks the payment side of an appointment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// Appointment is a booked consultation occupying one schedule slot.
type Appointment struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	PhysicianID     uuid.UUID
	SlotID          uuid.UUID
	Date            string
	StartTime       string
	EndTime         string
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentIntentID string
	Amount          float64
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Summary is an appointment joined with its physician, shaped for
// chatbot listings.
type Summary struct {
	ID            uuid.UUID
	Date          string
	StartTime     string
	EndTime       string
	Status        Status
	PaymentStatus PaymentStatus
	Amount        float64
	PhysicianName string
	Specialty     string
}
