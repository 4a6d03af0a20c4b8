package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Physician is a bookable specialist with an associated schedule.
type Physician struct {
	ID                uuid.UUID
	Name              string
	Specialty         string
	Qualification     string
	ExperienceYears   int
	ConsultationPrice float64
	Bio               string
	Languages         []string
	IsActive          bool
	CreatedAt         time.Time
}

// TimeSlot is one bookable interval of a physician's day.
// Times use "HH:MM" 24-hour strings, dates "YYYY-MM-DD".
type TimeSlot struct {
	ID          uuid.UUID
	PhysicianID uuid.UUID
	Date        string
	StartTime   string
	EndTime     string
	IsAvailable bool
}

// OpenSlot is an available interval joined with its physician, as surfaced
// to the chatbot when listing availability.
type OpenSlot struct {
	SlotID            uuid.UUID
	PhysicianID       uuid.UUID
	PhysicianName     string
	Specialty         string
	Date              string
	StartTime         string
	EndTime           string
	ConsultationPrice float64
}

// PriceRange summarizes consultation fees within a specialty.
type PriceRange struct {
	Specialty string
	Min       float64
	Max       float64
}
