package types

import "time"

// Appointment kinds.
const (
	AppointmentIndividual = "individual"
	AppointmentGroup      = "group"
)

// Appointment lifecycle states.
const (
	AppointmentScheduled   = "scheduled"
	AppointmentRescheduled = "rescheduled"
	AppointmentCancelled   = "cancelled"
	AppointmentCompleted   = "completed"
)

// Appointment is a scheduled session with a counselor. Individual
// appointments have a single attendee; group appointments may have many.
type Appointment struct {
	ID          int       `json:"id" db:"id"`
	CounselorID int       `json:"counselor_id" db:"counselor_id"`
	Kind        string    `json:"kind" db:"kind"`
	Status      string    `json:"status" db:"status"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	EndsAt      time.Time `json:"ends_at" db:"ends_at"`
	Reason      string    `json:"reason" db:"reason"`
	AttendeeIDs []int     `json:"attendee_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
