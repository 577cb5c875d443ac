package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
)

const (
	MaxDescriptionLength  = 1000
	MaxCancelReasonLength = 500
)

type Appointment struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID     uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	ScheduledAt  time.Time  `db:"scheduled_at" json:"scheduled_at"`
	// HasTime is false for day-only bookings; ScheduledAt is then midnight
	// in the clinic zone and the appointment lasts the whole day.
	HasTime      bool       `db:"has_time" json:"has_time"`
	Description  string     `db:"description" json:"description"`
	Status       Status     `db:"status" json:"status"`
	CancelReason string     `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledBy  *uuid.UUID `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// BookingRequest asks for an appointment on Date. Time is an optional
// "15:04" wall-clock time in the clinic time zone; without it the booking
// holds the whole day and takes no slot. PatientID is taken from the caller
// for patients.
type BookingRequest struct {
	PatientID   uuid.UUID     `json:"patient_id"`
	DoctorID    uuid.UUID     `json:"doctor_id"`
	Date        calendar.Date `json:"date"`
	Time        string        `json:"time,omitempty"`
	Description string        `json:"description"`
}

// Started reports whether the appointment has begun at now. A day-only
// appointment counts as started once its day is over in loc.
func (a *Appointment) Started(now time.Time, loc *time.Location) bool {
	if a.HasTime {
		return !now.Before(a.ScheduledAt)
	}
	return calendar.DateOf(now, loc).After(calendar.DateOf(a.ScheduledAt, loc))
}

type CancelRequest struct {
	Reason string `json:"reason"`
}
