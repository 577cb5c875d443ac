package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns apperr.ErrSlotTaken when the doctor already has a
	// scheduled appointment at the same instant.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Cancel moves a scheduled appointment to cancelled and reports whether
	// it was still scheduled.
	Cancel(ctx context.Context, id uuid.UUID, reason string, by uuid.UUID, at time.Time) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// List filters by status; the zero Status lists everything.
	List(ctx context.Context, status Status, limit, offset int) ([]*Appointment, int, error)
	// ListScheduledBetween returns scheduled appointments with
	// from <= scheduled_at < to, earliest first.
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*Appointment, error)
	CountScheduledFrom(ctx context.Context, from time.Time) (int, error)
}
