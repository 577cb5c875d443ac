package discharge

import (
	"context"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
)

type EpisodeRepository interface {
	// Create returns apperr.ErrInvalidStateTransition when the patient
	// already has an admitted episode.
	Create(ctx context.Context, e *Episode) error
	// Latest returns the most recent episode, apperr.ErrNotFound when the
	// patient has none. LatestForUpdate also locks it.
	Latest(ctx context.Context, patientID uuid.UUID) (*Episode, error)
	LatestForUpdate(ctx context.Context, patientID uuid.UUID) (*Episode, error)
	// MarkDischarged closes an admitted episode and reports whether it was
	// still admitted.
	MarkDischarged(ctx context.Context, id uuid.UUID, admittedOn, dischargedOn calendar.Date) (bool, error)
}

type Repository interface {
	// Create returns apperr.ErrDuplicateDischarge when the episode already has
	// a bill.
	Create(ctx context.Context, d *Details) error
	GetByID(ctx context.Context, id uuid.UUID) (*Details, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Details, int, error)
	List(ctx context.Context, limit, offset int) ([]*Details, int, error)
	Count(ctx context.Context) (int, error)
}
