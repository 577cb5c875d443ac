package profile

import (
	"context"

	"github.com/google/uuid"
)

// Lists filter by approval status; the zero Status lists every status.

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Doctor, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Doctor, int, error)
	// TransitionStatus moves the doctor from one status to another and reports
	// whether a row matched both the id and the expected current status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*Patient, error)
	// GetForUpdate reads the patient and locks the row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Patient, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, status Status, limit, offset int) ([]*Patient, int, error)
	SetAssignedDoctor(ctx context.Context, id, doctorID uuid.UUID) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
