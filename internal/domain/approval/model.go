package approval

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/domain/profile"
	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
)

// EntityKind names the profile type under review.
type EntityKind string

const (
	KindDoctor  EntityKind = "doctor"
	KindPatient EntityKind = "patient"
)

func ParseKind(raw string) (EntityKind, error) {
	switch k := EntityKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindDoctor, KindPatient:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q: %w", raw, apperr.ErrValidation)
}

// Decision is the outcome of an approve or reject call.
type Decision struct {
	Kind      EntityKind     `json:"kind"`
	ID        uuid.UUID      `json:"id"`
	Status    profile.Status `json:"approval_status"`
	DecidedBy uuid.UUID      `json:"decided_by"`
	DecidedAt time.Time      `json:"decided_at"`
	// EpisodeID is set when approving a patient admitted them.
	EpisodeID *uuid.UUID `json:"episode_id,omitempty"`
}

// Applicant is a registration waiting for review.
type Applicant struct {
	Kind        EntityKind `json:"kind"`
	ID          uuid.UUID  `json:"id"`
	AccountID   uuid.UUID  `json:"account_id"`
	Name        string     `json:"name"`
	Mobile      string     `json:"mobile"`
	Department  string     `json:"department,omitempty"`
	Symptoms    string     `json:"symptoms,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

func doctorApplicant(d *profile.Doctor) Applicant {
	return Applicant{Kind: KindDoctor, ID: d.ID, AccountID: d.AccountID, Name: d.Name(),
		Mobile: d.Mobile, Department: d.Department, SubmittedAt: d.CreatedAt}
}

func patientApplicant(p *profile.Patient) Applicant {
	return Applicant{Kind: KindPatient, ID: p.ID, AccountID: p.AccountID, Name: p.Name(),
		Mobile: p.Mobile, Symptoms: p.Symptoms, SubmittedAt: p.CreatedAt}
}

// Dashboard is the admin landing page summary.
type Dashboard struct {
	Doctors              map[profile.Status]int `json:"doctors"`
	Patients             map[profile.Status]int `json:"patients"`
	UpcomingAppointments int                    `json:"upcoming_appointments"`
	Discharges           int                    `json:"discharges"`
	GeneratedAt          time.Time              `json:"generated_at"`
}
