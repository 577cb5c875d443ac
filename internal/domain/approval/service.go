package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MadScie254/hospitalmanagement/internal/domain/discharge"
	"github.com/MadScie254/hospitalmanagement/internal/domain/profile"
	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/db"
	"github.com/MadScie254/hospitalmanagement/internal/platform/events"
)

// EpisodeOpener admits a patient within the transaction carried by ctx.
type EpisodeOpener interface {
	OpenEpisode(ctx context.Context, patientID uuid.UUID, on calendar.Date) (*discharge.Episode, error)
}

type UpcomingCounter interface {
	CountUpcoming(ctx context.Context) (int, error)
}

type DischargeCounter interface {
	Count(ctx context.Context) (int, error)
}

// Deps wires a Service. Tx, Publisher, Clock and Location default to NoTx,
// events.Nop, the system clock and UTC.
type Deps struct {
	Tx           db.Transactor
	Doctors      profile.DoctorRepository
	Patients     profile.PatientRepository
	Episodes     EpisodeOpener
	Appointments UpcomingCounter
	Discharges   DischargeCounter
	Publisher    events.Publisher
	Clock        calendar.Clock
	Location     *time.Location
	Logger       zerolog.Logger
}

type Service struct {
	tx           db.Transactor
	doctors      profile.DoctorRepository
	patients     profile.PatientRepository
	episodes     EpisodeOpener
	appointments UpcomingCounter
	discharges   DischargeCounter
	publisher    events.Publisher
	clock        calendar.Clock
	loc          *time.Location
	logger       zerolog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		tx:           d.Tx,
		doctors:      d.Doctors,
		patients:     d.Patients,
		episodes:     d.Episodes,
		appointments: d.Appointments,
		discharges:   d.Discharges,
		publisher:    d.Publisher,
		clock:        d.Clock,
		loc:          d.Location,
		logger:       d.Logger,
	}
	if s.tx == nil {
		s.tx = db.NoTx{}
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.clock == nil {
		s.clock = calendar.SystemClock{}
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// Approve moves a pending doctor or patient to approved. Approving a patient
// also admits them.
func (s *Service) Approve(ctx context.Context, actor auth.Principal, kind EntityKind, id uuid.UUID) (*Decision, error) {
	return s.decide(ctx, actor, kind, id, profile.StatusApproved)
}

// Reject moves a pending doctor or patient to rejected.
func (s *Service) Reject(ctx context.Context, actor auth.Principal, kind EntityKind, id uuid.UUID) (*Decision, error) {
	return s.decide(ctx, actor, kind, id, profile.StatusRejected)
}

func (s *Service) decide(ctx context.Context, actor auth.Principal, kind EntityKind, id uuid.UUID, to profile.Status) (*Decision, error) {
	if err := actor.Require(auth.CapReviewRegistrations); err != nil {
		return nil, err
	}
	kind, err := ParseKind(string(kind))
	if err != nil {
		return nil, err
	}

	dec := &Decision{Kind: kind, ID: id, Status: to, DecidedBy: actor.AccountID}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.transition(ctx, kind, id, to)
		if err != nil {
			return err
		}
		if !ok {
			current, err := s.currentStatus(ctx, kind, id)
			if err != nil {
				return err
			}
			return fmt.Errorf("%s %s is %s, not pending: %w", kind, id, current, apperr.ErrInvalidStateTransition)
		}
		if kind == KindPatient && to == profile.StatusApproved && s.episodes != nil {
			episode, err := s.episodes.OpenEpisode(ctx, id, calendar.Today(s.clock, s.loc))
			if err != nil {
				return err
			}
			dec.EpisodeID = &episode.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dec.DecidedAt = s.clock.Now().UTC()

	s.logger.Info().
		Str("kind", string(kind)).
		Str("id", id.String()).
		Str("status", string(to)).
		Str("actor", actor.AccountID.String()).
		Msg("registration reviewed")
	events.Emit(ctx, s.publisher, s.logger, events.New(eventType(kind, to), string(kind), id.String(), actor.AccountID.String(), dec))
	return dec, nil
}

// transition applies pending -> to as a single conditional update.
func (s *Service) transition(ctx context.Context, kind EntityKind, id uuid.UUID, to profile.Status) (bool, error) {
	if kind == KindDoctor {
		return s.doctors.TransitionStatus(ctx, id, profile.StatusPending, to)
	}
	return s.patients.TransitionStatus(ctx, id, profile.StatusPending, to)
}

// currentStatus re-reads the record after a lost transition. A missing record
// surfaces as apperr.ErrNotFound.
func (s *Service) currentStatus(ctx context.Context, kind EntityKind, id uuid.UUID) (profile.Status, error) {
	if kind == KindDoctor {
		d, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			return "", err
		}
		return d.Status, nil
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Status, nil
}

func eventType(kind EntityKind, to profile.Status) string {
	switch {
	case kind == KindDoctor && to == profile.StatusApproved:
		return events.DoctorApproved
	case kind == KindDoctor:
		return events.DoctorRejected
	case to == profile.StatusApproved:
		return events.PatientApproved
	default:
		return events.PatientRejected
	}
}

// ListPending returns registrations of one kind awaiting review, ordered by
// name.
func (s *Service) ListPending(ctx context.Context, actor auth.Principal, kind EntityKind, limit, offset int) ([]Applicant, int, error) {
	if err := actor.Require(auth.CapReviewRegistrations); err != nil {
		return nil, 0, err
	}
	kind, err := ParseKind(string(kind))
	if err != nil {
		return nil, 0, err
	}
	switch kind {
	case KindDoctor:
		doctors, total, err := s.doctors.List(ctx, profile.StatusPending, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		out := make([]Applicant, 0, len(doctors))
		for _, d := range doctors {
			out = append(out, doctorApplicant(d))
		}
		return out, total, nil
	case KindPatient:
		patients, total, err := s.patients.List(ctx, profile.StatusPending, limit, offset)
		if err != nil {
			return nil, 0, err
		}
		out := make([]Applicant, 0, len(patients))
		for _, p := range patients {
			out = append(out, patientApplicant(p))
		}
		return out, total, nil
	}
	return nil, 0, fmt.Errorf("unknown entity kind %q: %w", kind, apperr.ErrValidation)
}

func (s *Service) Dashboard(ctx context.Context, actor auth.Principal) (*Dashboard, error) {
	if err := actor.Require(auth.CapViewAllRecords); err != nil {
		return nil, err
	}
	doctors, err := s.doctors.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	patients, err := s.patients.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	dash := &Dashboard{Doctors: doctors, Patients: patients, GeneratedAt: s.clock.Now().UTC()}
	if s.appointments != nil {
		if dash.UpcomingAppointments, err = s.appointments.CountUpcoming(ctx); err != nil {
			return nil, fmt.Errorf("count appointments: %w", err)
		}
	}
	if s.discharges != nil {
		if dash.Discharges, err = s.discharges.Count(ctx); err != nil {
			return nil, fmt.Errorf("count discharges: %w", err)
		}
	}
	return dash, nil
}
