package discharge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MadScie254/hospitalmanagement/internal/domain/profile"
	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/db"
	"github.com/MadScie254/hospitalmanagement/internal/platform/events"
)

// Deps wires a Service. Tx, Publisher, Clock and Location default to NoTx,
// events.Nop, the system clock and UTC.
type Deps struct {
	Tx         db.Transactor
	Discharges Repository
	Episodes   EpisodeRepository
	Doctors    profile.DoctorRepository
	Patients   profile.PatientRepository
	Publisher  events.Publisher
	Clock      calendar.Clock
	Location   *time.Location
	Logger     zerolog.Logger
}

type Service struct {
	tx         db.Transactor
	discharges Repository
	episodes   EpisodeRepository
	doctors    profile.DoctorRepository
	patients   profile.PatientRepository
	publisher  events.Publisher
	clock      calendar.Clock
	loc        *time.Location
	logger     zerolog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		tx:         d.Tx,
		discharges: d.Discharges,
		episodes:   d.Episodes,
		doctors:    d.Doctors,
		patients:   d.Patients,
		publisher:  d.Publisher,
		clock:      d.Clock,
		loc:        d.Location,
		logger:     d.Logger,
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

// Discharge closes the patient's open episode and records the bill. The
// patient row is locked first so concurrent discharges of one patient queue
// up behind each other even when no episode exists yet.
func (s *Service) Discharge(ctx context.Context, actor auth.Principal, req DischargeRequest) (*Details, error) {
	if err := actor.Require(auth.CapDischarge); err != nil {
		return nil, err
	}
	if req.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required: %w", apperr.ErrValidation)
	}
	if req.DischargeDate.IsZero() {
		return nil, fmt.Errorf("discharge_date is required: %w", apperr.ErrInvalidDate)
	}
	if !req.AdmissionDate.IsZero() && req.DischargeDate.Before(req.AdmissionDate) {
		return nil, fmt.Errorf("discharge %s before admission %s: %w", req.DischargeDate, req.AdmissionDate, apperr.ErrInvalidDate)
	}
	if err := req.Charges.Validate(); err != nil {
		return nil, err
	}

	var d *Details
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		patient, err := s.patients.GetForUpdate(ctx, req.PatientID)
		if err != nil {
			return err
		}
		doctorID, err := s.dischargingDoctor(ctx, actor, patient)
		if err != nil {
			return err
		}
		if !patient.Approved() {
			return fmt.Errorf("patient %s is %s: %w", patient.ID, patient.Status, apperr.ErrNotApproved)
		}

		episode, err := s.episodes.LatestForUpdate(ctx, patient.ID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			if req.AdmissionDate.IsZero() {
				return fmt.Errorf("admission_date is required without an open episode: %w", apperr.ErrInvalidDate)
			}
			episode = &Episode{PatientID: patient.ID, Status: EpisodeAdmitted, AdmittedOn: req.AdmissionDate}
			if err := s.episodes.Create(ctx, episode); err != nil {
				return err
			}
		case err != nil:
			return err
		case episode.Status == EpisodeDischarged:
			return fmt.Errorf("patient %s was discharged on %s: %w", patient.ID, episode.DischargedOn, apperr.ErrDuplicateDischarge)
		}

		admitted := req.AdmissionDate
		if admitted.IsZero() {
			admitted = episode.AdmittedOn
		}
		if req.DischargeDate.Before(admitted) {
			return fmt.Errorf("discharge %s before admission %s: %w", req.DischargeDate, admitted, apperr.ErrInvalidDate)
		}

		ok, err := s.episodes.MarkDischarged(ctx, episode.ID, admitted, req.DischargeDate)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("episode %s is no longer admitted: %w", episode.ID, apperr.ErrDuplicateDischarge)
		}

		d = &Details{
			PatientID:     patient.ID,
			EpisodeID:     episode.ID,
			DoctorID:      doctorID,
			DischargedBy:  actor.AccountID,
			AdmissionDate: admitted,
			DischargeDate: req.DischargeDate,
			DaysSpent:     req.DischargeDate.DaysSince(admitted),
			RoomCharge:    req.Charges.Room,
			MedicineCost:  req.Charges.Medicine,
			DoctorFee:     req.Charges.DoctorFee,
			OtherCharge:   req.Charges.Other,
			Total:         req.Charges.Total(),
		}
		return s.discharges.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", d.PatientID.String()).
		Str("episode_id", d.EpisodeID.String()).
		Str("total", d.Total.StringFixed(2)).
		Msg("patient discharged")
	events.Emit(ctx, s.publisher, s.logger, events.New(events.PatientDischarged, "patient", d.PatientID.String(), actor.AccountID.String(),
		map[string]any{"discharge_id": d.ID, "episode_id": d.EpisodeID, "total": d.Total.StringFixed(2), "days_spent": d.DaysSpent}))
	return d, nil
}

// dischargingDoctor returns the doctor recorded on the bill. A doctor actor
// must be approved and, when the patient has one, the assigned doctor.
func (s *Service) dischargingDoctor(ctx context.Context, actor auth.Principal, patient *profile.Patient) (*uuid.UUID, error) {
	if actor.Role != auth.RoleDoctor {
		return patient.AssignedDoctorID, nil
	}
	doctor, err := s.doctors.GetByAccountID(ctx, actor.AccountID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("no doctor profile for caller: %w", apperr.ErrPermissionDenied)
	}
	if err != nil {
		return nil, err
	}
	if !doctor.Approved() {
		return nil, fmt.Errorf("doctor %s is %s: %w", doctor.ID, doctor.Status, apperr.ErrPermissionDenied)
	}
	if patient.AssignedDoctorID != nil && *patient.AssignedDoctorID != doctor.ID {
		return nil, fmt.Errorf("patient %s is assigned to another doctor: %w", patient.ID, apperr.ErrPermissionDenied)
	}
	id := doctor.ID
	return &id, nil
}

// Readmit opens a new episode for an approved patient who is not currently
// admitted.
func (s *Service) Readmit(ctx context.Context, actor auth.Principal, patientID uuid.UUID) (*Episode, error) {
	if err := actor.Require(auth.CapReadmit); err != nil {
		return nil, err
	}
	var episode *Episode
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		patient, err := s.patients.GetForUpdate(ctx, patientID)
		if err != nil {
			return err
		}
		if !patient.Approved() {
			return fmt.Errorf("patient %s is %s: %w", patient.ID, patient.Status, apperr.ErrNotApproved)
		}
		latest, err := s.episodes.LatestForUpdate(ctx, patient.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if latest != nil && latest.Status == EpisodeAdmitted {
			return fmt.Errorf("patient %s is already admitted: %w", patient.ID, apperr.ErrInvalidStateTransition)
		}
		episode, err = s.OpenEpisode(ctx, patient.ID, calendar.Today(s.clock, s.loc))
		return err
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.PatientReadmitted, "patient", patientID.String(), actor.AccountID.String(),
		map[string]any{"episode_id": episode.ID, "admitted_on": episode.AdmittedOn.String()}))
	return episode, nil
}

// OpenEpisode admits the patient on the given day. It joins the transaction
// in ctx and carries no caller check; callers authorize first.
func (s *Service) OpenEpisode(ctx context.Context, patientID uuid.UUID, on calendar.Date) (*Episode, error) {
	e := &Episode{PatientID: patientID, Status: EpisodeAdmitted, AdmittedOn: on}
	if err := s.episodes.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// CurrentEpisode returns the patient's latest episode.
func (s *Service) CurrentEpisode(ctx context.Context, actor auth.Principal, patientID uuid.UUID) (*Episode, error) {
	if err := actor.Require(auth.CapViewAllRecords); err != nil {
		return nil, err
	}
	return s.episodes.Latest(ctx, patientID)
}

// Get returns a bill to an admin, the billed patient or the doctor on it.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Details, error) {
	if actor.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	d, err := s.discharges.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case auth.RoleAdmin:
		return d, nil
	case auth.RolePatient:
		p, err := s.patients.GetByAccountID(ctx, actor.AccountID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if p != nil && p.ID == d.PatientID {
			return d, nil
		}
	case auth.RoleDoctor:
		doc, err := s.doctors.GetByAccountID(ctx, actor.AccountID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		if doc != nil && d.DoctorID != nil && *d.DoctorID == doc.ID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("discharge %s: %w", id, apperr.ErrPermissionDenied)
}

// ListForPatient lists the calling patient's bills, latest discharge first.
func (s *Service) ListForPatient(ctx context.Context, actor auth.Principal, limit, offset int) ([]*Details, int, error) {
	if actor.Role != auth.RolePatient {
		return nil, 0, fmt.Errorf("only patients have own bills: %w", apperr.ErrPermissionDenied)
	}
	p, err := s.patients.GetByAccountID(ctx, actor.AccountID)
	if err != nil {
		return nil, 0, err
	}
	return s.discharges.ListByPatient(ctx, p.ID, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, actor auth.Principal, limit, offset int) ([]*Details, int, error) {
	if err := actor.Require(auth.CapViewAllRecords); err != nil {
		return nil, 0, err
	}
	return s.discharges.List(ctx, limit, offset)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.discharges.Count(ctx)
}
