package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

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
	Tx           db.Transactor
	Appointments Repository
	Doctors      profile.DoctorRepository
	Patients     profile.PatientRepository
	Publisher    events.Publisher
	Clock        calendar.Clock
	Location     *time.Location
	Logger       zerolog.Logger
}

type Service struct {
	tx           db.Transactor
	appointments Repository
	doctors      profile.DoctorRepository
	patients     profile.PatientRepository
	publisher    events.Publisher
	clock        calendar.Clock
	loc          *time.Location
	logger       zerolog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		tx:           d.Tx,
		appointments: d.Appointments,
		doctors:      d.Doctors,
		patients:     d.Patients,
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

// Book schedules an appointment between an approved patient and an approved
// doctor on a day that is not in the past.
func (s *Service) Book(ctx context.Context, actor auth.Principal, req BookingRequest) (*Appointment, error) {
	if err := actor.Require(auth.CapBookAppointment); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("description is required: %w", apperr.ErrValidation)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("description exceeds %d characters: %w", MaxDescriptionLength, apperr.ErrValidation)
	}
	if req.DoctorID == uuid.Nil {
		return nil, fmt.Errorf("doctor_id is required: %w", apperr.ErrValidation)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("date is required: %w", apperr.ErrInvalidDate)
	}
	hour, minute, err := parseClock(req.Time)
	if err != nil {
		return nil, err
	}
	hasTime := strings.TrimSpace(req.Time) != ""

	var a *Appointment
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		patient, err := s.bookingPatient(ctx, actor, req.PatientID)
		if err != nil {
			return err
		}
		if !patient.Approved() {
			return fmt.Errorf("patient %s is %s: %w", patient.ID, patient.Status, apperr.ErrNotApproved)
		}
		doctor, err := s.doctors.GetByID(ctx, req.DoctorID)
		if err != nil {
			return err
		}
		if !doctor.Approved() {
			return fmt.Errorf("doctor %s is %s: %w", doctor.ID, doctor.Status, apperr.ErrNotApproved)
		}

		now := s.clock.Now()
		today := calendar.DateOf(now, s.loc)
		if req.Date.Before(today) {
			return fmt.Errorf("appointment date %s is before %s: %w", req.Date, today, apperr.ErrInvalidDate)
		}
		scheduledAt := req.Date.At(hour, minute, s.loc)
		if hasTime && scheduledAt.Before(now) {
			return fmt.Errorf("appointment time %s is in the past: %w", scheduledAt.Format("2006-01-02 15:04"), apperr.ErrInvalidDate)
		}

		a = &Appointment{
			PatientID:   patient.ID,
			DoctorID:    doctor.ID,
			ScheduledAt: scheduledAt,
			HasTime:     hasTime,
			Description: description,
			Status:      StatusScheduled,
		}
		return s.appointments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.AppointmentBooked, "appointment", a.ID.String(), actor.AccountID.String(),
		map[string]any{"patient_id": a.PatientID, "doctor_id": a.DoctorID, "scheduled_at": a.ScheduledAt}))
	return a, nil
}

// bookingPatient resolves whose appointment is being booked. Patients always
// book for themselves; admins must name the patient.
func (s *Service) bookingPatient(ctx context.Context, actor auth.Principal, requested uuid.UUID) (*profile.Patient, error) {
	if actor.Can(auth.CapBookForAnyPatient) {
		if requested == uuid.Nil {
			return nil, fmt.Errorf("patient_id is required: %w", apperr.ErrValidation)
		}
		return s.patients.GetByID(ctx, requested)
	}
	own, err := s.patients.GetByAccountID(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	if requested != uuid.Nil && requested != own.ID {
		return nil, fmt.Errorf("patient may only book for themselves: %w", apperr.ErrPermissionDenied)
	}
	return own, nil
}

// Cancel cancels a scheduled appointment that has not started yet. The
// patient, the doctor and admins may cancel.
func (s *Service) Cancel(ctx context.Context, actor auth.Principal, id uuid.UUID, reason string) (*Appointment, error) {
	if err := actor.Require(auth.CapCancelAppointment); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > MaxCancelReasonLength {
		return nil, fmt.Errorf("reason exceeds %d characters: %w", MaxCancelReasonLength, apperr.ErrValidation)
	}

	var a *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := s.appointments.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, actor, current); err != nil {
			return err
		}
		if current.Status != StatusScheduled {
			return fmt.Errorf("appointment %s is %s: %w", id, current.Status, apperr.ErrInvalidStateTransition)
		}
		now := s.clock.Now()
		if current.Started(now, s.loc) {
			return fmt.Errorf("appointment %s already started: %w", id, apperr.ErrInvalidDate)
		}
		ok, err := s.appointments.Cancel(ctx, id, reason, actor.AccountID, now.UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("appointment %s is no longer scheduled: %w", id, apperr.ErrInvalidStateTransition)
		}
		a, err = s.appointments.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.AppointmentCancelled, "appointment", a.ID.String(), actor.AccountID.String(),
		map[string]any{"patient_id": a.PatientID, "doctor_id": a.DoctorID, "reason": a.CancelReason}))
	return a, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Appointment, error) {
	if actor.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, a); err != nil {
		return nil, err
	}
	return a, nil
}

// authorize admits admins and the two parties of the appointment.
func (s *Service) authorize(ctx context.Context, actor auth.Principal, a *Appointment) error {
	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RolePatient:
		p, err := s.patients.GetByAccountID(ctx, actor.AccountID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if p != nil && p.ID == a.PatientID {
			return nil
		}
	case auth.RoleDoctor:
		d, err := s.doctors.GetByAccountID(ctx, actor.AccountID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		if d != nil && d.ID == a.DoctorID {
			return nil
		}
	}
	return fmt.Errorf("appointment %s: %w", a.ID, apperr.ErrPermissionDenied)
}

// ListForPatient lists the calling patient's appointments, newest first.
func (s *Service) ListForPatient(ctx context.Context, actor auth.Principal, limit, offset int) ([]*Appointment, int, error) {
	if actor.Role != auth.RolePatient {
		return nil, 0, fmt.Errorf("only patients have own appointments: %w", apperr.ErrPermissionDenied)
	}
	p, err := s.patients.GetByAccountID(ctx, actor.AccountID)
	if err != nil {
		return nil, 0, err
	}
	return s.appointments.ListByPatient(ctx, p.ID, limit, offset)
}

// ListForDoctor lists the calling doctor's appointments. Unapproved doctors
// get NotApproved.
func (s *Service) ListForDoctor(ctx context.Context, actor auth.Principal, limit, offset int) ([]*Appointment, int, error) {
	if err := actor.Require(auth.CapViewOwnPatients); err != nil {
		return nil, 0, err
	}
	d, err := s.doctors.GetByAccountID(ctx, actor.AccountID)
	if err != nil {
		return nil, 0, err
	}
	if !d.Approved() {
		return nil, 0, fmt.Errorf("doctor %s is %s: %w", d.ID, d.Status, apperr.ErrNotApproved)
	}
	return s.appointments.ListByDoctor(ctx, d.ID, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, actor auth.Principal, status Status, limit, offset int) ([]*Appointment, int, error) {
	if err := actor.Require(auth.CapViewAllRecords); err != nil {
		return nil, 0, err
	}
	return s.appointments.List(ctx, status, limit, offset)
}

// ListUpcoming returns scheduled appointments in [from, to). It carries no
// caller check and backs background jobs only.
func (s *Service) ListUpcoming(ctx context.Context, from, to time.Time) ([]*Appointment, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("window %s..%s is empty: %w", from, to, apperr.ErrInvalidDate)
	}
	return s.appointments.ListScheduledBetween(ctx, from, to)
}

// CountUpcoming counts scheduled appointments from now on.
func (s *Service) CountUpcoming(ctx context.Context) (int, error) {
	return s.appointments.CountScheduledFrom(ctx, s.clock.Now())
}

func ParseStatus(raw string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(raw))); st {
	case "", StatusScheduled, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown appointment status %q: %w", raw, apperr.ErrValidation)
}

func parseClock(raw string) (int, int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, 0, nil
	}
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("time %q must be HH:MM: %w", raw, apperr.ErrValidation)
	}
	return t.Hour(), t.Minute(), nil
}
