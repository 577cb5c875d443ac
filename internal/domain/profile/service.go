package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MadScie254/hospitalmanagement/internal/domain/account"
	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/db"
	"github.com/MadScie254/hospitalmanagement/internal/platform/events"
)

// Deps wires a Service. Tx, Publisher, Clock and Location default to NoTx,
// events.Nop, the system clock and UTC.
type Deps struct {
	Tx        db.Transactor
	Accounts  *account.Service
	Doctors   DoctorRepository
	Patients  PatientRepository
	Publisher events.Publisher
	Clock     calendar.Clock
	Location  *time.Location
	Logger    zerolog.Logger
}

type Service struct {
	tx        db.Transactor
	accounts  *account.Service
	doctors   DoctorRepository
	patients  PatientRepository
	publisher events.Publisher
	clock     calendar.Clock
	loc       *time.Location
	logger    zerolog.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		tx:        d.Tx,
		accounts:  d.Accounts,
		doctors:   d.Doctors,
		patients:  d.Patients,
		publisher: d.Publisher,
		clock:     d.Clock,
		loc:       d.Location,
		logger:    d.Logger,
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

func (s *Service) today() calendar.Date {
	return calendar.Today(s.clock, s.loc)
}

// RegisterDoctor creates the login account and a pending doctor profile in
// one transaction.
func (s *Service) RegisterDoctor(ctx context.Context, req RegisterDoctorRequest) (*Doctor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var d *Doctor
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		acct, err := s.accounts.Create(ctx, req.Username, req.Password, auth.RoleDoctor)
		if err != nil {
			return err
		}
		d = &Doctor{
			AccountID:  acct.ID,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Department: req.Department,
			Mobile:     req.Mobile,
			Address:    req.Address,
			Status:     StatusPending,
		}
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.AccountRegistered, "doctor", d.ID.String(), d.AccountID.String(),
		map[string]string{"role": string(auth.RoleDoctor), "department": d.Department}))
	return d, nil
}

// RegisterPatient creates the login account and a pending patient profile in
// one transaction. A requested doctor must already be approved.
func (s *Service) RegisterPatient(ctx context.Context, req RegisterPatientRequest) (*Patient, error) {
	if err := req.Validate(s.today()); err != nil {
		return nil, err
	}

	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if req.AssignedDoctorID != nil {
			doc, err := s.doctors.GetByID(ctx, *req.AssignedDoctorID)
			if err != nil {
				return err
			}
			if !doc.Approved() {
				return fmt.Errorf("doctor %s is %s: %w", doc.ID, doc.Status, apperr.ErrNotApproved)
			}
		}
		acct, err := s.accounts.Create(ctx, req.Username, req.Password, auth.RolePatient)
		if err != nil {
			return err
		}
		p = &Patient{
			AccountID:        acct.ID,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			AssignedDoctorID: req.AssignedDoctorID,
			BloodGroup:       req.BloodGroup,
			DateOfBirth:      req.DateOfBirth,
			EmergencyContact: req.EmergencyContact,
			Mobile:           req.Mobile,
			Address:          req.Address,
			Symptoms:         req.Symptoms,
			Status:           StatusPending,
		}
		return s.patients.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.AccountRegistered, "patient", p.ID.String(), p.AccountID.String(),
		map[string]string{"role": string(auth.RolePatient)}))
	return p, nil
}

// RegisterAdmin creates an admin account. Admins have no profile row.
func (s *Service) RegisterAdmin(ctx context.Context, req RegisterAdminRequest) (*account.Account, error) {
	var acct *account.Account
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		acct, err = s.accounts.Create(ctx, req.Username, req.Password, auth.RoleAdmin)
		return err
	})
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.New(events.AccountRegistered, "admin", acct.ID.String(), acct.ID.String(),
		map[string]string{"role": string(auth.RoleAdmin)}))
	return acct, nil
}

// GetDoctor returns a doctor. Non-admins only see approved doctors and
// themselves.
func (s *Service) GetDoctor(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Doctor, error) {
	if actor.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Can(auth.CapViewAllRecords) && !d.Approved() && d.AccountID != actor.AccountID {
		return nil, fmt.Errorf("doctor %s: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

// GetPatient returns a patient to an admin, to the patient themselves or to
// the doctor the patient is assigned to.
func (s *Service) GetPatient(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Patient, error) {
	if actor.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canSeePatient(ctx, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) canSeePatient(ctx context.Context, actor auth.Principal, p *Patient) error {
	switch {
	case actor.Can(auth.CapViewAllRecords):
		return nil
	case actor.Role == auth.RolePatient && p.AccountID == actor.AccountID:
		return nil
	case actor.Role == auth.RoleDoctor && p.AssignedDoctorID != nil:
		doc, err := s.doctors.GetByAccountID(ctx, actor.AccountID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				break
			}
			return err
		}
		if doc.ID == *p.AssignedDoctorID {
			return nil
		}
	}
	return fmt.Errorf("patient %s: %w", p.ID, apperr.ErrPermissionDenied)
}

// Me returns the caller's account and, for doctors and patients, the profile
// it owns.
func (s *Service) Me(ctx context.Context, actor auth.Principal) (*Me, error) {
	if actor.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	acct, err := s.accounts.Get(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	me := &Me{Account: acct}
	switch acct.Role {
	case auth.RoleDoctor:
		if me.Doctor, err = s.doctors.GetByAccountID(ctx, acct.ID); err != nil {
			return nil, err
		}
	case auth.RolePatient:
		if me.Patient, err = s.patients.GetByAccountID(ctx, acct.ID); err != nil {
			return nil, err
		}
		me.Age = me.Patient.Age(s.today())
	}
	return me, nil
}

// ListDoctors lists doctors by status for admins. Everyone else gets the
// approved doctors regardless of the requested status.
func (s *Service) ListDoctors(ctx context.Context, actor auth.Principal, status Status, limit, offset int) ([]*Doctor, int, error) {
	if actor.IsZero() {
		return nil, 0, apperr.ErrUnauthenticated
	}
	if !actor.Can(auth.CapViewAllRecords) {
		status = StatusApproved
	}
	return s.doctors.List(ctx, status, limit, offset)
}

func (s *Service) ListPatients(ctx context.Context, actor auth.Principal, status Status, limit, offset int) ([]*Patient, int, error) {
	if err := actor.Require(auth.CapViewAllRecords); err != nil {
		return nil, 0, err
	}
	return s.patients.List(ctx, status, limit, offset)
}

// ListPatientsOfDoctor lists the approved patients assigned to the calling
// doctor, who must be approved.
func (s *Service) ListPatientsOfDoctor(ctx context.Context, actor auth.Principal, limit, offset int) ([]*Patient, int, error) {
	if err := actor.Require(auth.CapViewOwnPatients); err != nil {
		return nil, 0, err
	}
	doc, err := s.doctors.GetByAccountID(ctx, actor.AccountID)
	if err != nil {
		return nil, 0, err
	}
	if !doc.Approved() {
		return nil, 0, fmt.Errorf("doctor %s is %s: %w", doc.ID, doc.Status, apperr.ErrNotApproved)
	}
	return s.patients.ListByDoctor(ctx, doc.ID, StatusApproved, limit, offset)
}

// AssignDoctor points a patient at an approved doctor.
func (s *Service) AssignDoctor(ctx context.Context, actor auth.Principal, patientID, doctorID uuid.UUID) (*Patient, error) {
	if err := actor.Require(auth.CapAssignDoctor); err != nil {
		return nil, err
	}

	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.GetForUpdate(ctx, patientID); err != nil {
			return err
		}
		doc, err := s.doctors.GetByID(ctx, doctorID)
		if err != nil {
			return err
		}
		if !doc.Approved() {
			return fmt.Errorf("doctor %s is %s: %w", doc.ID, doc.Status, apperr.ErrNotApproved)
		}
		if err := s.patients.SetAssignedDoctor(ctx, patientID, doctorID); err != nil {
			return err
		}
		p, err = s.patients.GetByID(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("patient_id", patientID.String()).
		Str("doctor_id", doctorID.String()).
		Str("actor_id", actor.AccountID.String()).
		Msg("doctor assigned")
	return p, nil
}
