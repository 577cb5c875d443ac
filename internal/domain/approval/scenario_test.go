package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MadScie254/hospitalmanagement/internal/domain/account"
	"github.com/MadScie254/hospitalmanagement/internal/domain/appointment"
	"github.com/MadScie254/hospitalmanagement/internal/domain/approval"
	"github.com/MadScie254/hospitalmanagement/internal/domain/discharge"
	"github.com/MadScie254/hospitalmanagement/internal/domain/profile"
	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/events"
)

// hospital wires every workflow service over in-memory repositories.
type hospital struct {
	accounts     *account.Service
	profiles     *profile.Service
	approvals    *approval.Service
	appointments *appointment.Service
	discharges   *discharge.Service
	events       *events.Recorder
	clock        *calendar.FixedClock
}

func newHospital() *hospital {
	h := &hospital{
		events: &events.Recorder{},
		clock:  calendar.NewFixedClock(time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)),
	}
	logger := zerolog.Nop()
	doctors := profile.NewMemoryDoctorRepository()
	patients := profile.NewMemoryPatientRepository()
	issuer := auth.NewTokenIssuer(auth.JWTConfig{SigningKey: []byte("scenario-test-signing-key-0123456789"), TTL: time.Hour})

	h.accounts = account.NewService(account.NewMemoryRepository(), auth.NewPasswordHasher(bcrypt.MinCost), issuer, nil, logger)
	h.profiles = profile.NewService(profile.Deps{
		Accounts: h.accounts, Doctors: doctors, Patients: patients,
		Publisher: h.events, Clock: h.clock, Logger: logger,
	})
	h.appointments = appointment.NewService(appointment.Deps{
		Appointments: appointment.NewMemoryRepository(), Doctors: doctors, Patients: patients,
		Publisher: h.events, Clock: h.clock, Logger: logger,
	})
	h.discharges = discharge.NewService(discharge.Deps{
		Discharges: discharge.NewMemoryRepository(), Episodes: discharge.NewMemoryEpisodeRepository(),
		Doctors: doctors, Patients: patients,
		Publisher: h.events, Clock: h.clock, Logger: logger,
	})
	h.approvals = approval.NewService(approval.Deps{
		Doctors: doctors, Patients: patients,
		Episodes: h.discharges, Appointments: h.appointments, Discharges: h.discharges,
		Publisher: h.events, Clock: h.clock, Logger: logger,
	})
	return h
}

func (h *hospital) login(t *testing.T, username string, role auth.Role) auth.Principal {
	t.Helper()
	tok, err := h.accounts.Authenticate(context.Background(), username, "correct-horse", role)
	require.NoError(t, err)
	return auth.Principal{AccountID: tok.AccountID, Username: username, Role: tok.Role}
}

func TestHospitalWorkflow(t *testing.T) {
	h := newHospital()
	ctx := context.Background()

	_, err := h.profiles.RegisterAdmin(ctx, profile.RegisterAdminRequest{Username: "root", Password: "correct-horse"})
	require.NoError(t, err)
	admin := h.login(t, "root", auth.RoleAdmin)

	doctor, err := h.profiles.RegisterDoctor(ctx, profile.RegisterDoctorRequest{
		Username: "yang", Password: "correct-horse", FirstName: "Cristina", LastName: "Yang",
		Department: "Cardiologist", Mobile: "+254700000001",
	})
	require.NoError(t, err)
	patient, err := h.profiles.RegisterPatient(ctx, profile.RegisterPatientRequest{
		Username: "denny", Password: "correct-horse", FirstName: "Denny", LastName: "Duquette",
		Mobile: "0700000002", Symptoms: "heart failure",
	})
	require.NoError(t, err)
	assert.Equal(t, profile.StatusPending, patient.Status)

	asPatient := h.login(t, "denny", auth.RolePatient)
	booking := appointment.BookingRequest{
		DoctorID:    doctor.ID,
		Date:        calendar.NewDate(2025, 6, 1),
		Description: "pre-op consultation",
	}

	_, err = h.appointments.Book(ctx, asPatient, booking)
	require.ErrorIs(t, err, apperr.ErrNotApproved, "pending patient cannot book")

	_, err = h.approvals.Approve(ctx, admin, approval.KindDoctor, doctor.ID)
	require.NoError(t, err)
	dec, err := h.approvals.Approve(ctx, admin, approval.KindPatient, patient.ID)
	require.NoError(t, err)
	require.NotNil(t, dec.EpisodeID)

	_, err = h.approvals.Approve(ctx, admin, approval.KindDoctor, doctor.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition, "approving twice")

	appt, err := h.appointments.Book(ctx, asPatient, booking)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, appt.Status)
	assert.Equal(t, patient.ID, appt.PatientID)
	assert.Equal(t, doctor.ID, appt.DoctorID)

	asDoctor := h.login(t, "yang", auth.RoleDoctor)
	req := discharge.DischargeRequest{
		PatientID:     patient.ID,
		DischargeDate: calendar.NewDate(2025, 5, 25),
		Charges: discharge.Charges{
			Room:     decimal.NewFromInt(100),
			Medicine: decimal.NewFromInt(50),
			Other:    decimal.NewFromInt(20),
		},
	}
	bill, err := h.discharges.Discharge(ctx, asDoctor, req)
	require.NoError(t, err)
	assert.True(t, bill.Total.Equal(decimal.NewFromInt(170)), "total %s", bill.Total)
	assert.Equal(t, *dec.EpisodeID, bill.EpisodeID)
	assert.Equal(t, 5, bill.DaysSpent)

	_, err = h.discharges.Discharge(ctx, asDoctor, req)
	assert.ErrorIs(t, err, apperr.ErrDuplicateDischarge)

	own, total, err := h.discharges.ListForPatient(ctx, asPatient, 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, bill.ID, own[0].ID)

	dash, err := h.approvals.Dashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Doctors[profile.StatusApproved])
	assert.Equal(t, 1, dash.Patients[profile.StatusApproved])
	assert.Equal(t, 1, dash.UpcomingAppointments)
	assert.Equal(t, 1, dash.Discharges)

	assert.Equal(t, []string{
		events.AccountRegistered, events.AccountRegistered, events.AccountRegistered,
		events.DoctorApproved, events.PatientApproved,
		events.AppointmentBooked, events.PatientDischarged,
	}, h.events.Types())
}

func TestPendingDoctorBlocksBooking(t *testing.T) {
	h := newHospital()
	ctx := context.Background()
	admin, err := h.profiles.RegisterAdmin(ctx, profile.RegisterAdminRequest{Username: "root", Password: "correct-horse"})
	require.NoError(t, err)

	doctor, err := h.profiles.RegisterDoctor(ctx, profile.RegisterDoctorRequest{
		Username: "karev", Password: "correct-horse", FirstName: "Alex", LastName: "Karev", Mobile: "+254700000003",
	})
	require.NoError(t, err)
	patient, err := h.profiles.RegisterPatient(ctx, profile.RegisterPatientRequest{
		Username: "ava", Password: "correct-horse", FirstName: "Ava", LastName: "Unknown", Mobile: "0700000004", Symptoms: "amnesia",
	})
	require.NoError(t, err)
	_, err = h.approvals.Approve(ctx, admin.Principal(), approval.KindPatient, patient.ID)
	require.NoError(t, err)

	_, err = h.appointments.Book(ctx, h.login(t, "ava", auth.RolePatient), appointment.BookingRequest{
		DoctorID: doctor.ID, Date: calendar.NewDate(2025, 6, 1), Description: "follow up",
	})
	assert.ErrorIs(t, err, apperr.ErrNotApproved)
}
