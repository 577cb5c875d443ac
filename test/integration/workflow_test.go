//go:build integration

package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MadScie254/hospitalmanagement/internal/domain/appointment"
	"github.com/MadScie254/hospitalmanagement/internal/domain/approval"
	"github.com/MadScie254/hospitalmanagement/internal/domain/discharge"
	"github.com/MadScie254/hospitalmanagement/internal/domain/profile"
	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/db"
)

func TestMigrations_Idempotent(t *testing.T) {
	ctx := context.Background()
	applied, err := db.NewMigrator(globalPool, findMigrationsDir()).Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)

	statuses, err := db.NewMigrator(globalPool, findMigrationsDir()).Status(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		assert.True(t, s.Applied, "migration %d applied", s.Version)
	}
}

func TestWorkflow_BookAndDischarge(t *testing.T) {
	h := newHospital(t)
	ctx := context.Background()
	admin := h.admin(t)
	d := h.doctor(t, "shepherd")
	p := h.patient(t, "jane")

	booking := appointment.BookingRequest{DoctorID: d.ID, Date: calendar.NewDate(2025, 6, 1), Description: "scan review"}
	_, err := h.appointments.Book(ctx, asPatient(p), booking)
	require.ErrorIs(t, err, apperr.ErrNotApproved)

	_, err = h.approvals.Approve(ctx, admin, approval.KindDoctor, d.ID)
	require.NoError(t, err)
	dec, err := h.approvals.Approve(ctx, admin, approval.KindPatient, p.ID)
	require.NoError(t, err)
	require.NotNil(t, dec.EpisodeID)

	appt, err := h.appointments.Book(ctx, asPatient(p), booking)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusScheduled, appt.Status)

	// Day-only bookings share the day; timed slots are exclusive.
	_, err = h.appointments.Book(ctx, asPatient(p), booking)
	require.NoError(t, err)
	timed := booking
	timed.Time = "10:30"
	_, err = h.appointments.Book(ctx, asPatient(p), timed)
	require.NoError(t, err)
	_, err = h.appointments.Book(ctx, asPatient(p), timed)
	assert.ErrorIs(t, err, apperr.ErrSlotTaken)

	stored, err := h.appointments.Get(ctx, admin, appt.ID)
	require.NoError(t, err)
	assert.True(t, stored.ScheduledAt.Equal(appt.ScheduledAt))

	req := discharge.DischargeRequest{
		PatientID:     p.ID,
		DischargeDate: calendar.NewDate(2025, 5, 23),
		Charges: discharge.Charges{
			Room:     decimal.RequireFromString("100.00"),
			Medicine: decimal.RequireFromString("50.00"),
			Other:    decimal.RequireFromString("20.00"),
		},
	}
	bill, err := h.discharges.Discharge(ctx, asDoctor(d), req)
	require.NoError(t, err)
	assert.Equal(t, "170.00", bill.Total.StringFixed(2))
	assert.Equal(t, 3, bill.DaysSpent)

	reread, err := h.discharges.Get(ctx, asPatient(p), bill.ID)
	require.NoError(t, err)
	assert.True(t, reread.Total.Equal(decimal.NewFromInt(170)))
	assert.Equal(t, "2025-05-20", reread.AdmissionDate.String())
	assert.Equal(t, "2025-05-23", reread.DischargeDate.String())

	_, err = h.discharges.Discharge(ctx, asDoctor(d), req)
	assert.ErrorIs(t, err, apperr.ErrDuplicateDischarge)

	dash, err := h.approvals.Dashboard(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, dash.Discharges)
	assert.Equal(t, 3, dash.UpcomingAppointments)
	assert.Equal(t, 1, dash.Doctors[profile.StatusApproved])
}

func TestWorkflow_ConcurrentApprovalHasOneWinner(t *testing.T) {
	h := newHospital(t)
	admin := h.admin(t)
	p := h.patient(t, "racer")

	const admins = 6
	var wg sync.WaitGroup
	errs := make(chan error, admins)
	for i := 0; i < admins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.approvals.Approve(context.Background(), admin, approval.KindPatient, p.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
	}
	assert.Equal(t, 1, wins)

	episode, err := discharge.NewEpisodeRepo(globalPool).Latest(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, discharge.EpisodeAdmitted, episode.Status)
}

func TestWorkflow_ConcurrentDischargeHasOneWinner(t *testing.T) {
	h := newHospital(t)
	admin := h.admin(t)
	p := h.patient(t, "twice")
	_, err := h.approvals.Approve(context.Background(), admin, approval.KindPatient, p.ID)
	require.NoError(t, err)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.discharges.Discharge(context.Background(), admin, discharge.DischargeRequest{
				PatientID:     p.ID,
				DischargeDate: calendar.NewDate(2025, 5, 21),
				Charges:       discharge.Charges{Room: decimal.NewFromInt(10)},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, apperr.ErrDuplicateDischarge):
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestWorkflow_Readmit(t *testing.T) {
	h := newHospital(t)
	ctx := context.Background()
	admin := h.admin(t)
	p := h.patient(t, "returning")
	_, err := h.approvals.Approve(ctx, admin, approval.KindPatient, p.ID)
	require.NoError(t, err)

	_, err = h.discharges.Readmit(ctx, admin, p.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)

	req := discharge.DischargeRequest{PatientID: p.ID, DischargeDate: calendar.NewDate(2025, 5, 20)}
	_, err = h.discharges.Discharge(ctx, admin, req)
	require.NoError(t, err)

	episode, err := h.discharges.Readmit(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, discharge.EpisodeAdmitted, episode.Status)

	second, err := h.discharges.Discharge(ctx, admin, req)
	require.NoError(t, err)
	assert.Equal(t, episode.ID, second.EpisodeID)

	bills, total, err := h.discharges.ListForPatient(ctx, asPatient(p), 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, bills, 2)
}

func TestWorkflow_RejectedDoctorCannotBeBooked(t *testing.T) {
	h := newHospital(t)
	ctx := context.Background()
	admin := h.admin(t)
	d := h.doctor(t, "rejected")
	p := h.patient(t, "hopeful")

	_, err := h.approvals.Reject(ctx, admin, approval.KindDoctor, d.ID)
	require.NoError(t, err)
	_, err = h.approvals.Approve(ctx, admin, approval.KindDoctor, d.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidStateTransition)
	_, err = h.approvals.Approve(ctx, admin, approval.KindPatient, p.ID)
	require.NoError(t, err)

	_, err = h.appointments.Book(ctx, asPatient(p), appointment.BookingRequest{
		DoctorID: d.ID, Date: calendar.NewDate(2025, 6, 2), Description: "consult",
	})
	assert.ErrorIs(t, err, apperr.ErrNotApproved)
}
