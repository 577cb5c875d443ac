package appointment

import (
	"context"
	"fmt"

	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/events"
)

// ReminderJob publishes an appointment.reminder event for every appointment
// scheduled on the next clinic day. It runs on the jobs scheduler.
type ReminderJob struct {
	svc *Service
}

func NewReminderJob(svc *Service) *ReminderJob {
	return &ReminderJob{svc: svc}
}

func (j *ReminderJob) Name() string { return "appointment-reminders" }

func (j *ReminderJob) Run(ctx context.Context) error {
	tomorrow := calendar.Today(j.svc.clock, j.svc.loc).AddDays(1)
	from := tomorrow.At(0, 0, j.svc.loc)
	to := tomorrow.AddDays(1).At(0, 0, j.svc.loc)

	upcoming, err := j.svc.ListUpcoming(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list appointments on %s: %w", tomorrow, err)
	}
	for _, a := range upcoming {
		events.Emit(ctx, j.svc.publisher, j.svc.logger, events.New(events.AppointmentReminder, "appointment", a.ID.String(), "",
			map[string]any{"patient_id": a.PatientID, "doctor_id": a.DoctorID, "scheduled_at": a.ScheduledAt}))
	}
	j.svc.logger.Info().Int("count", len(upcoming)).Str("day", tomorrow.String()).Msg("appointment reminders sent")
	return nil
}
