// Package events carries workflow notifications (approvals, bookings,
// discharges) from the services to side channels: the log, the admin
// websocket stream and Prometheus counters.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DoctorApproved       = "doctor.approved"
	DoctorRejected       = "doctor.rejected"
	PatientApproved      = "patient.approved"
	PatientRejected      = "patient.rejected"
	AppointmentBooked    = "appointment.booked"
	AppointmentCancelled = "appointment.cancelled"
	AppointmentReminder  = "appointment.reminder"
	PatientDischarged    = "patient.discharged"
	PatientReadmitted    = "patient.readmitted"
	AccountRegistered    = "account.registered"
)

// Topics group event types for websocket subscribers.
const (
	TopicApprovals    = "approvals"
	TopicAppointments = "appointments"
	TopicDischarges   = "discharges"
	TopicAccounts     = "accounts"
)

var topicOf = map[string]string{
	DoctorApproved:       TopicApprovals,
	DoctorRejected:       TopicApprovals,
	PatientApproved:      TopicApprovals,
	PatientRejected:      TopicApprovals,
	AppointmentBooked:    TopicAppointments,
	AppointmentCancelled: TopicAppointments,
	AppointmentReminder:  TopicAppointments,
	PatientDischarged:    TopicDischarges,
	PatientReadmitted:    TopicDischarges,
	AccountRegistered:    TopicAccounts,
}

// Event is a committed workflow state change.
type Event struct {
	Type       string          `json:"type"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id"`
	ActorID    string          `json:"actor_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Topic returns the websocket topic of the event type.
func (e Event) Topic() string {
	if t, ok := topicOf[e.Type]; ok {
		return t
	}
	return "other"
}

// New builds an event stamped with the current time. data is JSON-encoded;
// a value that fails to encode is dropped.
func New(typ, entityKind, entityID, actorID string, data any) Event {
	e := Event{
		Type:       typ,
		EntityKind: entityKind,
		EntityID:   entityID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			e.Data = raw
		}
	}
	return e
}

// Publisher receives events after the transaction that produced them commits.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Multi fans an event out to every publisher and returns the first error.
// Every publisher is attempted.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info().
		Str("event_type", e.Type).
		Str("entity_kind", e.EntityKind).
		Str("entity_id", e.EntityID).
		Str("actor_id", e.ActorID).
		Time("occurred_at", e.OccurredAt).
		RawJSON("data", dataOrNull(e.Data)).
		Msg("workflow event")
	return nil
}

func dataOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

// Emit publishes and logs failures instead of returning them. Services call it
// after commit so a side channel can never fail a workflow operation.
func Emit(ctx context.Context, p Publisher, logger zerolog.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.Warn().Err(err).Str("event_type", e.Type).Str("entity_id", e.EntityID).Msg("publish event failed")
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publication order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
