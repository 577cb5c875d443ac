package appointment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
)

// MemoryRepository is a Repository backed by a map. Like the table index it
// allows one scheduled timed appointment per doctor instant; day-only
// appointments never conflict.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]*Appointment)}
}

func (m *MemoryRepository) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Status == StatusScheduled && a.HasTime {
		for _, existing := range m.items {
			if existing.Status == StatusScheduled && existing.HasTime && existing.DoctorID == a.DoctorID && existing.ScheduledAt.Equal(a.ScheduledAt) {
				return fmt.Errorf("doctor %s at %s: %w", a.DoctorID, a.ScheduledAt, apperr.ErrSlotTaken)
			}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	m.items[a.ID] = clone(a)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
	}
	return clone(a), nil
}

func (m *MemoryRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return m.GetByID(ctx, id)
}

func (m *MemoryRepository) Cancel(_ context.Context, id uuid.UUID, reason string, by uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok || a.Status != StatusScheduled {
		return false, nil
	}
	a.Status = StatusCancelled
	a.CancelReason = reason
	cancelledBy := by
	a.CancelledBy = &cancelledBy
	a.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	items, total := m.filter(func(a *Appointment) bool { return a.PatientID == patientID }, limit, offset)
	return items, total, nil
}

func (m *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	items, total := m.filter(func(a *Appointment) bool { return a.DoctorID == doctorID }, limit, offset)
	return items, total, nil
}

func (m *MemoryRepository) List(_ context.Context, status Status, limit, offset int) ([]*Appointment, int, error) {
	items, total := m.filter(func(a *Appointment) bool { return status == "" || a.Status == status }, limit, offset)
	return items, total, nil
}

func (m *MemoryRepository) ListScheduledBetween(_ context.Context, from, to time.Time) ([]*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Appointment
	for _, a := range m.items {
		if a.Status == StatusScheduled && !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ScheduledAt.Before(out[j].ScheduledAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (m *MemoryRepository) CountScheduledFrom(_ context.Context, from time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.items {
		if a.Status == StatusScheduled && !a.ScheduledAt.Before(from) {
			n++
		}
	}
	return n, nil
}

// filter returns the matching page, newest appointment first.
func (m *MemoryRepository) filter(keep func(*Appointment) bool, limit, offset int) ([]*Appointment, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*Appointment
	for _, a := range m.items {
		if keep(a) {
			matched = append(matched, clone(a))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ScheduledAt.Equal(matched[j].ScheduledAt) {
			return matched[i].ScheduledAt.After(matched[j].ScheduledAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	total := len(matched)
	if offset >= total {
		return nil, total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total
}

func clone(a *Appointment) *Appointment {
	out := *a
	if a.CancelledBy != nil {
		by := *a.CancelledBy
		out.CancelledBy = &by
	}
	return &out
}
