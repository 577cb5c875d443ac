package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
)

// MemoryDoctorRepository is a DoctorRepository backed by a map.
type MemoryDoctorRepository struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*Doctor
}

func NewMemoryDoctorRepository() *MemoryDoctorRepository {
	return &MemoryDoctorRepository{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *MemoryDoctorRepository) Create(_ context.Context, d *Doctor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	stored := *d
	m.doctors[d.ID] = &stored
	return nil
}

func (m *MemoryDoctorRepository) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor %s: %w", id, apperr.ErrNotFound)
	}
	out := *d
	return &out, nil
}

func (m *MemoryDoctorRepository) GetByAccountID(_ context.Context, accountID uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.doctors {
		if d.AccountID == accountID {
			out := *d
			return &out, nil
		}
	}
	return nil, fmt.Errorf("doctor for account %s: %w", accountID, apperr.ErrNotFound)
}

func (m *MemoryDoctorRepository) List(_ context.Context, status Status, limit, offset int) ([]*Doctor, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*Doctor
	for _, d := range m.doctors {
		if status == "" || d.Status == status {
			out := *d
			matched = append(matched, &out)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return nameLess(matched[i].LastName, matched[i].FirstName, matched[i].ID,
			matched[j].LastName, matched[j].FirstName, matched[j].ID)
	})
	return page(matched, limit, offset), len(matched), nil
}

func (m *MemoryDoctorRepository) TransitionStatus(_ context.Context, id uuid.UUID, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.doctors[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	d.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryDoctorRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[Status]int{StatusPending: 0, StatusApproved: 0, StatusRejected: 0}
	for _, d := range m.doctors {
		counts[d.Status]++
	}
	return counts, nil
}

// MemoryPatientRepository is a PatientRepository backed by a map.
// GetForUpdate takes no lock.
type MemoryPatientRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient
}

func NewMemoryPatientRepository() *MemoryPatientRepository {
	return &MemoryPatientRepository{patients: make(map[uuid.UUID]*Patient)}
}

func (m *MemoryPatientRepository) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.patients[p.ID] = clonePatient(p)
	return nil
}

func (m *MemoryPatientRepository) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
	}
	return clonePatient(p), nil
}

func (m *MemoryPatientRepository) GetByAccountID(_ context.Context, accountID uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.AccountID == accountID {
			return clonePatient(p), nil
		}
	}
	return nil, fmt.Errorf("patient for account %s: %w", accountID, apperr.ErrNotFound)
}

func (m *MemoryPatientRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return m.GetByID(ctx, id)
}

func (m *MemoryPatientRepository) List(_ context.Context, status Status, limit, offset int) ([]*Patient, int, error) {
	return m.filter(func(p *Patient) bool { return status == "" || p.Status == status }, limit, offset)
}

func (m *MemoryPatientRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID, status Status, limit, offset int) ([]*Patient, int, error) {
	return m.filter(func(p *Patient) bool {
		return p.AssignedDoctorID != nil && *p.AssignedDoctorID == doctorID &&
			(status == "" || p.Status == status)
	}, limit, offset)
}

func (m *MemoryPatientRepository) SetAssignedDoctor(_ context.Context, id, doctorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
	}
	assigned := doctorID
	p.AssignedDoctorID = &assigned
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryPatientRepository) TransitionStatus(_ context.Context, id uuid.UUID, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryPatientRepository) CountByStatus(_ context.Context) (map[Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := map[Status]int{StatusPending: 0, StatusApproved: 0, StatusRejected: 0}
	for _, p := range m.patients {
		counts[p.Status]++
	}
	return counts, nil
}

func (m *MemoryPatientRepository) filter(keep func(*Patient) bool, limit, offset int) ([]*Patient, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*Patient
	for _, p := range m.patients {
		if keep(p) {
			matched = append(matched, clonePatient(p))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return nameLess(matched[i].LastName, matched[i].FirstName, matched[i].ID,
			matched[j].LastName, matched[j].FirstName, matched[j].ID)
	})
	return page(matched, limit, offset), len(matched), nil
}

func clonePatient(p *Patient) *Patient {
	out := *p
	if p.AssignedDoctorID != nil {
		id := *p.AssignedDoctorID
		out.AssignedDoctorID = &id
	}
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		out.DateOfBirth = &dob
	}
	return &out
}

func nameLess(lastA, firstA string, idA uuid.UUID, lastB, firstB string, idB uuid.UUID) bool {
	if lastA != lastB {
		return lastA < lastB
	}
	if firstA != firstB {
		return firstA < firstB
	}
	return idA.String() < idB.String()
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
