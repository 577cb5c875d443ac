package discharge

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
)

// MemoryEpisodeRepository keeps episodes in insertion order, so the latest
// episode of a patient is the last one appended. LatestForUpdate takes no lock.
type MemoryEpisodeRepository struct {
	mu       sync.RWMutex
	episodes []*Episode
}

func NewMemoryEpisodeRepository() *MemoryEpisodeRepository {
	return &MemoryEpisodeRepository{}
}

func (m *MemoryEpisodeRepository) Create(_ context.Context, e *Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Status == "" {
		e.Status = EpisodeAdmitted
	}
	if e.Status == EpisodeAdmitted {
		for _, existing := range m.episodes {
			if existing.PatientID == e.PatientID && existing.Status == EpisodeAdmitted {
				return fmt.Errorf("patient %s already admitted: %w", e.PatientID, apperr.ErrInvalidStateTransition)
			}
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	m.episodes = append(m.episodes, cloneEpisode(e))
	return nil
}

func (m *MemoryEpisodeRepository) Latest(_ context.Context, patientID uuid.UUID) (*Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.episodes) - 1; i >= 0; i-- {
		if m.episodes[i].PatientID == patientID {
			return cloneEpisode(m.episodes[i]), nil
		}
	}
	return nil, fmt.Errorf("episode of patient %s: %w", patientID, apperr.ErrNotFound)
}

func (m *MemoryEpisodeRepository) LatestForUpdate(ctx context.Context, patientID uuid.UUID) (*Episode, error) {
	return m.Latest(ctx, patientID)
}

func (m *MemoryEpisodeRepository) MarkDischarged(_ context.Context, id uuid.UUID, admittedOn, dischargedOn calendar.Date) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.episodes {
		if e.ID != id {
			continue
		}
		if e.Status != EpisodeAdmitted {
			return false, nil
		}
		d := dischargedOn
		e.Status = EpisodeDischarged
		e.AdmittedOn = admittedOn
		e.DischargedOn = &d
		e.UpdatedAt = time.Now().UTC()
		return true, nil
	}
	return false, nil
}

func cloneEpisode(e *Episode) *Episode {
	out := *e
	if e.DischargedOn != nil {
		d := *e.DischargedOn
		out.DischargedOn = &d
	}
	return &out
}

// MemoryRepository is a Repository backed by a map. Like the table it allows
// one bill per episode.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Details
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[uuid.UUID]*Details)}
}

func (m *MemoryRepository) Create(_ context.Context, d *Details) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.EpisodeID == d.EpisodeID {
			return fmt.Errorf("episode %s already billed: %w", d.EpisodeID, apperr.ErrDuplicateDischarge)
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()
	m.items[d.ID] = cloneDetails(d)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Details, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("discharge %s: %w", id, apperr.ErrNotFound)
	}
	return cloneDetails(d), nil
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Details, int, error) {
	return m.filter(func(d *Details) bool { return d.PatientID == patientID }, limit, offset)
}

func (m *MemoryRepository) List(_ context.Context, limit, offset int) ([]*Details, int, error) {
	return m.filter(func(*Details) bool { return true }, limit, offset)
}

func (m *MemoryRepository) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

func (m *MemoryRepository) filter(keep func(*Details) bool, limit, offset int) ([]*Details, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*Details
	for _, d := range m.items {
		if keep(d) {
			matched = append(matched, cloneDetails(d))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.DischargeDate.Equal(b.DischargeDate) {
			return a.DischargeDate.After(b.DischargeDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func cloneDetails(d *Details) *Details {
	out := *d
	if d.DoctorID != nil {
		id := *d.DoctorID
		out.DoctorID = &id
	}
	return &out
}
