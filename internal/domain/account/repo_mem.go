package account

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MadScie254/hospitalmanagement/internal/platform/apperr"
)

// MemoryRepository is a Repository backed by a map. It is safe for
// concurrent use.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[uuid.UUID]*Account)}
}

func (m *MemoryRepository) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Username, a.Username) {
			return fmt.Errorf("username %q: %w", a.Username, apperr.ErrUsernameTaken)
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	stored := *a
	m.accounts[a.ID] = &stored
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, apperr.ErrNotFound)
	}
	out := *a
	return &out, nil
}

func (m *MemoryRepository) GetByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.Username, username) {
			out := *a
			return &out, nil
		}
	}
	return nil, fmt.Errorf("account %q: %w", username, apperr.ErrNotFound)
}

func (m *MemoryRepository) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, apperr.ErrNotFound)
	}
	a.PasswordHash = hash
	a.UpdatedAt = time.Now().UTC()
	return nil
}
