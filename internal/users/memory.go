package users

import (
	"context"
	"sync"
	"time"

	"github.com/gogotex/secrets/internal/models"
	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process memory. It backs tests and
// local runs without MongoDB; records are lost on restart.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byUsername map[string]string
	byGoogleID map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]string),
		byGoogleID: make(map[string]string),
	}
}

func (m *MemoryUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Username != "" {
		if _, ok := m.byUsername[u.Username]; ok {
			return nil, ErrDuplicateAccount
		}
	}
	if u.GoogleID != "" {
		if _, ok := m.byGoogleID[u.GoogleID]; ok {
			return nil, ErrDuplicateAccount
		}
	}
	rec := m.insertLocked(*u)
	return &rec, nil
}

func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyOf(id), nil
}

func (m *MemoryUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copyOf(m.byUsername[username]), nil
}

func (m *MemoryUserRepository) FindOrCreateByGoogleID(ctx context.Context, googleID string) (*models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byGoogleID[googleID]; ok {
		return m.copyOf(id), false, nil
	}
	rec := m.insertLocked(models.User{GoogleID: googleID})
	return &rec, true, nil
}

// Len returns the number of stored users.
func (m *MemoryUserRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *MemoryUserRepository) insertLocked(u models.User) models.User {
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	stored := u
	m.byID[u.ID] = &stored
	if u.Username != "" {
		m.byUsername[u.Username] = u.ID
	}
	if u.GoogleID != "" {
		m.byGoogleID[u.GoogleID] = u.ID
	}
	return u
}

func (m *MemoryUserRepository) copyOf(id string) *models.User {
	u, ok := m.byID[id]
	if !ok {
		return nil
	}
	c := *u
	return &c
}
