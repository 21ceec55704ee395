package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/gogotex/secrets/pkg/logger"
)

// MemoryRepository keeps sessions in process memory; they do not survive a
// restart. Expired entries are dropped on lookup and by Sweep.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]Session)}
}

func (m *MemoryRepository) Create(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.Token] = *s
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.store[token]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.Expired(time.Now().UTC()) {
		m.mu.Lock()
		delete(m.store, token)
		m.mu.Unlock()
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, token)
	return nil
}

// Sweep deletes every session expired at now and returns how many it removed.
func (m *MemoryRepository) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for tok, s := range m.store {
		if s.Expired(now) {
			delete(m.store, tok)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is done.
func (m *MemoryRepository) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := m.Sweep(now.UTC()); n > 0 {
					logger.Debugf("swept %d expired sessions", n)
				}
			}
		}
	}()
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
