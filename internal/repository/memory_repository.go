package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/session"
)

// memorySweepInterval bounds how often Create scans for abandoned sessions.
const memorySweepInterval = time.Minute

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// memorySessionRepository keeps sessions in process. Sessions are stored
// encoded so callers never share memory with the store, matching Redis.
type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time

	lastSweep time.Time
}

// NewMemorySessionRepository creates an in-process session.Repository.
func NewMemorySessionRepository(ttl time.Duration) session.Repository {
	return &memorySessionRepository{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *memorySessionRepository) Create(_ context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep()
	if _, ok := r.lookup(s.ID); ok {
		return ErrSessionExists
	}
	r.store(s.ID, data)
	return nil
}

func (r *memorySessionRepository) FindByID(_ context.Context, id string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lookup(id)
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	r.store(id, entry.data)
	return decodeSession(entry.data)
}

func (r *memorySessionRepository) Update(_ context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lookup(id)
	if !ok {
		return nil, session.ErrSessionNotFound
	}

	s, err := decodeSession(entry.data)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal updated session: %w", err)
	}
	r.store(id, data)
	return s, nil
}

func (r *memorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(id); !ok {
		return session.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// lookup returns a live entry, dropping it if it has expired. Callers hold mu.
func (r *memorySessionRepository) lookup(id string) (memoryEntry, bool) {
	entry, ok := r.sessions[id]
	if !ok {
		return memoryEntry{}, false
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.sessions, id)
		return memoryEntry{}, false
	}
	return entry, true
}

// sweep drops every expired session, at most once per memorySweepInterval.
// Sessions nobody looks up again would otherwise stay forever. Callers hold mu.
func (r *memorySessionRepository) sweep() {
	now := r.now()
	if now.Sub(r.lastSweep) < memorySweepInterval {
		return
	}
	r.lastSweep = now
	for id, entry := range r.sessions {
		if !now.Before(entry.expiresAt) {
			delete(r.sessions, id)
		}
	}
}

func (r *memorySessionRepository) store(id string, data []byte) {
	r.sessions[id] = memoryEntry{data: data, expiresAt: r.now().Add(r.ttl)}
}
