package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the default in-process store. Suitable for a single instance;
// use the Redis or Postgres store when sessions must outlive the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	done     chan struct{}
	once     sync.Once
}

type memorySession struct {
	mappings map[string]string
	touched  time.Time
}

// NewMemoryStore creates an in-memory store. A zero TTL disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

// Merge adds mappings to the session's accumulated table.
func (s *MemoryStore) Merge(ctx context.Context, sessionID string, mappings map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{mappings: make(map[string]string)}
		s.sessions[sessionID] = sess
	}
	for k, v := range mappings {
		sess.mappings[k] = v
	}
	sess.touched = time.Now()
	return nil
}

// Get returns a copy of the session's accumulated mapping.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	if sess, ok := s.sessions[sessionID]; ok {
		for k, v := range sess.mappings {
			out[k] = v
		}
	}
	return out, nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Close stops the expiry sweeper.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// sweep drops sessions idle longer than the TTL.
func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, sess := range s.sessions {
				if now.Sub(sess.touched) > s.ttl {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
