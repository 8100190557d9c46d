// Package history stores per-session conversation windows.
package history

import (
	"context"
	"sync"
	"time"

	"voice-relay/internal/domain"
)

// MemoryStore keeps windows in process memory. Sessions idle for longer than
// the TTL are treated as empty and removed by the cleanup routine.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	maxTurns int
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	window  *domain.HistoryWindow
	touched time.Time
}

func NewMemoryStore(maxTurns int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		maxTurns: maxTurns,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemoryStore) Turns(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		return nil, nil
	}
	return sess.window.Turns(), nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		sess = &memorySession{window: domain.NewHistoryWindow(s.maxTurns)}
		s.sessions[sessionID] = sess
	}
	sess.window.Append(turns...)
	sess.touched = s.now()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// live returns the session or nil when it is missing or expired. Caller
// holds s.mu.
func (s *MemoryStore) live(sessionID string) *memorySession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if s.expired(sess, s.now()) {
		delete(s.sessions, sessionID)
		return nil
	}
	return sess
}

func (s *MemoryStore) expired(sess *memorySession, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.touched) > s.ttl
}

// Cleanup drops every expired session and reports how many were removed.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanupRoutine runs Cleanup every interval until ctx is done.
func (s *MemoryStore) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
