package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session ties a chat thread to the user who opened it.
type Session struct {
	ID               string    `json:"id"`
	ThreadID         string    `json:"thread_id"`
	OwnerID          string    `json:"owner_id"`
	OwnerDisplayName string    `json:"owner_display_name"`
	StartedAt        time.Time `json:"started_at"`
}

// New builds a session for threadID with a fresh ID.
func New(threadID, ownerID, ownerDisplayName string, startedAt time.Time) Session {
	return Session{
		ID:               uuid.NewString(),
		ThreadID:         threadID,
		OwnerID:          ownerID,
		OwnerDisplayName: ownerDisplayName,
		StartedAt:        startedAt,
	}
}

// Store is the in-memory thread -> session table. It is the only owner of
// session values; callers receive copies.
type Store struct {
	sessions map[string]Session
	mu       sync.RWMutex
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]Session)}
}

// Put inserts or overwrites the session for threadID.
func (s *Store) Put(threadID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[threadID] = sess
}

func (s *Store) Get(threadID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[threadID]
	return sess, ok
}

// Remove deletes the session for threadID. It reports whether one existed;
// removing an unknown thread is a no-op.
func (s *Store) Remove(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[threadID]; !ok {
		return false
	}
	delete(s.sessions, threadID)
	return true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// List returns a snapshot ordered by start time, oldest first.
func (s *Store) List() []Session {
	s.mu.RLock()
	out := make([]Session, 0, len(s.sessions))
	for k, sess := range s.sessions {
		if strings.TrimSpace(k) == "" {
			continue
		}
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ThreadID < out[j].ThreadID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
