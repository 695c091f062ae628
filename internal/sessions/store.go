// Package sessions holds server-side login sessions in memory. Sessions are
// deliberately not persisted: a process restart logs the operator out.
package sessions

import (
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

// TTL is the fixed session lifetime.
const TTL = 24 * time.Hour

// Session is the server-held record referenced by the cookie-carried ID.
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
}

type Store struct {
	mu  sync.RWMutex
	mem map[string]Session
	now func() time.Time
}

func New() *Store {
	return &Store{mem: map[string]Session{}, now: time.Now}
}

// Create mints a session with a fresh unguessable ID.
func (s *Store) Create(username string) (Session, error) {
	raw := securecookie.GenerateRandomKey(32)
	if raw == nil {
		return Session{}, errors.New("sessions: no entropy for session id")
	}
	sess := Session{
		ID:        hex.EncodeToString(raw),
		Username:  username,
		ExpiresAt: s.now().Add(TTL),
	}
	s.mu.Lock()
	s.mem[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session for id if it exists and has not expired. Expiry is
// checked lazily here; expired records are dropped on access.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	sess, ok := s.mem[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(sess.ExpiresAt) {
		s.Delete(id)
		return Session{}, false
	}
	return sess, true
}

// Delete invalidates id immediately. Unknown IDs are a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.mem, id)
	s.mu.Unlock()
}

// Sweep drops every expired session and reports how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.mem {
		if !now.Before(sess.ExpiresAt) {
			delete(s.mem, id)
			n++
		}
	}
	return n
}

// Len reports live entries including not-yet-swept expired ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mem)
}
