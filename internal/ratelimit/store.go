// Package ratelimit implements a fixed-window counter persisted to disk so
// login throttling survives a restart.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"rotomdex/rotomd/internal/fsatomic"
)

type state struct {
	Version int               `json:"version"`
	Buckets map[string]bucket `json:"buckets"`
}

type bucket struct {
	Hits   int    `json:"hits"`
	Window string `json:"window"`
}

type Store struct {
	path string
	mu   sync.Mutex
	st   state
	ops  int
	last time.Time
}

func New(path string) *Store {
	s := &Store{path: path, st: state{Version: 1, Buckets: map[string]bucket{}}}
	var st state
	if ok, err := fsatomic.LoadJSON(path, &st); err == nil && ok && st.Buckets != nil {
		s.st = st
	}
	s.last = time.Now()
	return s
}

// Allow records a hit against key under a fixed window of the given size and
// reports whether the hit is within limit, plus the remaining budget and the
// window reset time.
func (s *Store) Allow(key string, limit int, window time.Duration) (bool, int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	b := s.st.Buckets[key]
	start := parseWindow(b.Window)
	if start.IsZero() || now.Sub(start) >= window {
		start = now
		b.Window = start.Format(time.RFC3339Nano)
		b.Hits = 0
	}
	resetAt := start.Add(window)
	if b.Hits >= limit {
		s.maybePersistLocked()
		return false, 0, resetAt
	}
	b.Hits++
	s.st.Buckets[key] = b
	s.maybePersistLocked()
	return true, limit - b.Hits, resetAt
}

// maybePersistLocked writes through every 10 ops or ~2s to bound IO.
func (s *Store) maybePersistLocked() {
	s.ops++
	if s.ops%10 == 0 || time.Since(s.last) >= 2*time.Second {
		st := s.st
		_ = fsatomic.WithLock(s.path, func() error {
			return fsatomic.SaveJSON(context.Background(), s.path, st, 0o600)
		})
		s.last = time.Now()
	}
}

func parseWindow(val string) time.Time {
	if val == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, val); err == nil {
			return t
		}
	}
	return time.Time{}
}
