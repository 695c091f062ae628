// Package creds owns the single operator credential record. The record is
// generated once on first boot and never rotated while it exists on disk.
package creds

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rotomdex/rotomd/internal/auth/hash"
	"rotomdex/rotomd/internal/fsatomic"
)

const usernamePrefix = "rotom_"

// Credentials is the durable record. Only the hash is stored; the plaintext
// password is emitted exactly once at generation time and is not recoverable
// afterwards.
type Credentials struct {
	Username       string `json:"username"`
	HashedPassword string `json:"hashedPassword"`
	TOTPSecret     string `json:"totpSecret,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

type Store struct {
	path       string
	noticePath string

	mu  sync.RWMutex
	cur Credentials
}

// Open loads the credential record at path, or on first boot generates one,
// persists it, and writes the plaintext notice to noticePath and the log.
// Any persistence failure is returned; callers must treat it as fatal since
// serving without a durable record would strand the operator.
func Open(ctx context.Context, path, noticePath string, logger *zerolog.Logger) (*Store, error) {
	s := &Store{path: path, noticePath: noticePath}

	var rec Credentials
	ok, err := fsatomic.LoadJSON(path, &rec)
	if err != nil {
		return nil, fmt.Errorf("creds: load %s: %w", path, err)
	}
	if ok {
		if rec.Username == "" || rec.HashedPassword == "" {
			return nil, fmt.Errorf("creds: record %s is incomplete", path)
		}
		s.cur = rec
		return s, nil
	}

	username := usernamePrefix + uuid.NewString()[:8]
	password := uuid.NewString()[:16] + "!"
	phc, err := hash.Password(password)
	if err != nil {
		return nil, fmt.Errorf("creds: hash: %w", err)
	}
	rec = Credentials{Username: username, HashedPassword: phc, CreatedAt: time.Now().UTC().Format(time.RFC3339)}
	if err := fsatomic.WithLock(path, func() error {
		return fsatomic.SaveJSON(ctx, path, rec, 0o600)
	}); err != nil {
		return nil, fmt.Errorf("creds: persist %s: %w", path, err)
	}

	notice := fmt.Sprintf("ROTOMDEX CREDENTIALS\n====================\nUsername: %s\nPassword: %s\n", username, password)
	if err := os.WriteFile(noticePath, []byte(notice), 0o600); err != nil {
		// The console copy below still reaches the operator.
		logger.Warn().Err(err).Str("path", noticePath).Msg("could not write credentials notice")
	}
	logger.Info().
		Str("username", username).
		Str("password", password).
		Msg("generated first-boot credentials (shown once)")

	s.cur = rec
	return s, nil
}

// Current returns a copy of the record.
func (s *Store) Current() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// SetTOTPSecret stores and persists the operator's TOTP secret. An empty
// secret disables the second factor.
func (s *Store) SetTOTPSecret(ctx context.Context, secret string) error {
	s.mu.Lock()
	s.cur.TOTPSecret = secret
	rec := s.cur
	s.mu.Unlock()
	return fsatomic.WithLock(s.path, func() error {
		return fsatomic.SaveJSON(ctx, s.path, rec, 0o600)
	})
}
