// Package registry persists the ordered list of dashboard app descriptors as
// a single JSON document.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"rotomdex/rotomd/internal/fsatomic"
)

// App is one dashboard tile. Entries are positional; there is no identifier
// and no uniqueness constraint.
type App struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Repo        string `json:"repo"`
	Icon        string `json:"icon"`
}

// File is the on-disk document.
type File struct {
	Apps     []App  `json:"apps"`
	LastScan string `json:"lastScan,omitempty"`
}

// fileSchema checks the document shape before decoding. Entry fields are all
// optional strings: duplicates and sparse entries pass through untouched, but
// a document whose apps value is not an array of objects is rejected.
const fileSchema = `{
  "type": "object",
  "required": ["apps"],
  "properties": {
    "apps": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string"},
          "url": {"type": "string"},
          "repo": {"type": "string"},
          "icon": {"type": "string"}
        }
      }
    },
    "lastScan": {"type": "string"}
  }
}`

var seedApps = []App{{
	Name:        "Clinic Onboarding",
	Description: "Create ClickUp tasks for new clinic onboarding",
	URL:         "https://clinic-onboarding.onrender.com",
	Repo:        "https://github.com/JJ-nator/vip-clinic-onboarding",
	Icon:        "🏥",
}}

type Store struct {
	path string
	mu   sync.RWMutex
	cur  File
}

// Open loads the registry at path. A missing file is seeded with one default
// entry and persisted; a present but malformed or mis-shaped file is an error,
// never silently replaced.
func Open(ctx context.Context, path string) (*Store, error) {
	s := &Store{path: path}

	var raw json.RawMessage
	ok, err := fsatomic.LoadJSON(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("registry: load %s: %w", path, err)
	}
	if !ok {
		s.cur = File{Apps: seedApps}
		if err := s.persist(ctx); err != nil {
			return nil, fmt.Errorf("registry: seed %s: %w", path, err)
		}
		return s, nil
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(fileSchema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("registry: validate %s: %w", path, err)
	}
	if !res.Valid() {
		return nil, fmt.Errorf("registry: %s does not match registry schema: %v", path, res.Errors())
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", path, err)
	}
	s.cur = f
	return s, nil
}

// Apps returns a copy of the current app list.
func (s *Store) Apps() []App {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]App, len(s.cur.Apps))
	copy(out, s.cur.Apps)
	return out
}

// Snapshot returns the whole document.
func (s *Store) Snapshot() File {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.cur
	f.Apps = make([]App, len(s.cur.Apps))
	copy(f.Apps, s.cur.Apps)
	return f
}

// Replace overwrites the registry wholesale with apps and a scan timestamp.
// Concurrent replacers are last-write-wins; only in-process consistency is
// guaranteed.
func (s *Store) Replace(ctx context.Context, apps []App, scannedAt time.Time) error {
	s.mu.Lock()
	s.cur = File{Apps: apps, LastScan: scannedAt.UTC().Format(time.RFC3339)}
	s.mu.Unlock()
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.RLock()
	f := s.cur
	s.mu.RUnlock()
	return fsatomic.WithLock(s.path, func() error {
		return fsatomic.SaveJSON(ctx, s.path, f, 0o600)
	})
}
