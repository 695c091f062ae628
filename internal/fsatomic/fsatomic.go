// Package fsatomic persists small JSON documents with crash-safe writes:
// write to a temp file, fsync, rename into place, fsync the parent directory.
package fsatomic

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// SaveJSON writes v as indented JSON to path atomically. The document lands
// under path+".tmp" first and is renamed over path only after a successful
// fsync. If perm is 0, 0600 is used.
func SaveJSON(ctx context.Context, path string, v any, perm fs.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o600
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	cleanup := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if _, err := f.Write(b); err != nil {
		return cleanup(err)
	}
	if err := f.Sync(); err != nil {
		return cleanup(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return fsyncDir(filepath.Dir(path))
}

// LoadJSON reads path into v. Returns exists=false when the file is missing;
// a present-but-unparseable file is an error. A stale ".tmp" crash artifact is
// removed before reading.
func LoadJSON(path string, v any) (bool, error) {
	_ = os.Remove(path + ".tmp")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

// WithLock holds an exclusive advisory lock (path+".lock") while fn runs.
// Callers serialize read-modify-write cycles across processes with this; it
// does not protect against in-process races, which stores handle with their
// own mutexes.
func WithLock(path string, fn func() error) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	unlock, err := flockExclusive(path + ".lock")
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

// fsyncDir persists directory metadata after a rename; no-op on Windows.
func fsyncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
