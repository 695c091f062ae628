//go:build windows

package fsatomic

import (
	"errors"
	"os"
	"time"
)

// flockExclusive approximates an advisory lock on Windows with create-excl of
// the lock file, retrying briefly when another holder exists.
func flockExclusive(lockPath string) (func(), error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err == nil {
			done := false
			return func() {
				if done {
					return
				}
				_ = f.Close()
				_ = os.Remove(lockPath)
				done = true
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, errors.New("lock timeout")
		}
		time.Sleep(25 * time.Millisecond)
	}
}
