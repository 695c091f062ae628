package fsatomic

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := SaveJSON(context.Background(), path, map[string]string{"a": "b"}, 0o600); err != nil {
		t.Fatalf("save: %v", err)
	}
	var got map[string]string
	ok, err := LoadJSON(path, &got)
	if err != nil || !ok {
		t.Fatalf("load: %v ok=%v", err, ok)
	}
	if got["a"] != "b" {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	var v map[string]string
	ok, err := LoadJSON(filepath.Join(t.TempDir(), "nope.json"), &v)
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if ok {
		t.Fatal("missing file should report exists=false")
	}
}

func TestLoadMalformedFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	if _, err := LoadJSON(path, &v); err == nil {
		t.Fatal("malformed JSON must be an error, not silently recovered")
	}
}

func TestLoadRemovesCrashArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := SaveJSON(context.Background(), path, map[string]int{"n": 1}, 0); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path+".tmp", []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	var v map[string]int
	if ok, err := LoadJSON(path, &v); err != nil || !ok {
		t.Fatalf("load: %v ok=%v", err, ok)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp artifact should be gone, stat err=%v", err)
	}
}

func TestConcurrentLockedWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	var wg sync.WaitGroup
	errCh := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := WithLock(path, func() error {
				return SaveJSON(context.Background(), path, map[string]int{"i": i}, 0)
			})
			if err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("locked save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var v map[string]int
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("final file must be valid JSON: %v", err)
	}
}
