// Package testutil provides shared test helpers for wiring the clipboard
// pipeline against temporary storage.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/clipmaster/internal/history"
	"github.com/starford/clipmaster/internal/mainloop"
	"github.com/starford/clipmaster/internal/settings"
)

// TestStore creates a temporary history database that is automatically
// cleaned up.
func TestStore(t *testing.T, opts ...history.Option) *history.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "clipmaster-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() {
		os.Remove(dbFile.Name())
		os.Remove(dbFile.Name() + "-wal")
		os.Remove(dbFile.Name() + "-shm")
	})

	s, err := history.Open(dbFile.Name(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestSettings creates a settings store backed by a file in a temp dir.
func TestSettings(t *testing.T) *settings.Store {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// TestLoop starts a main loop that is closed when the test ends.
func TestLoop(t *testing.T) *mainloop.Loop {
	t.Helper()
	l := mainloop.New(nil)
	t.Cleanup(l.Close)
	return l
}

// Eventually polls fn until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Fatalf("eventually: timed out after %v: %s", timeout, msg)
}
