package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestMissingFileIsEmpty(t *testing.T) {
	s := testStore(t)
	if len(s.All()) != 0 {
		t.Errorf("All = %v", s.All())
	}
}

func TestSetPersistsAcrossOpen(t *testing.T) {
	s := testStore(t)
	if err := s.SetMany(map[string]any{
		"name":  "clip",
		"ratio": 0.5,
		"count": 3,
		"on":    true,
		"list":  []string{"a", "b"},
	}); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(s.Path(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := s2.String("name"); v != "clip" {
		t.Errorf("name = %q", v)
	}
	if v, _ := s2.Float("ratio"); v != 0.5 {
		t.Errorf("ratio = %v", v)
	}
	if v, _ := s2.Int("count"); v != 3 {
		t.Errorf("count = %v", v)
	}
	if v, _ := s2.Bool("on"); !v {
		t.Error("on = false")
	}
	if v, ok := s2.Strings("list"); !ok || len(v) != 2 || v[1] != "b" {
		t.Errorf("list = %v, %v", v, ok)
	}
}

func TestWrongTypeIsAbsent(t *testing.T) {
	s := testStore(t)
	_ = s.Set("n", "not a number")
	if _, ok := s.Int("n"); ok {
		t.Error("Int on a string should report false")
	}
	if _, ok := s.Strings("n"); ok {
		t.Error("Strings on a string should report false")
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := Open("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.String("k"); v != "v" {
		t.Errorf("k = %q", v)
	}
	if changed, err := s.Reload(); changed || err != nil {
		t.Errorf("Reload = %v, %v", changed, err)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	_ = s.Set("a", 1)
	_ = s.Set("b", 2)

	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v", names)
	}
}

func TestReloadIgnoresOwnWrites(t *testing.T) {
	s := testStore(t)
	var calls atomic.Int32
	s.OnReload(func() { calls.Add(1) })

	_ = s.Set("a", 1)
	if changed, _ := s.Reload(); changed {
		t.Error("own write reported as external change")
	}

	if err := os.WriteFile(s.Path(), []byte("a: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, err := s.Reload()
	if err != nil || !changed {
		t.Fatalf("Reload = %v, %v", changed, err)
	}
	if v, _ := s.Int("a"); v != 2 {
		t.Errorf("a = %d, want 2", v)
	}
	if calls.Load() != 1 {
		t.Errorf("listener calls = %d", calls.Load())
	}
}

func TestWatchReloadsExternalEdit(t *testing.T) {
	s := testStore(t)
	_ = s.Set(KeyTemperature, 0.2)

	reloaded := make(chan struct{}, 1)
	s.OnReload(func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(s.Path(), []byte("temperature: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("external edit was not reloaded")
	}
	if got := s.Temperature(); got != 1.5 {
		t.Errorf("temperature = %v, want 1.5", got)
	}
}
