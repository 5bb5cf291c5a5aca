package history

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/models"
)

func testPath(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp("", "clipmaster-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() {
		os.Remove(f.Name())
		os.Remove(f.Name() + "-wal")
		os.Remove(f.Name() + "-shm")
	})
	return f.Name()
}

func testStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(testPath(t), opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func text(s string, sec int) models.ClipRecord {
	return models.NewClipRecord(models.KindText, []byte(s), base.Add(time.Duration(sec)*time.Second))
}

func image(b []byte, sec int) models.ClipRecord {
	return models.NewClipRecord(models.KindImage, b, base.Add(time.Duration(sec)*time.Second))
}

func TestSchemaCreation(t *testing.T) {
	s := testStore(t)
	var count int
	if err := s.conn.QueryRow(`SELECT count(*) FROM clips`).Scan(&count); err != nil {
		t.Fatalf("clips table missing: %v", err)
	}
}

func TestAddItemDedup(t *testing.T) {
	s := testStore(t)
	first := text("hello", 1)
	s.AddItem(first)
	second := text("hello", 2)
	s.AddItem(second)

	all := s.FetchAll()
	if len(all) != 1 {
		t.Fatalf("len = %d, want 1", len(all))
	}
	if all[0].ID != second.ID || !all[0].CapturedAt.Equal(second.CapturedAt) {
		t.Errorf("kept %+v, want the newer record", all[0])
	}
}

func TestDedupDistinguishesKinds(t *testing.T) {
	s := testStore(t)
	s.AddItem(text("abc", 1))
	s.AddItem(image([]byte("abc"), 2))
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
}

func TestAddItemTrimsToLimit(t *testing.T) {
	s := testStore(t, WithLimit(3))
	for i := 0; i < 5; i++ {
		s.AddItem(text(string(rune('a'+i)), i))
	}

	all := s.FetchAll()
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	want := []string{"e", "d", "c"}
	for i, r := range all {
		if string(r.Payload) != want[i] {
			t.Errorf("record %d = %q, want %q", i, r.Payload, want[i])
		}
	}

	var rows int
	_ = s.conn.QueryRow(`SELECT count(*) FROM clips`).Scan(&rows)
	if rows != 3 {
		t.Errorf("persisted rows = %d, want 3", rows)
	}
}

func TestCaptureScenario(t *testing.T) {
	s := testStore(t)
	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

	s.AddItem(text("abc", 1))
	s.AddItem(image(png, 2))
	s.AddItem(text("abc", 3))

	all := s.FetchAll()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].Kind != models.KindText || string(all[0].Payload) != "abc" {
		t.Errorf("first = %+v, want text abc", all[0])
	}
	if all[1].Kind != models.KindImage || !bytes.Equal(all[1].Payload, png) {
		t.Errorf("second = %+v, want image", all[1])
	}
}

func TestAddItemSameTimestampKeepsNewest(t *testing.T) {
	path := testPath(t)
	s, err := Open(path, WithLimit(2))
	if err != nil {
		t.Fatal(err)
	}
	s.AddItem(text("a", 1))
	s.AddItem(text("b", 1))
	s.AddItem(text("c", 1))

	want := []string{"c", "b"}
	all := s.FetchAll()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	for i, r := range all {
		if string(r.Payload) != want[i] {
			t.Errorf("record %d = %q, want %q", i, r.Payload, want[i])
		}
	}
	s.Close()

	s2, err := Open(path, WithLimit(2))
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	reloaded := s2.FetchAll()
	if len(reloaded) != 2 {
		t.Fatalf("reloaded len = %d, want 2", len(reloaded))
	}
	for i, r := range reloaded {
		if string(r.Payload) != want[i] {
			t.Errorf("reloaded record %d = %q, want %q", i, r.Payload, want[i])
		}
	}
}

func TestRecaptureAtSameTimestampMovesToFront(t *testing.T) {
	s := testStore(t)
	png := []byte{0x89, 'P', 'N', 'G', 4, 5, 6}

	s.AddItem(text("abc", 1))
	s.AddItem(image(png, 2))
	s.AddItem(text("abc", 2))

	all := s.FetchAll()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if string(all[0].Payload) != "abc" {
		t.Errorf("first = %q, want abc", all[0].Payload)
	}
}

func TestAddItemClockStepBackKeepsNewCapture(t *testing.T) {
	s := testStore(t, WithLimit(2))
	s.AddItem(text("a", 10))
	s.AddItem(text("b", 11))
	late := text("c", 5)
	s.AddItem(late)

	all := s.FetchAll()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].ID != late.ID {
		t.Fatalf("first = %q, want c", all[0].Payload)
	}
	if all[0].CapturedAt.Before(all[1].CapturedAt) {
		t.Errorf("newest record timestamp %v precedes %v", all[0].CapturedAt, all[1].CapturedAt)
	}

	var rows int
	_ = s.conn.QueryRow(`SELECT count(*) FROM clips WHERE id = ?`, late.ID).Scan(&rows)
	if rows != 1 {
		t.Errorf("new capture persisted rows = %d, want 1", rows)
	}
}

func TestReopenLoadsHistory(t *testing.T) {
	path := testPath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	big := strings.Repeat("compressible text ", 1000)
	s.AddItem(text("small", 1))
	s.AddItem(text(big, 2))
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	all := s2.FetchAll()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if string(all[0].Payload) != big {
		t.Error("large payload did not round-trip")
	}

	var enc string
	_ = s2.conn.QueryRow(`SELECT encoding FROM clips WHERE id = ?`, all[0].ID).Scan(&enc)
	if enc != encodingZstd {
		t.Errorf("encoding = %q, want zstd", enc)
	}
}

func TestReopenAppliesSmallerLimit(t *testing.T) {
	path := testPath(t)
	s, _ := Open(path)
	for i := 0; i < 4; i++ {
		s.AddItem(text(string(rune('a'+i)), i))
	}
	s.Close()

	s2, err := Open(path, WithLimit(2))
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if s2.Len() != 2 {
		t.Errorf("len = %d, want 2", s2.Len())
	}
}

func TestOnChange(t *testing.T) {
	s := testStore(t, WithLimit(1))
	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	a := text("a", 1)
	b := text("b", 2)
	s.AddItem(a)
	s.AddItem(b)

	if len(changes) != 2 {
		t.Fatalf("notifications = %d, want 2", len(changes))
	}
	last := changes[1]
	if len(last.Added) != 1 || last.Added[0].ID != b.ID {
		t.Errorf("added = %+v", last.Added)
	}
	if len(last.Removed) != 1 || last.Removed[0] != a.ID {
		t.Errorf("removed = %v, want [%s]", last.Removed, a.ID)
	}
}

func TestPersistFailureKeepsMemoryAndSkipsNotify(t *testing.T) {
	s := testStore(t)
	notified := false
	s.OnChange(func(Change) { notified = true })

	s.conn.Close()
	s.AddItem(text("offline", 1))

	if s.Len() != 1 {
		t.Errorf("len = %d, want in-memory record kept", s.Len())
	}
	if notified {
		t.Error("listener notified despite failed write")
	}
}

func TestSearchFindsRecordsWhoseInsertFailed(t *testing.T) {
	s := testStore(t)
	s.AddItem(text("stored quick note", 1))

	_, err := s.conn.Exec(`
		CREATE TRIGGER reject_insert BEFORE INSERT ON clips
		BEGIN SELECT RAISE(ABORT, 'disk full'); END;
	`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	unsaved := text("unsaved quick note", 2)
	s.AddItem(unsaved)
	if s.Len() != 2 {
		t.Fatalf("len = %d, want 2", s.Len())
	}

	got, err := s.Search("quick note", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search = %d results, want 2", len(got))
	}
	if got[0].ID != unsaved.ID {
		t.Errorf("first result = %q, want the unsaved record", got[0].Payload)
	}
}

func TestRejectsEmptyPayload(t *testing.T) {
	s := testStore(t)
	s.AddItem(models.NewClipRecord(models.KindText, nil, base))
	if s.Len() != 0 {
		t.Error("empty payload should be rejected")
	}
}

func TestGetAndDelete(t *testing.T) {
	s := testStore(t)
	r := text("x", 1)
	s.AddItem(r)

	got, err := s.Get(r.ID)
	if err != nil || got.ID != r.ID {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if err := s.Delete(r.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
	if err := s.Delete(r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete err = %v", err)
	}

	// Deleted content can be captured again.
	s.AddItem(text("x", 2))
	if s.Len() != 1 {
		t.Errorf("len = %d", s.Len())
	}
}

func TestClear(t *testing.T) {
	s := testStore(t)
	s.AddItem(text("a", 1))
	s.AddItem(text("b", 2))

	var removed []string
	s.OnChange(func(c Change) { removed = c.Removed })
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 || len(removed) != 2 {
		t.Errorf("len = %d removed = %v", s.Len(), removed)
	}
	var rows int
	_ = s.conn.QueryRow(`SELECT count(*) FROM clips`).Scan(&rows)
	if rows != 0 {
		t.Errorf("rows = %d", rows)
	}
}

func TestSetLimit(t *testing.T) {
	s := testStore(t)
	for i := 0; i < 5; i++ {
		s.AddItem(text(string(rune('a'+i)), i))
	}
	if err := s.SetLimit(2); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.Limit() != 2 {
		t.Errorf("len = %d limit = %d", s.Len(), s.Limit())
	}
	if err := s.SetLimit(0); err == nil {
		t.Error("SetLimit(0) should fail")
	}
}

func TestSearch(t *testing.T) {
	s := testStore(t)
	s.AddItem(text("The quick brown fox", 1))
	s.AddItem(text("lazy dog", 2))
	s.AddItem(image([]byte("quick"), 3))

	got, err := s.Search("QUICK", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || string(got[0].Payload) != "The quick brown fox" {
		t.Errorf("Search = %+v", got)
	}
}
