//go:build sqlite_fts5

package history

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	s := testStore(t)
	var count int
	if err := s.conn.QueryRow(`SELECT count(*) FROM clips_fts`).Scan(&count); err != nil {
		t.Fatalf("clips_fts table missing: %v", err)
	}
}

func TestFTS5_SearchFollowsTrim(t *testing.T) {
	s := testStore(t, WithLimit(1))
	s.AddItem(text("powerful full-text search", 1))
	s.AddItem(text("something else", 2))

	got, err := s.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("trimmed record still searchable: %+v", got)
	}

	var rows int
	_ = s.conn.QueryRow(`SELECT count(*) FROM clips_fts`).Scan(&rows)
	if rows != 1 {
		t.Errorf("fts rows = %d, want 1", rows)
	}
}

func TestFTS5_ShortQueryScans(t *testing.T) {
	s := testStore(t)
	s.AddItem(text("go", 1))
	got, err := s.Search("Go", 10)
	if err != nil || len(got) != 1 {
		t.Errorf("Search = %+v, %v", got, err)
	}
}
