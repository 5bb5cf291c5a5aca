//go:build !sqlite_fts5

package history

import (
	"database/sql"
	"strings"

	"github.com/starford/clipmaster/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search scans the in-memory text records.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _ string) error { return nil }

func ftsPrune(_ *sql.Tx) error { return nil }

// Search returns text records containing query, case-insensitively, newest
// first.
func (s *Store) Search(query string, limit int) ([]models.ClipRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	needle := strings.ToLower(query)
	var out []models.ClipRecord
	for _, r := range s.records {
		text, ok := r.Text()
		if !ok || !strings.Contains(strings.ToLower(text), needle) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
