//go:build sqlite_fts5

package history

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/starford/clipmaster/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS clips_fts USING fts5(
			id UNINDEXED,
			body,
			tokenize = 'trigram'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, body string) error {
	_, _ = tx.Exec(`DELETE FROM clips_fts WHERE id = ?`, id)
	if _, err := tx.Exec(`INSERT INTO clips_fts (id, body) VALUES (?, ?)`, id, body); err != nil {
		return fmt.Errorf("history: upsert fts: %w", err)
	}
	return nil
}

func ftsPrune(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM clips_fts WHERE id NOT IN (SELECT id FROM clips)`); err != nil {
		return fmt.Errorf("history: prune fts: %w", err)
	}
	return nil
}

// Search runs a trigram FTS5 query and maps hits onto in-memory records,
// newest first. Queries shorter than three characters fall back to a scan,
// as do records whose insert never reached the database.
func (s *Store) Search(query string, limit int) ([]models.ClipRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len([]rune(query)) < 3 {
		return s.scan(query, limit), nil
	}

	rows, err := s.conn.Query(`
		SELECT id FROM clips_fts WHERE clips_fts MATCH ?
	`, `"`+strings.ReplaceAll(query, `"`, `""`)+`"`)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer rows.Close()

	hits := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		hits[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var out []models.ClipRecord
	for _, r := range s.records {
		if _, ok := hits[r.ID]; !ok {
			if _, pending := s.unsynced[r.ID]; !pending || !containsText(r, needle) {
				continue
			}
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) scan(query string, limit int) []models.ClipRecord {
	needle := strings.ToLower(query)
	var out []models.ClipRecord
	for _, r := range s.records {
		if !containsText(r, needle) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out
}

func containsText(r models.ClipRecord, needle string) bool {
	text, ok := r.Text()
	return ok && strings.Contains(strings.ToLower(text), needle)
}
