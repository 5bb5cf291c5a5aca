package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/clipmaster/internal/checksum"
	"github.com/starford/clipmaster/internal/models"
)

// persist writes one mutation in a single transaction: removals, then the
// optional insert, then a trim of the table to the current limit.
func (s *Store) persist(insert *models.ClipRecord, removed []string) error {
	start := time.Now()
	defer func() { s.metrics.ObservePersistDuration(time.Since(start)) }()

	err := s.persistTx(insert, removed)
	if err != nil {
		s.metrics.IncPersistFailures()
	}
	return err
}

func (s *Store) persistTx(insert *models.ClipRecord, removed []string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, id := range removed {
		if _, err := tx.Exec(`DELETE FROM clips WHERE id = ?`, id); err != nil {
			return fmt.Errorf("history: delete clip: %w", err)
		}
	}

	if insert != nil {
		fp := checksum.Fingerprint(string(insert.Kind), insert.Payload)
		// Rows left behind by an earlier failed write may still hold this content.
		if _, err := tx.Exec(`DELETE FROM clips WHERE fingerprint = ?`, fp); err != nil {
			return fmt.Errorf("history: delete duplicate: %w", err)
		}
		data, enc := s.codec.encode(insert.Payload)
		_, err = tx.Exec(`
			INSERT INTO clips (id, kind, fingerprint, encoding, payload, captured_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, insert.ID, string(insert.Kind), fp, enc, data, insert.CapturedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("history: insert clip: %w", err)
		}
		if text, ok := insert.Text(); ok {
			if err := ftsUpsert(tx, insert.ID, text); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(`
		DELETE FROM clips WHERE id NOT IN (
			SELECT id FROM clips ORDER BY captured_at DESC, rowid DESC LIMIT ?
		)
	`, s.limit); err != nil {
		return fmt.Errorf("history: trim table: %w", err)
	}
	if err := ftsPrune(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) clearRows() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM clips`); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	if err := ftsPrune(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// load reads persisted rows into memory. Rows whose payload cannot be
// decoded are skipped.
func (s *Store) load() error {
	rows, err := s.conn.Query(`
		SELECT id, kind, fingerprint, encoding, payload, captured_at
		FROM clips
		ORDER BY captured_at DESC, rowid DESC
	`)
	if err != nil {
		return fmt.Errorf("history: load: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r        models.ClipRecord
			kind     string
			fp       string
			enc      string
			data     []byte
			captured int64
		)
		if err := rows.Scan(&r.ID, &kind, &fp, &enc, &data, &captured); err != nil {
			return fmt.Errorf("history: scan: %w", err)
		}
		payload, err := s.codec.decode(data, enc)
		if err != nil {
			s.logger.Warn("history: skipping unreadable clip",
				slog.String("id", r.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		r.Kind = models.Kind(kind)
		r.Payload = payload
		r.CapturedAt = time.Unix(0, captured)
		if _, dup := s.byFP[fp]; dup || !r.Kind.Valid() || len(payload) == 0 {
			continue
		}
		s.records = append(s.records, r)
		s.byFP[fp] = r.ID
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("history: load: %w", err)
	}

	if trimmed := s.trim(); len(trimmed) > 0 {
		if err := s.persist(nil, trimmed); err != nil {
			s.logger.Warn("history: failed to trim persisted rows", slog.String("error", err.Error()))
		}
	}
	s.metrics.SetHistorySize(len(s.records))
	return nil
}
