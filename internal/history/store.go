package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/checksum"
	"github.com/starford/clipmaster/internal/metrics"
	"github.com/starford/clipmaster/internal/models"
)

// Change describes one successful mutation of the store.
type Change struct {
	Added   []models.ClipRecord
	Removed []string
}

// Store holds clip records ordered newest first. It is not safe for
// concurrent use; callers confine it to the main loop.
type Store struct {
	conn      *sql.DB
	codec     *codec
	logger    *slog.Logger
	metrics   metrics.Recorder
	limit     int
	records   []models.ClipRecord
	byFP      map[string]string
	listeners []func(Change)

	// unsynced holds ids kept in memory after their insert failed to reach
	// the database, so index-backed search must scan them directly.
	unsynced map[string]struct{}
}

// OnChange registers fn to run after every successfully persisted mutation.
// Listeners run synchronously in registration order.
func (s *Store) OnChange(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

// AddItem inserts r, replacing any record with equal content and trimming
// the oldest records beyond the limit. If the database write fails the
// in-memory list keeps the change and no listener is notified.
func (s *Store) AddItem(r models.ClipRecord) {
	if !r.Kind.Valid() || len(r.Payload) == 0 {
		s.logger.Warn("history: rejecting invalid record",
			slog.String("id", r.ID),
			slog.String("kind", string(r.Kind)),
		)
		return
	}

	fp := checksum.Fingerprint(string(r.Kind), r.Payload)
	var removed []string
	if dupID, ok := s.byFP[fp]; ok {
		s.removeIDs([]string{dupID})
		removed = append(removed, dupID)
	}

	// The newest capture always leads, even on a timestamp tie or when the
	// wall clock stepped backwards.
	if len(s.records) > 0 && r.CapturedAt.Before(s.records[0].CapturedAt) {
		r.CapturedAt = s.records[0].CapturedAt
	}
	s.records = slices.Insert(s.records, 0, r)
	s.byFP[fp] = r.ID

	trimmed := s.trim()
	removed = append(removed, trimmed...)
	s.metrics.SetHistorySize(len(s.records))

	for _, id := range removed {
		delete(s.unsynced, id)
	}
	if err := s.persist(&r, removed); err != nil {
		s.unsynced[r.ID] = struct{}{}
		s.logger.Error("history: failed to persist clip",
			slog.String("id", r.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.notify(Change{Added: []models.ClipRecord{r}, Removed: removed})
}

// FetchAll returns every record, newest first.
func (s *Store) FetchAll() []models.ClipRecord {
	return slices.Clone(s.records)
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (models.ClipRecord, error) {
	i := s.indexOf(id)
	if i < 0 {
		return models.ClipRecord{}, fmt.Errorf("history: get %s: %w", id, apperr.ErrNotFound)
	}
	return s.records[i], nil
}

// Delete removes a single record.
func (s *Store) Delete(id string) error {
	if s.indexOf(id) < 0 {
		return fmt.Errorf("history: delete %s: %w", id, apperr.ErrNotFound)
	}
	s.removeIDs([]string{id})
	delete(s.unsynced, id)
	s.metrics.SetHistorySize(len(s.records))
	if err := s.persist(nil, []string{id}); err != nil {
		s.logger.Error("history: failed to persist delete",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return err
	}
	s.notify(Change{Removed: []string{id}})
	return nil
}

// Clear removes every record.
func (s *Store) Clear() error {
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	s.records = nil
	clear(s.byFP)
	clear(s.unsynced)
	s.metrics.SetHistorySize(0)
	if err := s.clearRows(); err != nil {
		s.logger.Error("history: failed to persist clear", slog.String("error", err.Error()))
		return err
	}
	if len(ids) > 0 {
		s.notify(Change{Removed: ids})
	}
	return nil
}

// Limit returns the retention limit.
func (s *Store) Limit() int { return s.limit }

// Len returns the number of records held.
func (s *Store) Len() int { return len(s.records) }

// SetLimit changes the retention limit and trims immediately.
func (s *Store) SetLimit(n int) error {
	if n < 1 {
		return fmt.Errorf("history: limit must be positive, got %d", n)
	}
	s.limit = n
	removed := s.trim()
	if len(removed) == 0 {
		return nil
	}
	s.metrics.SetHistorySize(len(s.records))
	if err := s.persist(nil, removed); err != nil {
		s.logger.Error("history: failed to persist trim", slog.String("error", err.Error()))
		return err
	}
	s.notify(Change{Removed: removed})
	return nil
}

// trim drops records beyond the limit and returns their ids.
func (s *Store) trim() []string {
	if len(s.records) <= s.limit {
		return nil
	}
	var ids []string
	for _, r := range s.records[s.limit:] {
		ids = append(ids, r.ID)
		delete(s.byFP, checksum.Fingerprint(string(r.Kind), r.Payload))
		delete(s.unsynced, r.ID)
	}
	s.records = slices.Clone(s.records[:s.limit])
	return ids
}

func (s *Store) removeIDs(ids []string) {
	s.records = slices.DeleteFunc(s.records, func(r models.ClipRecord) bool {
		if slices.Contains(ids, r.ID) {
			delete(s.byFP, checksum.Fingerprint(string(r.Kind), r.Payload))
			return true
		}
		return false
	})
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.records, func(r models.ClipRecord) bool { return r.ID == id })
}

func (s *Store) notify(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}
