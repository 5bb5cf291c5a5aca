// Package models defines the domain types for clipmaster.
package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Kind tells how a record's payload is interpreted.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == KindText || k == KindImage
}

// ClipRecord is one captured clipboard item. Records are never mutated
// after creation; identity for deduplication is (Kind, Payload).
type ClipRecord struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Payload    []byte    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
}

// NewClipRecord builds a record with a fresh ID.
func NewClipRecord(kind Kind, payload []byte, at time.Time) ClipRecord {
	return ClipRecord{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    payload,
		CapturedAt: at,
	}
}

// Text returns the payload as a string when the record holds valid UTF-8 text.
func (r ClipRecord) Text() (string, bool) {
	if r.Kind != KindText || !utf8.Valid(r.Payload) {
		return "", false
	}
	return string(r.Payload), true
}

// ClipSummary is a lightweight representation returned by list operations.
type ClipSummary struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Preview    string    `json:"preview"`
	Size       int       `json:"size"`
	CapturedAt time.Time `json:"captured_at"`
}

const previewLen = 120

// Summary returns a list-friendly view of r.
func (r ClipRecord) Summary() ClipSummary {
	s := ClipSummary{
		ID:         r.ID,
		Kind:       r.Kind,
		Size:       len(r.Payload),
		CapturedAt: r.CapturedAt,
	}
	if text, ok := r.Text(); ok {
		if utf8.RuneCountInString(text) > previewLen {
			text = string([]rune(text)[:previewLen]) + "…"
		}
		s.Preview = text
	}
	return s
}
