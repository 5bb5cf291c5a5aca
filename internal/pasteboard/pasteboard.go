// Package pasteboard describes the system clipboard as seen by the monitor:
// a monotonically increasing change counter plus typed content.
package pasteboard

import (
	"slices"
	"sync"
)

// Type is a clipboard content type.
type Type string

const (
	TypeText Type = "public.utf8-plain-text"
	TypePNG  Type = "public.png"
)

// Board is the clipboard boundary. ChangeCount increases every time the
// content changes, whoever changed it.
type Board interface {
	ChangeCount() int64
	Types() []Type
	ReadText() (string, bool)
	ReadPNG() ([]byte, bool)
	WriteText(s string) error
	WritePNG(data []byte) error
	Clear() error
}

// Has reports whether t is among types.
func Has(types []Type, t Type) bool {
	return slices.Contains(types, t)
}

// Memory is an in-process Board. Every mutation bumps the counter by one.
type Memory struct {
	mu    sync.Mutex
	count int64
	text  *string
	png   []byte
}

// NewMemory returns an empty board with counter 0.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ChangeCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

func (m *Memory) Types() []Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []Type
	if m.png != nil {
		types = append(types, TypePNG)
	}
	if m.text != nil {
		types = append(types, TypeText)
	}
	return types
}

func (m *Memory) ReadText() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.text == nil {
		return "", false
	}
	return *m.text, true
}

func (m *Memory) ReadPNG() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.png == nil {
		return nil, false
	}
	return slices.Clone(m.png), true
}

// WriteText replaces the board content with s.
func (m *Memory) WriteText(s string) error {
	m.SetContents(&s, nil)
	return nil
}

// WritePNG replaces the board content with an image.
func (m *Memory) WritePNG(data []byte) error {
	m.SetContents(nil, data)
	return nil
}

func (m *Memory) Clear() error {
	m.SetContents(nil, nil)
	return nil
}

// SetContents publishes text and image representations in a single change,
// the way a source application offering several flavors would.
func (m *Memory) SetContents(text *string, png []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if text != nil {
		s := *text
		m.text = &s
	} else {
		m.text = nil
	}
	if png != nil {
		m.png = slices.Clone(png)
	} else {
		m.png = nil
	}
	m.count++
}
