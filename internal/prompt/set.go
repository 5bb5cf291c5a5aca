package prompt

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/settings"
)

// Defaults is the prompt list used when nothing has been saved yet.
var Defaults = []string{
	"Summarize this text: " + Placeholder,
	"Translate to English: " + Placeholder,
	"Fix grammar and spelling: " + Placeholder,
}

// KV is the subset of the settings store the set persists through.
type KV interface {
	Strings(key string) ([]string, bool)
	String(key string) (string, bool)
	SetMany(kv map[string]any) error
}

// Set is the ordered prompt list plus the active member. When the list is
// non-empty the active prompt is always one of its members; otherwise it is
// the empty string.
type Set struct {
	mu        sync.RWMutex
	kv        KV
	logger    *slog.Logger
	prompts   []string
	active    string
	listeners []func(prompts []string, active string)
}

// NewSet loads the set from kv.
func NewSet(kv KV, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Set{kv: kv, logger: logger}
	s.load()
	return s
}

// Reload re-reads the persisted set, for example after the settings file was
// edited by hand.
func (s *Set) Reload() {
	s.mu.Lock()
	before, beforeActive := slices.Clone(s.prompts), s.active
	s.load()
	changed := !slices.Equal(before, s.prompts) || beforeActive != s.active
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *Set) load() {
	prompts, ok := s.kv.Strings(settings.KeyPrompts)
	if !ok {
		prompts = slices.Clone(Defaults)
	}
	s.prompts = prompts
	active, _ := s.kv.String(settings.KeyActivePrompt)
	if !slices.Contains(s.prompts, active) {
		active = s.first()
	}
	s.active = active
}

// OnChange registers fn to run after every successful mutation.
func (s *Set) OnChange(fn func(prompts []string, active string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// All returns the prompts in order.
func (s *Set) All() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.prompts)
}

// Active returns the active prompt, or "" when the set is empty.
func (s *Set) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Add appends tmpl. Invalid templates leave the set unchanged.
func (s *Set) Add(tmpl string) error {
	if err := Validate(tmpl); err != nil {
		s.logger.Warn("prompt: rejected template", slog.String("error", err.Error()))
		return err
	}
	return s.mutate(func() bool {
		s.prompts = append(s.prompts, tmpl)
		if s.active == "" {
			s.active = tmpl
		}
		return true
	})
}

// Update replaces old with tmpl in place. If old was active, tmpl becomes
// active.
func (s *Set) Update(old, tmpl string) error {
	if err := Validate(tmpl); err != nil {
		s.logger.Warn("prompt: rejected template", slog.String("error", err.Error()))
		return err
	}
	found := false
	err := s.mutate(func() bool {
		i := slices.Index(s.prompts, old)
		if i < 0 {
			return false
		}
		found = true
		s.prompts[i] = tmpl
		if s.active == old {
			s.active = tmpl
		}
		return true
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("prompt: update: %w", apperr.ErrNotFound)
	}
	return nil
}

// SetActive makes tmpl active if it is a member; otherwise it does nothing.
func (s *Set) SetActive(tmpl string) error {
	return s.mutate(func() bool {
		if !slices.Contains(s.prompts, tmpl) || s.active == tmpl {
			return false
		}
		s.active = tmpl
		return true
	})
}

// SetActiveIndex activates the prompt at position i. Out-of-range indexes
// are ignored.
func (s *Set) SetActiveIndex(i int) error {
	return s.mutate(func() bool {
		if i < 0 || i >= len(s.prompts) || s.active == s.prompts[i] {
			return false
		}
		s.active = s.prompts[i]
		return true
	})
}

// Delete removes every occurrence of tmpl. Deleting the active prompt activates the new first
// prompt, or clears the active prompt when none remain.
func (s *Set) Delete(tmpl string) error {
	return s.mutate(func() bool {
		if !slices.Contains(s.prompts, tmpl) {
			return false
		}
		s.prompts = slices.DeleteFunc(s.prompts, func(p string) bool { return p == tmpl })
		if s.active == tmpl {
			s.active = s.first()
		}
		return true
	})
}

// mutate applies fn under the lock, persists and notifies when fn reports a
// change. A failed save rolls the change back.
func (s *Set) mutate(fn func() bool) error {
	s.mu.Lock()
	prevPrompts, prevActive := slices.Clone(s.prompts), s.active
	if !fn() {
		s.mu.Unlock()
		return nil
	}
	err := s.kv.SetMany(map[string]any{
		settings.KeyPrompts:      s.prompts,
		settings.KeyActivePrompt: s.active,
	})
	if err != nil {
		s.prompts, s.active = prevPrompts, prevActive
		s.mu.Unlock()
		s.logger.Error("prompt: failed to save prompts", slog.String("error", err.Error()))
		return err
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Set) notify() {
	s.mu.RLock()
	prompts, active := slices.Clone(s.prompts), s.active
	listeners := slices.Clone(s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(prompts, active)
	}
}

func (s *Set) first() string {
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[0]
}
