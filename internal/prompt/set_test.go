package prompt

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/settings"
)

func testKV(t *testing.T) *settings.Store {
	t.Helper()
	kv, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return kv
}

func TestDefaultsWhenNothingSaved(t *testing.T) {
	s := NewSet(testKV(t), nil)
	if !slices.Equal(s.All(), Defaults) {
		t.Errorf("All = %v", s.All())
	}
	if s.Active() != Defaults[0] {
		t.Errorf("Active = %q", s.Active())
	}
}

func TestUnknownSavedActiveFallsBackToFirst(t *testing.T) {
	kv := testKV(t)
	_ = kv.SetMany(map[string]any{
		settings.KeyPrompts:      []string{"A {{clipboard}}", "B {{clipboard}}"},
		settings.KeyActivePrompt: "gone {{clipboard}}",
	})
	s := NewSet(kv, nil)
	if s.Active() != "A {{clipboard}}" {
		t.Errorf("Active = %q", s.Active())
	}
}

func TestAdd(t *testing.T) {
	s := NewSet(testKV(t), nil)
	before := s.All()

	if err := s.Add("no placeholder here"); !errors.Is(err, apperr.ErrInvalidTemplate) {
		t.Errorf("Add invalid err = %v", err)
	}
	if !slices.Equal(s.All(), before) {
		t.Error("invalid Add changed the set")
	}

	if err := s.Add("Summarize: {{clipboard}}"); err != nil {
		t.Fatal(err)
	}
	all := s.All()
	if len(all) != len(before)+1 || all[len(all)-1] != "Summarize: {{clipboard}}" {
		t.Errorf("All = %v", all)
	}
}

func TestUpdateKeepsActive(t *testing.T) {
	s := NewSet(testKV(t), nil)
	old := s.Active()
	if err := s.Update(old, "Shorten: {{clipboard}}"); err != nil {
		t.Fatal(err)
	}
	if s.Active() != "Shorten: {{clipboard}}" {
		t.Errorf("Active = %q", s.Active())
	}
	if s.All()[0] != "Shorten: {{clipboard}}" {
		t.Errorf("update not in place: %v", s.All())
	}

	if err := s.Update("missing", "X {{clipboard}}"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update unknown err = %v", err)
	}
	if err := s.Update(s.All()[1], "bad"); !errors.Is(err, apperr.ErrInvalidTemplate) {
		t.Errorf("Update invalid err = %v", err)
	}
}

func TestSetActive(t *testing.T) {
	s := NewSet(testKV(t), nil)
	_ = s.SetActive("not a member {{clipboard}}")
	if s.Active() != Defaults[0] {
		t.Errorf("non-member became active: %q", s.Active())
	}
	_ = s.SetActive(Defaults[2])
	if s.Active() != Defaults[2] {
		t.Errorf("Active = %q", s.Active())
	}
}

func TestSetActiveIndex(t *testing.T) {
	s := NewSet(testKV(t), nil)
	_ = s.SetActiveIndex(1)
	if s.Active() != Defaults[1] {
		t.Errorf("Active = %q", s.Active())
	}
	_ = s.SetActiveIndex(7)
	_ = s.SetActiveIndex(-1)
	if s.Active() != Defaults[1] {
		t.Errorf("out-of-range index changed active: %q", s.Active())
	}
}

func TestDeleteActiveFallsBack(t *testing.T) {
	s := NewSet(testKV(t), nil)
	_ = s.SetActive(Defaults[1])
	_ = s.Delete(Defaults[1])
	if s.Active() != Defaults[0] {
		t.Errorf("Active = %q", s.Active())
	}

	for _, p := range s.All() {
		_ = s.Delete(p)
	}
	if len(s.All()) != 0 || s.Active() != "" {
		t.Errorf("All = %v Active = %q", s.All(), s.Active())
	}

	_ = s.Add("Fresh {{clipboard}}")
	if s.Active() != "Fresh {{clipboard}}" {
		t.Errorf("first prompt in empty set not active: %q", s.Active())
	}
}

func TestPersistsAndNotifies(t *testing.T) {
	kv := testKV(t)
	s := NewSet(kv, nil)

	var gotActive string
	calls := 0
	s.OnChange(func(_ []string, active string) {
		calls++
		gotActive = active
	})
	_ = s.SetActiveIndex(2)
	_ = s.SetActiveIndex(2)
	if calls != 1 || gotActive != Defaults[2] {
		t.Errorf("calls = %d active = %q", calls, gotActive)
	}

	reopened, err := settings.Open(kv.Path(), nil)
	if err != nil {
		t.Fatal(err)
	}
	s2 := NewSet(reopened, nil)
	if s2.Active() != Defaults[2] {
		t.Errorf("persisted active = %q", s2.Active())
	}
}

func TestReload(t *testing.T) {
	kv := testKV(t)
	s := NewSet(kv, nil)
	notified := false
	s.OnChange(func([]string, string) { notified = true })

	_ = kv.SetMany(map[string]any{settings.KeyPrompts: []string{"Only {{clipboard}}"}})
	s.Reload()
	if !notified || s.Active() != "Only {{clipboard}}" {
		t.Errorf("notified = %v active = %q", notified, s.Active())
	}
}
