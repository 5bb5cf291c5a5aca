package prompt

import (
	"errors"
	"testing"

	"github.com/starford/clipmaster/internal/apperr"
)

func TestRender(t *testing.T) {
	if got := Render("Translate: {{clipboard}}", "bonjour"); got != "Translate: bonjour" {
		t.Errorf("Render = %q", got)
	}
	if got := Render("{{clipboard}} / {{clipboard}}", "x"); got != "x / x" {
		t.Errorf("Render with two placeholders = %q", got)
	}
	if got := Render("no placeholder", "x"); got != "no placeholder" {
		t.Errorf("Render without placeholder = %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("Summarize: {{clipboard}}"); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}
	for _, bad := range []string{"", "no placeholder here", "{{ clipboard }}"} {
		if err := Validate(bad); !errors.Is(err, apperr.ErrInvalidTemplate) {
			t.Errorf("Validate(%q) = %v", bad, err)
		}
	}
}
