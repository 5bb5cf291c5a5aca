// Package prompt renders prompt templates and manages the user's prompt set.
package prompt

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/clipmaster/internal/apperr"
)

// Placeholder is replaced with the clipboard text when a template renders.
const Placeholder = "{{clipboard}}"

// Render substitutes every placeholder occurrence in tmpl with input.
func Render(tmpl, input string) string {
	return strings.ReplaceAll(tmpl, Placeholder, input)
}

// Validate reports whether tmpl can be used as a prompt.
func Validate(tmpl string) error {
	err := validation.Validate(tmpl,
		validation.Required,
		validation.By(containsPlaceholder),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidTemplate, err)
	}
	return nil
}

func containsPlaceholder(value interface{}) error {
	s, _ := value.(string)
	if !strings.Contains(s, Placeholder) {
		return validation.NewError("validation_missing_placeholder", "must contain "+Placeholder)
	}
	return nil
}
