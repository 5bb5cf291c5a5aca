package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/clipmaster/internal/models"
	"github.com/starford/clipmaster/internal/settings"
)

// ClipSummary is a lightweight item in a list response (aliased from the domain layer).
type ClipSummary = models.ClipSummary

// ClipDetail is the full clip response. Text is set for text clips only.
type ClipDetail struct {
	ID         string      `json:"id" validate:"required"`
	Kind       models.Kind `json:"kind" example:"text" validate:"required"`
	Size       int         `json:"size" example:"42" validate:"required"`
	Text       string      `json:"text,omitempty" example:"hello"`
	CapturedAt time.Time   `json:"captured_at" validate:"required"`
}

// HistoryResponse wraps the history snapshot.
type HistoryResponse struct {
	Items      []ClipSummary `json:"items" validate:"required"`
	Processing bool          `json:"processing"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []ClipSummary `json:"results" validate:"required"`
}

// PromptsResponse lists the prompt set.
type PromptsResponse struct {
	Prompts []string `json:"prompts" validate:"required"`
	Active  string   `json:"active" example:"Summarize this text: {{clipboard}}"`
}

// AddPromptRequest is the request body for adding a prompt.
type AddPromptRequest struct {
	Template string `json:"template" example:"Summarize: {{clipboard}}" validate:"required"`
}

// UpdatePromptRequest replaces Old with New.
type UpdatePromptRequest struct {
	Old string `json:"old" validate:"required"`
	New string `json:"new" validate:"required"`
}

// SetActivePromptRequest selects the active prompt by template or by index.
type SetActivePromptRequest struct {
	Template string `json:"template,omitempty"`
	Index    *int   `json:"index,omitempty"`
}

// ModelsResponse lists installed models.
type ModelsResponse struct {
	Models   []string `json:"models" validate:"required"`
	Selected string   `json:"selected" example:"llama3:8b"`
}

// UpdateSettingsRequest changes any subset of preferences.
type UpdateSettingsRequest struct {
	Temperature   *float64                   `json:"temperature,omitempty" example:"0.7"`
	SelectedModel *string                    `json:"selected_model,omitempty" example:"llama3:8b"`
	OllamaURL     *string                    `json:"ollama_url,omitempty" example:"http://localhost:11434"`
	HistoryLimit  *int                       `json:"history_limit,omitempty" example:"20"`
	Hotkeys       map[string]settings.Hotkey `json:"hotkeys,omitempty"`
}

// Validate checks every field before anything is applied.
func (r UpdateSettingsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OllamaURL, validation.By(func(v interface{}) error {
			if p, _ := v.(*string); p != nil {
				return settings.ValidateOllamaURL(*p)
			}
			return nil
		})),
		validation.Field(&r.HistoryLimit, validation.By(func(v interface{}) error {
			if p, _ := v.(*int); p != nil {
				return settings.ValidateHistoryLimit(*p)
			}
			return nil
		})),
		validation.Field(&r.Hotkeys, validation.By(func(v interface{}) error {
			hotkeys, _ := v.(map[string]settings.Hotkey)
			for name := range hotkeys {
				if !settings.IsHotkeyName(name) {
					return validation.NewError("validation_unknown_hotkey", "unknown hotkey "+name)
				}
			}
			return nil
		})),
	)
}

// CommandResponse acknowledges a hotkey command.
type CommandResponse struct {
	Command  string `json:"command" example:"process-last-item" validate:"required"`
	Accepted bool   `json:"accepted"`
}
