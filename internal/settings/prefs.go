package settings

import (
	"fmt"
	"net/url"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Keys used by the application.
const (
	KeyPrompts       = "prompts"
	KeyActivePrompt  = "active_prompt"
	KeyTemperature   = "temperature"
	KeySelectedModel = "selected_model"
	KeyOllamaURL     = "ollama_url"
	KeyHistoryLimit  = "history_limit"
	KeyHotkeyHistory = "hotkeys.history"
	KeyHotkeyProcess = "hotkeys.process"
)

const (
	DefaultTemperature  = 0.7
	MinTemperature      = 0.0
	MaxTemperature      = 2.0
	DefaultOllamaURL    = "http://localhost:11434"
	DefaultHistoryLimit = 20
	MinHistoryLimit     = 1
	MaxHistoryLimit     = 100
)

// Hotkey is a global shortcut. KeyCode is a macOS virtual key code.
type Hotkey struct {
	KeyCode   int      `yaml:"key_code" json:"key_code"`
	Modifiers []string `yaml:"modifiers" json:"modifiers"`
}

// Hotkey names.
const (
	HotkeyHistory = "history"
	HotkeyProcess = "process"
)

var defaultHotkeys = map[string]Hotkey{
	HotkeyHistory: {KeyCode: 40, Modifiers: []string{"control", "shift"}}, // K
	HotkeyProcess: {KeyCode: 15, Modifiers: []string{"control", "shift"}}, // R
}

var hotkeyKeys = map[string]string{
	HotkeyHistory: KeyHotkeyHistory,
	HotkeyProcess: KeyHotkeyProcess,
}

// IsHotkeyName reports whether name is a configurable hotkey.
func IsHotkeyName(name string) bool {
	_, ok := hotkeyKeys[name]
	return ok
}

// Validate implements validation.Validatable.
func (h Hotkey) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.KeyCode, validation.Min(0), validation.Max(127)),
		validation.Field(&h.Modifiers,
			validation.Required,
			validation.Each(validation.In("command", "control", "option", "shift")),
		),
	)
}

// Temperature returns the sampling temperature clamped to 0..2.
func (s *Store) Temperature() float64 {
	v, ok := s.Float(KeyTemperature)
	if !ok {
		return DefaultTemperature
	}
	return clampFloat(v, MinTemperature, MaxTemperature)
}

// SetTemperature stores v clamped to 0..2.
func (s *Store) SetTemperature(v float64) error {
	return s.Set(KeyTemperature, clampFloat(v, MinTemperature, MaxTemperature))
}

func (s *Store) SelectedModel() string {
	v, _ := s.String(KeySelectedModel)
	return v
}

func (s *Store) SetSelectedModel(model string) error {
	return s.Set(KeySelectedModel, model)
}

// OllamaURL returns the generation endpoint base URL.
func (s *Store) OllamaURL() string {
	if v, ok := s.String(KeyOllamaURL); ok && v != "" {
		return v
	}
	return DefaultOllamaURL
}

// SetOllamaURL validates and stores the endpoint base URL.
func (s *Store) SetOllamaURL(raw string) error {
	if err := ValidateOllamaURL(raw); err != nil {
		return fmt.Errorf("settings: ollama_url: %w", err)
	}
	return s.Set(KeyOllamaURL, raw)
}

// ValidateOllamaURL requires an absolute http or https URL.
func ValidateOllamaURL(raw string) error {
	return validation.Validate(raw, validation.Required, validation.By(httpURL))
}

// ValidateHistoryLimit requires a value in 1..100.
func ValidateHistoryLimit(n int) error {
	return validation.Validate(n, validation.Required, validation.Min(MinHistoryLimit), validation.Max(MaxHistoryLimit))
}

// HistoryLimit returns the retention limit clamped to 1..100.
func (s *Store) HistoryLimit() int {
	v, ok := s.Int(KeyHistoryLimit)
	if !ok {
		return DefaultHistoryLimit
	}
	return min(max(v, MinHistoryLimit), MaxHistoryLimit)
}

// SetHistoryLimit rejects values outside 1..100.
func (s *Store) SetHistoryLimit(n int) error {
	if err := ValidateHistoryLimit(n); err != nil {
		return fmt.Errorf("settings: history_limit: %w", err)
	}
	return s.Set(KeyHistoryLimit, n)
}

// Hotkey returns the shortcut bound to name, falling back to the default.
func (s *Store) Hotkey(name string) (Hotkey, bool) {
	key, ok := hotkeyKeys[name]
	if !ok {
		return Hotkey{}, false
	}
	var h Hotkey
	if found, err := s.Decode(key, &h); found && err == nil && h.Validate() == nil {
		return h, true
	}
	def := defaultHotkeys[name]
	def.Modifiers = slices.Clone(def.Modifiers)
	return def, true
}

// SetHotkey validates and stores a shortcut.
func (s *Store) SetHotkey(name string, h Hotkey) error {
	key, ok := hotkeyKeys[name]
	if !ok {
		return fmt.Errorf("settings: unknown hotkey %q", name)
	}
	if err := h.Validate(); err != nil {
		return fmt.Errorf("settings: hotkey %s: %w", name, err)
	}
	return s.Set(key, h)
}

// Preferences is a typed view of every user-facing setting.
type Preferences struct {
	Temperature   float64           `json:"temperature"`
	SelectedModel string            `json:"selected_model"`
	OllamaURL     string            `json:"ollama_url"`
	HistoryLimit  int               `json:"history_limit"`
	Hotkeys       map[string]Hotkey `json:"hotkeys"`
}

// Preferences returns the current values with defaults applied.
func (s *Store) Preferences() Preferences {
	p := Preferences{
		Temperature:   s.Temperature(),
		SelectedModel: s.SelectedModel(),
		OllamaURL:     s.OllamaURL(),
		HistoryLimit:  s.HistoryLimit(),
		Hotkeys:       make(map[string]Hotkey, len(hotkeyKeys)),
	}
	for name := range hotkeyKeys {
		p.Hotkeys[name], _ = s.Hotkey(name)
	}
	return p
}

func httpURL(value interface{}) error {
	raw, _ := value.(string)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validation.NewError("validation_http_url", "must be an http or https URL")
	}
	return nil
}

func clampFloat(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
