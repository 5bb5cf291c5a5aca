package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Clipboard backends.
const (
	BoardSystem = "system"
	BoardMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Settings SettingsConfig    `yaml:"settings"`
	Monitor  MonitorConfig     `yaml:"monitor"`
	Ollama   OllamaConfig      `yaml:"ollama"`
	Auth     AuthConfig        `yaml:"auth"`
	Metrics  MetricsConfig     `yaml:"metrics"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	if err := c.Ollama.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration. The control API binds to
// loopback only.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SettingsConfig locates the user preferences file. An empty path keeps
// preferences in memory only.
type SettingsConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the settings configuration.
func (c *SettingsConfig) Validate() error {
	return nil
}

// MonitorConfig controls clipboard polling.
type MonitorConfig struct {
	Interval       time.Duration `yaml:"interval"`
	WriteBackDelay time.Duration `yaml:"write_back_delay"`
	Backend        string        `yaml:"backend"`
}

// Validate validates the monitor configuration.
func (c *MonitorConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BoardSystem
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Interval, validation.Required, validation.Min(10*time.Millisecond)),
		validation.Field(&c.WriteBackDelay, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Backend, validation.In(BoardSystem, BoardMemory)),
	)
}

// OllamaConfig holds generation client settings. The server URL itself is a
// user preference kept in the settings file.
type OllamaConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the Ollama configuration.
func (c *OllamaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 8421,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./clipmaster.db",
		},
		Settings: SettingsConfig{
			Path:  "./settings.yaml",
			Watch: true,
		},
		Monitor: MonitorConfig{
			Interval:       500 * time.Millisecond,
			WriteBackDelay: 100 * time.Millisecond,
			Backend:        BoardSystem,
		},
		Ollama: OllamaConfig{
			Timeout: 120 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
