package internal

import "github.com/starford/clipmaster/internal/pasteboard"

// Option is a functional option for configuring the application.
type Option func(*application)

// Mode selects which front door the application serves.
type Mode int

const (
	// ModeDaemon serves the HTTP control API.
	ModeDaemon Mode = iota
	// ModeMCP serves MCP tools over stdio.
	ModeMCP
)

type application struct {
	config  *Config
	board   pasteboard.Board
	mode    Mode
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithBoard overrides the clipboard backend chosen by configuration.
func WithBoard(b pasteboard.Board) Option {
	return func(a *application) {
		a.board = b
	}
}

// WithMode selects daemon or MCP mode.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
