// Package monitor polls the clipboard and hands new content to a sink.
package monitor

import (
	"log/slog"
	"time"

	"github.com/starford/clipmaster/internal/mainloop"
	"github.com/starford/clipmaster/internal/metrics"
	"github.com/starford/clipmaster/internal/models"
	"github.com/starford/clipmaster/internal/pasteboard"
)

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Sink receives captured records.
type Sink interface {
	AddItem(models.ClipRecord)
}

// State is the monitor lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePolling
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithInterval sets the poll period.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(m *Monitor) { m.metrics = r }
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor detects clipboard changes through the board's change counter.
// All methods must be called on the loop.
type Monitor struct {
	loop     *mainloop.Loop
	board    pasteboard.Board
	sink     Sink
	interval time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time

	stopped  bool
	paused   bool
	lastSeen int64
	ticker   *mainloop.Ticker
}

// New builds a monitor. Content already on the board is treated as seen.
func New(loop *mainloop.Loop, board pasteboard.Board, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		loop:     loop,
		board:    board,
		sink:     sink,
		interval: DefaultInterval,
		logger:   slog.Default(),
		metrics:  metrics.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastSeen = board.ChangeCount()
	return m
}

// Start begins polling. Calling Start while polling does nothing. Changes
// made while stopped are treated as seen.
func (m *Monitor) Start() {
	if m.ticker != nil {
		return
	}
	if m.stopped {
		m.lastSeen = m.board.ChangeCount()
	}
	m.ticker = m.loop.Every(m.interval, m.CheckForChange)
	m.stopped = false
	m.logger.Info("clipboard monitor started", slog.Duration("interval", m.interval))
}

// Stop cancels polling. Calling Stop when not polling does nothing.
func (m *Monitor) Stop() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	m.ticker = nil
	m.stopped = true
	m.logger.Info("clipboard monitor stopped")
}

// Pause suspends capture without stopping the ticker.
func (m *Monitor) Pause() {
	m.paused = true
}

// Resume treats everything currently on the board as seen, then re-enables
// capture. Writes made while paused are therefore never captured.
func (m *Monitor) Resume() {
	m.lastSeen = m.board.ChangeCount()
	m.paused = false
}

// Paused reports whether capture is suspended.
func (m *Monitor) Paused() bool {
	return m.paused
}

// State reports the lifecycle state.
func (m *Monitor) State() State {
	switch {
	case m.ticker != nil && m.paused:
		return StatePaused
	case m.ticker != nil:
		return StatePolling
	case m.stopped:
		return StateStopped
	default:
		return StateIdle
	}
}

// CheckForChange runs one poll: when the change counter moved it captures
// at most one record, preferring an image over text.
func (m *Monitor) CheckForChange() {
	m.metrics.IncPollTicks()
	if m.paused {
		m.metrics.IncSkipped(metrics.SkipPaused)
		return
	}
	count := m.board.ChangeCount()
	if count == m.lastSeen {
		m.metrics.IncSkipped(metrics.SkipUnchanged)
		return
	}
	m.lastSeen = count

	rec, ok := m.read()
	if !ok {
		m.metrics.IncSkipped(metrics.SkipNoContent)
		m.logger.Debug("clipboard changed without supported content", slog.Int64("change_count", count))
		return
	}
	m.metrics.IncCaptured(string(rec.Kind))
	m.logger.Debug("clipboard captured",
		slog.String("id", rec.ID),
		slog.String("kind", string(rec.Kind)),
		slog.Int("size", len(rec.Payload)),
	)
	m.sink.AddItem(rec)
}

func (m *Monitor) read() (models.ClipRecord, bool) {
	types := m.board.Types()
	if pasteboard.Has(types, pasteboard.TypePNG) {
		if data, ok := m.board.ReadPNG(); ok && len(data) > 0 {
			return models.NewClipRecord(models.KindImage, data, m.now()), true
		}
	}
	if pasteboard.Has(types, pasteboard.TypeText) {
		if s, ok := m.board.ReadText(); ok && s != "" {
			return models.NewClipRecord(models.KindText, []byte(s), m.now()), true
		}
	}
	return models.ClipRecord{}, false
}
