// Package clipservice coordinates the clipboard pipeline: it exposes the
// history snapshot, writes records back to the clipboard without recapturing
// them, and runs prompt transforms through the generation backend.
package clipservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/history"
	"github.com/starford/clipmaster/internal/mainloop"
	"github.com/starford/clipmaster/internal/metrics"
	"github.com/starford/clipmaster/internal/models"
	"github.com/starford/clipmaster/internal/pasteboard"
)

// DefaultWriteBackDelay is how long capture stays paused after the
// application writes to the clipboard.
const DefaultWriteBackDelay = 100 * time.Millisecond

// ErrStopped is returned once the main loop has shut down.
var ErrStopped = errors.New("clipservice: main loop stopped")

// Gate suspends clipboard capture around our own writes.
type Gate interface {
	Pause()
	Resume()
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, model string, temperature float64) (string, error)
	ListModels(ctx context.Context) []string
}

// Prompts supplies the active prompt template.
type Prompts interface {
	Active() string
	SetActiveIndex(i int) error
}

// Preferences supplies generation settings.
type Preferences interface {
	Temperature() float64
	SelectedModel() string
	SetSelectedModel(model string) error
}

// Deps are the collaborators a Controller needs.
type Deps struct {
	Loop      *mainloop.Loop
	Store     *history.Store
	Gate      Gate
	Board     pasteboard.Board
	Prompts   Prompts
	Generator Generator
	Prefs     Preferences
}

// Option configures a Controller.
type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Controller) { c.metrics = r }
}

// WithWriteBackDelay sets how long capture stays paused after a write.
func WithWriteBackDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.writeBackDelay = d
		}
	}
}

// Controller is safe for concurrent use. Store access is marshalled onto
// the main loop.
type Controller struct {
	loop    *mainloop.Loop
	store   *history.Store
	gate    Gate
	board   pasteboard.Board
	prompts Prompts
	gen     Generator
	prefs   Preferences
	logger  *slog.Logger
	metrics metrics.Recorder

	writeBackDelay time.Duration

	items      atomic.Pointer[[]models.ClipRecord]
	models     atomic.Pointer[[]string]
	processing atomic.Bool

	// loop-confined
	resumeTimer *mainloop.Timer
	resumeGen   uint64

	mu          sync.RWMutex
	subscribers []func(Event)
}

// New wires a controller to the store and loads the initial snapshot.
func New(d Deps, opts ...Option) *Controller {
	c := &Controller{
		loop:           d.Loop,
		store:          d.Store,
		gate:           d.Gate,
		board:          d.Board,
		prompts:        d.Prompts,
		gen:            d.Generator,
		prefs:          d.Prefs,
		logger:         slog.Default(),
		metrics:        metrics.Noop(),
		writeBackDelay: DefaultWriteBackDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	empty := []models.ClipRecord{}
	c.items.Store(&empty)
	noModels := []string{}
	c.models.Store(&noModels)

	c.loop.Do(func() {
		c.store.OnChange(c.onStoreChange)
		c.refresh()
	})
	return c
}

// Subscribe registers fn for controller events. fn may be called from the
// main loop or from a transform goroutine and must not block.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

func (c *Controller) emit(ev Event) {
	c.mu.RLock()
	subs := slices.Clone(c.subscribers)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Items returns the history snapshot, newest first. Records must be treated
// as read-only.
func (c *Controller) Items() []models.ClipRecord {
	return *c.items.Load()
}

// Get returns one record from the snapshot.
func (c *Controller) Get(id string) (models.ClipRecord, error) {
	for _, r := range c.Items() {
		if r.ID == id {
			return r, nil
		}
	}
	return models.ClipRecord{}, fmt.Errorf("clipservice: clip %s: %w", id, apperr.ErrNotFound)
}

func (c *Controller) onStoreChange(ch history.Change) {
	c.refresh()
	for _, r := range ch.Added {
		c.emit(Event{Type: EventClipCaptured, Data: r.Summary()})
	}
	for _, id := range ch.Removed {
		c.emit(Event{Type: EventClipRemoved, Data: ClipRef{ID: id}})
	}
}

// refresh rebuilds the snapshot wholesale. Runs on the loop.
func (c *Controller) refresh() {
	items := c.store.FetchAll()
	c.items.Store(&items)
	c.metrics.SetHistorySize(len(items))
}

// CopyToClipboard writes a history record back to the clipboard.
func (c *Controller) CopyToClipboard(_ context.Context, id string) error {
	var err error
	ok := c.loop.Do(func() {
		rec, gerr := c.store.Get(id)
		if gerr != nil {
			err = gerr
			return
		}
		err = c.writeBack(rec.Kind, rec.Payload)
	})
	if !ok {
		return ErrStopped
	}
	if err != nil {
		return err
	}
	c.logger.Debug("clip copied to clipboard", slog.String("id", id))
	return nil
}

// writeBack pauses capture, writes payload and schedules the resume that
// resynchronizes the change counter. Runs on the loop.
func (c *Controller) writeBack(kind models.Kind, payload []byte) error {
	c.gate.Pause()
	if c.resumeTimer != nil {
		c.resumeTimer.Stop()
	}
	c.resumeGen++
	gen := c.resumeGen
	c.resumeTimer = c.loop.AfterFunc(c.writeBackDelay, func() {
		if gen != c.resumeGen {
			return
		}
		c.resumeTimer = nil
		c.gate.Resume()
	})

	if err := c.board.Clear(); err != nil {
		return fmt.Errorf("clipservice: clear clipboard: %w", err)
	}
	var err error
	switch kind {
	case models.KindText:
		err = c.board.WriteText(string(payload))
	case models.KindImage:
		err = c.board.WritePNG(payload)
	default:
		return fmt.Errorf("clipservice: write %q: %w", kind, apperr.ErrUnsupportedKind)
	}
	if err != nil {
		return fmt.Errorf("clipservice: write clipboard: %w", err)
	}
	return nil
}

// Delete removes a record from history.
func (c *Controller) Delete(_ context.Context, id string) error {
	var err error
	if !c.loop.Do(func() { err = c.store.Delete(id) }) {
		return ErrStopped
	}
	return err
}

// Clear empties the history.
func (c *Controller) Clear(_ context.Context) error {
	var err error
	if !c.loop.Do(func() { err = c.store.Clear() }) {
		return ErrStopped
	}
	return err
}

// Search returns text records containing query.
func (c *Controller) Search(_ context.Context, query string, limit int) ([]models.ClipRecord, error) {
	var (
		out []models.ClipRecord
		err error
	)
	if !c.loop.Do(func() { out, err = c.store.Search(query, limit) }) {
		return nil, ErrStopped
	}
	return out, err
}

// SetHistoryLimit changes the retention limit, trimming immediately.
func (c *Controller) SetHistoryLimit(n int) error {
	var err error
	if !c.loop.Do(func() { err = c.store.SetLimit(n) }) {
		return ErrStopped
	}
	return err
}

// IsProcessing reports whether a transform is in flight.
func (c *Controller) IsProcessing() bool {
	return c.processing.Load()
}

// Models returns the model list from the last refresh.
func (c *Controller) Models() []string {
	return slices.Clone(*c.models.Load())
}

// RefreshModels fetches the installed models. When the selected model is
// empty or no longer installed, the first available one is selected. An
// empty list leaves the selection alone.
func (c *Controller) RefreshModels(ctx context.Context) []string {
	list := c.gen.ListModels(ctx)
	c.models.Store(&list)
	if len(list) == 0 {
		return slices.Clone(list)
	}
	if sel := c.prefs.SelectedModel(); sel == "" || !slices.Contains(list, sel) {
		if err := c.prefs.SetSelectedModel(list[0]); err != nil {
			c.logger.Warn("failed to save selected model", slog.String("error", err.Error()))
		} else {
			c.logger.Info("selected model changed",
				slog.String("from", sel),
				slog.String("to", list[0]),
			)
		}
	}
	c.emit(Event{Type: EventModelsUpdated, Data: slices.Clone(list)})
	return slices.Clone(list)
}
