// Package system connects pasteboard.Board to the OS clipboard.
//
// Neither backend exposes a change counter, so Board synthesizes one: it
// fingerprints the current content on every ChangeCount call and bumps the
// counter when the fingerprint moves or when Board itself writes.
package system

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	atotto "github.com/atotto/clipboard"
	"golang.design/x/clipboard"

	"github.com/starford/clipmaster/internal/checksum"
	"github.com/starford/clipmaster/internal/pasteboard"
)

var _ pasteboard.Board = (*Board)(nil)

// ErrUnavailable is returned when no clipboard backend works on this host.
var ErrUnavailable = errors.New("system clipboard unavailable")

// Board is the OS clipboard.
type Board struct {
	mu       sync.Mutex
	textOnly bool
	count    int64
	lastFP   string
}

// New initializes golang.design/x/clipboard and falls back to the text-only
// atotto backend when that fails (no cgo, no display server).
func New(logger *slog.Logger) (*Board, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Board{}
	if err := clipboard.Init(); err != nil {
		if atotto.Unsupported {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		logger.Warn("image clipboard unavailable, falling back to text only",
			slog.String("error", err.Error()),
		)
		b.textOnly = true
	}
	b.lastFP = b.fingerprint()
	return b, nil
}

// ChangeCount must be cheap enough to call every poll interval; it reads the
// clipboard once per call.
func (b *Board) ChangeCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if fp := b.fingerprint(); fp != b.lastFP {
		b.lastFP = fp
		b.count++
	}
	return b.count
}

func (b *Board) Types() []pasteboard.Type {
	var types []pasteboard.Type
	if data, ok := b.ReadPNG(); ok && len(data) > 0 {
		types = append(types, pasteboard.TypePNG)
	}
	if s, ok := b.ReadText(); ok && s != "" {
		types = append(types, pasteboard.TypeText)
	}
	return types
}

func (b *Board) ReadText() (string, bool) {
	if b.textOnly {
		s, err := atotto.ReadAll()
		if err != nil {
			return "", false
		}
		return s, true
	}
	data := clipboard.Read(clipboard.FmtText)
	if data == nil {
		return "", false
	}
	return string(data), true
}

func (b *Board) ReadPNG() ([]byte, bool) {
	if b.textOnly {
		return nil, false
	}
	data := clipboard.Read(clipboard.FmtImage)
	return data, data != nil
}

func (b *Board) WriteText(s string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.textOnly {
		if err := atotto.WriteAll(s); err != nil {
			return fmt.Errorf("system: write text: %w", err)
		}
	} else {
		clipboard.Write(clipboard.FmtText, []byte(s))
	}
	b.markWritten()
	return nil
}

func (b *Board) WritePNG(data []byte) error {
	if b.textOnly {
		return fmt.Errorf("system: write png: %w", ErrUnavailable)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	clipboard.Write(clipboard.FmtImage, data)
	b.markWritten()
	return nil
}

// Clear only bumps the counter; both backends replace content wholesale on
// the next write.
func (b *Board) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	return nil
}

// markWritten records our own write as exactly one change. Caller holds mu.
func (b *Board) markWritten() {
	b.count++
	b.lastFP = b.fingerprint()
}

func (b *Board) fingerprint() string {
	if b.textOnly {
		s, _ := atotto.ReadAll()
		return checksum.Fingerprint("text", []byte(s))
	}
	img := clipboard.Read(clipboard.FmtImage)
	txt := clipboard.Read(clipboard.FmtText)
	return checksum.Fingerprint("image", img) + checksum.Fingerprint("text", txt)
}
