package clipservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/clipmaster/internal/apperr"
)

// Hotkey commands.
const (
	CmdToggleHistory   = "toggle-history"
	CmdProcessLastItem = "process-last-item"
	CmdSelectPrompt1   = "select-prompt-1"
	CmdSelectPrompt2   = "select-prompt-2"
	CmdSelectPrompt3   = "select-prompt-3"
)

var promptSlots = map[string]int{
	CmdSelectPrompt1: 0,
	CmdSelectPrompt2: 1,
	CmdSelectPrompt3: 2,
}

// Commands lists every command HandleCommand accepts.
func Commands() []string {
	return []string{CmdToggleHistory, CmdProcessLastItem, CmdSelectPrompt1, CmdSelectPrompt2, CmdSelectPrompt3}
}

// HandleCommand dispatches a named hotkey command. process-last-item runs
// in the background; its outcome is reported through events.
func (c *Controller) HandleCommand(ctx context.Context, name string) error {
	if slot, ok := promptSlots[name]; ok {
		return c.prompts.SetActiveIndex(slot)
	}
	switch name {
	case CmdToggleHistory:
		c.emit(Event{Type: EventToggleHistory})
		return nil
	case CmdProcessLastItem:
		bg := context.WithoutCancel(ctx)
		go func() {
			if _, err := c.ProcessLatest(bg); err != nil && !errors.Is(err, apperr.ErrBusy) {
				c.logger.Warn("process last item", slog.String("error", err.Error()))
			}
		}()
		return nil
	default:
		return fmt.Errorf("clipservice: %q: %w", name, apperr.ErrUnknownCommand)
	}
}
