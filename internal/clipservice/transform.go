package clipservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/metrics"
	"github.com/starford/clipmaster/internal/models"
	"github.com/starford/clipmaster/internal/prompt"
)

// TransformResult describes a finished transform. Skipped is set when the
// record holds no text.
type TransformResult struct {
	ClipID  string `json:"clip_id"`
	Skipped bool   `json:"skipped"`
	Prompt  string `json:"prompt,omitempty"`
	Model   string `json:"model,omitempty"`
	Output  string `json:"output,omitempty"`
}

// Transform renders the active prompt with a record's text, sends it to the
// generation backend and writes the answer to the clipboard. Only one
// transform runs at a time; a concurrent call fails with apperr.ErrBusy.
func (c *Controller) Transform(ctx context.Context, id string) (TransformResult, error) {
	rec, err := c.Get(id)
	if err != nil {
		return TransformResult{}, err
	}
	return c.transform(ctx, rec)
}

// ProcessLatest transforms the newest record.
func (c *Controller) ProcessLatest(ctx context.Context) (TransformResult, error) {
	items := c.Items()
	if len(items) == 0 {
		return TransformResult{}, fmt.Errorf("clipservice: process latest: %w", apperr.ErrNotFound)
	}
	return c.transform(ctx, items[0])
}

func (c *Controller) transform(ctx context.Context, rec models.ClipRecord) (TransformResult, error) {
	res := TransformResult{ClipID: rec.ID}
	text, ok := rec.Text()
	if !ok {
		res.Skipped = true
		return res, nil
	}
	if !c.processing.CompareAndSwap(false, true) {
		c.metrics.IncTransforms(metrics.OutcomeBusy)
		return res, apperr.ErrBusy
	}

	out, err := c.runTransform(ctx, &res, text)
	c.processing.Store(false)

	if err != nil {
		c.metrics.IncTransforms(metrics.OutcomeFailure)
		c.logger.Error("transform failed",
			slog.String("id", rec.ID),
			slog.String("model", res.Model),
			slog.String("error", err.Error()),
		)
		c.emit(Event{Type: EventTransformFailed, Data: TransformStatus{ClipID: rec.ID, Error: err.Error()}})
		return res, err
	}
	res.Output = out
	c.metrics.IncTransforms(metrics.OutcomeSuccess)
	c.logger.Info("transform finished",
		slog.String("id", rec.ID),
		slog.String("model", res.Model),
		slog.Int("output_len", len(out)),
	)
	c.emit(Event{Type: EventTransformFinished, Data: TransformStatus{ClipID: rec.ID}})
	return res, nil
}

// runTransform does the work guarded by the busy flag.
func (c *Controller) runTransform(ctx context.Context, res *TransformResult, text string) (string, error) {
	tmpl := c.prompts.Active()
	if tmpl == "" {
		return "", apperr.ErrNoActivePrompt
	}
	res.Prompt = tmpl
	res.Model = c.prefs.SelectedModel()

	c.emit(Event{Type: EventTransformStarted, Data: TransformStatus{ClipID: res.ClipID}})
	start := time.Now()
	out, err := c.gen.Generate(ctx, prompt.Render(tmpl, text), res.Model, c.prefs.Temperature())
	c.metrics.ObserveTransformDuration(time.Since(start))
	if err != nil {
		return "", err
	}

	var werr error
	if !c.loop.Do(func() { werr = c.writeBack(models.KindText, []byte(out)) }) {
		return "", ErrStopped
	}
	if werr != nil {
		return "", werr
	}
	return out, nil
}
