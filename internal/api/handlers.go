package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/clipmaster/internal/apperr"
	"github.com/starford/clipmaster/internal/clipservice"
	"github.com/starford/clipmaster/internal/models"
	"github.com/starford/clipmaster/internal/ollama"
	"github.com/starford/clipmaster/internal/prompt"
	"github.com/starford/clipmaster/internal/settings"
)

// Handler holds API route handlers.
type Handler struct {
	clips    *clipservice.Controller
	prompts  *prompt.Set
	settings *settings.Store
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{clips: d.Clips, prompts: d.Prompts, settings: d.Settings}
}

func summaries(records []models.ClipRecord) []ClipSummary {
	out := make([]ClipSummary, 0, len(records))
	for _, r := range records {
		out = append(out, r.Summary())
	}
	return out
}

// ListHistory handles GET /api/history.
//
//	@Summary		List captured clips, newest first
//	@Tags			history
//	@Produce		json
//	@Success		200	{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{
		Items:      summaries(h.clips.Items()),
		Processing: h.clips.IsProcessing(),
	})
}

// GetClip handles GET /api/history/{id}.
//
//	@Summary		Get a single clip
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Clip ID"
//	@Success		200	{object}	ClipDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{id} [get]
func (h *Handler) GetClip(w http.ResponseWriter, r *http.Request) {
	rec, err := h.clips.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	detail := ClipDetail{
		ID:         rec.ID,
		Kind:       rec.Kind,
		Size:       len(rec.Payload),
		CapturedAt: rec.CapturedAt,
	}
	detail.Text, _ = rec.Text()
	writeJSON(w, http.StatusOK, detail)
}

// GetPayload handles GET /api/history/{id}/payload and streams the raw bytes.
//
//	@Summary		Download a clip's raw payload
//	@Tags			history
//	@Produce		plain,png
//	@Param			id	path	string	true	"Clip ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{id}/payload [get]
func (h *Handler) GetPayload(w http.ResponseWriter, r *http.Request) {
	rec, err := h.clips.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	switch rec.Kind {
	case models.KindImage:
		w.Header().Set("Content-Type", "image/png")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Payload)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Payload)
}

// CopyClip handles POST /api/history/{id}/copy.
//
//	@Summary		Write a clip back to the clipboard
//	@Tags			history
//	@Param			id	path	string	true	"Clip ID"
//	@Success		204	"Copied"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{id}/copy [post]
func (h *Handler) CopyClip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.clips.CopyToClipboard(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("copy clip failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransformClip handles POST /api/history/{id}/transform.
//
//	@Summary		Run the active prompt on a clip and copy the answer
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Clip ID"
//	@Success		200	{object}	clipservice.TransformResult
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{id}/transform [post]
func (h *Handler) TransformClip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := h.clips.Transform(r.Context(), id)
	if err != nil {
		var te *ollama.TransformError
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrBusy):
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrNoActivePrompt):
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		case errors.As(err, &te):
			writeJSON(w, http.StatusBadGateway, errorBody(te.Error()))
		default:
			slog.Error("transform failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteClip handles DELETE /api/history/{id}.
//
//	@Summary		Delete a clip
//	@Tags			history
//	@Param			id	path	string	true	"Clip ID"
//	@Success		204	"Clip deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{id} [delete]
func (h *Handler) DeleteClip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.clips.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("delete clip failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory handles DELETE /api/history.
//
//	@Summary		Delete every clip
//	@Tags			history
//	@Success		204	"History cleared"
//	@Security		BearerAuth
//	@Router			/history [delete]
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.clips.Clear(r.Context()); err != nil {
		slog.Error("clear history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Search text clips
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.clips.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: summaries(results)})
}

// RunCommand handles POST /api/commands/{name}.
//
//	@Summary		Trigger a hotkey command
//	@Tags			commands
//	@Produce		json
//	@Param			name	path		string	true	"Command"	Enums(toggle-history, process-last-item, select-prompt-1, select-prompt-2, select-prompt-3)
//	@Success		202		{object}	CommandResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/{name} [post]
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.clips.HandleCommand(r.Context(), name); err != nil {
		if errors.Is(err, apperr.ErrUnknownCommand) {
			writeJSON(w, http.StatusNotFound, errorBody("unknown command"))
		} else {
			slog.Error("command failed", slog.String("command", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, CommandResponse{Command: name, Accepted: true})
}
