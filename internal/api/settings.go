package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ListModels handles GET /api/models.
//
//	@Summary		List models from the last refresh
//	@Tags			models
//	@Produce		json
//	@Success		200	{object}	ModelsResponse
//	@Security		BearerAuth
//	@Router			/models [get]
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		Models:   h.clips.Models(),
		Selected: h.settings.SelectedModel(),
	})
}

// RefreshModels handles POST /api/models/refresh.
//
//	@Summary		Re-fetch installed models from the generation server
//	@Tags			models
//	@Produce		json
//	@Success		200	{object}	ModelsResponse
//	@Security		BearerAuth
//	@Router			/models/refresh [post]
func (h *Handler) RefreshModels(w http.ResponseWriter, r *http.Request) {
	list := h.clips.RefreshModels(r.Context())
	writeJSON(w, http.StatusOK, ModelsResponse{
		Models:   list,
		Selected: h.settings.SelectedModel(),
	})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get user preferences
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	settings.Preferences
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Preferences())
}

// UpdateSettings handles PUT /api/settings. Every field is validated before
// any is applied.
//
//	@Summary		Update user preferences
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateSettingsRequest	true	"Fields to change"
//	@Success		200		{object}	settings.Preferences
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	if err := h.applySettings(r.Context(), req); err != nil {
		var verr validation.Error
		var verrs validation.Errors
		if errors.As(err, &verr) || errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("update settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, h.settings.Preferences())
}

func (h *Handler) applySettings(ctx context.Context, req UpdateSettingsRequest) error {
	if req.Temperature != nil {
		if err := h.settings.SetTemperature(*req.Temperature); err != nil {
			return err
		}
	}
	if req.SelectedModel != nil {
		if err := h.settings.SetSelectedModel(*req.SelectedModel); err != nil {
			return err
		}
	}
	for name, hk := range req.Hotkeys {
		if err := h.settings.SetHotkey(name, hk); err != nil {
			return err
		}
	}
	if req.HistoryLimit != nil {
		if err := h.settings.SetHistoryLimit(*req.HistoryLimit); err != nil {
			return err
		}
		if err := h.clips.SetHistoryLimit(*req.HistoryLimit); err != nil {
			return err
		}
	}
	if req.OllamaURL != nil && *req.OllamaURL != h.settings.OllamaURL() {
		if err := h.settings.SetOllamaURL(*req.OllamaURL); err != nil {
			return err
		}
		h.clips.RefreshModels(ctx)
	}
	return nil
}
