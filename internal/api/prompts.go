package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/clipmaster/internal/apperr"
)

func (h *Handler) promptsResponse() PromptsResponse {
	return PromptsResponse{Prompts: h.prompts.All(), Active: h.prompts.Active()}
}

// writePromptError maps prompt set errors onto status codes.
func writePromptError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidTemplate):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListPrompts handles GET /api/prompts.
//
//	@Summary		List prompt templates and the active one
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptsResponse
//	@Security		BearerAuth
//	@Router			/prompts [get]
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.promptsResponse())
}

// AddPrompt handles POST /api/prompts.
//
//	@Summary		Add a prompt template
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddPromptRequest	true	"Template"
//	@Success		201		{object}	PromptsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [post]
func (h *Handler) AddPrompt(w http.ResponseWriter, r *http.Request) {
	var req AddPromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.prompts.Add(req.Template); err != nil {
		writePromptError(w, "add prompt", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.promptsResponse())
}

// UpdatePrompt handles PUT /api/prompts.
//
//	@Summary		Replace a prompt template
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdatePromptRequest	true	"Old and new template"
//	@Success		200		{object}	PromptsResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [put]
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var req UpdatePromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.prompts.Update(req.Old, req.New); err != nil {
		writePromptError(w, "update prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, h.promptsResponse())
}

// DeletePrompt handles DELETE /api/prompts?template=.
//
//	@Summary		Delete a prompt template
//	@Tags			prompts
//	@Produce		json
//	@Param			template	query		string	true	"Template to delete"
//	@Success		200			{object}	PromptsResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts [delete]
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	tmpl := r.URL.Query().Get("template")
	if tmpl == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'template' is required"))
		return
	}
	if err := h.prompts.Delete(tmpl); err != nil {
		writePromptError(w, "delete prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, h.promptsResponse())
}

// SetActivePrompt handles PUT /api/prompts/active.
//
//	@Summary		Select the active prompt by template or index
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SetActivePromptRequest	true	"Selection"
//	@Success		200		{object}	PromptsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/active [put]
func (h *Handler) SetActivePrompt(w http.ResponseWriter, r *http.Request) {
	var req SetActivePromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var err error
	switch {
	case req.Index != nil:
		err = h.prompts.SetActiveIndex(*req.Index)
	case req.Template != "":
		err = h.prompts.SetActive(req.Template)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("template or index is required"))
		return
	}
	if err != nil {
		writePromptError(w, "set active prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, h.promptsResponse())
}
