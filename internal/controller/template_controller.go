package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/handler"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

type TemplateController struct {
	TemplateService *service.TemplateService
	Logger          *zap.Logger
}

func (c *TemplateController) Routes(r chi.Router) {
	r.Post("/templates", c.Create)
	r.Get("/templates", c.List)
	r.Post("/templates/{id}/preview", c.Preview)
}

func (c *TemplateController) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body service.CreateTemplateInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	if body.TeamID, err = handler.ParseUUID("team_id", body.TeamID); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	t, err := c.TemplateService.Create(r.Context(), userID, body)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, t)
}

func (c *TemplateController) List(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	teamID, err := handler.ParseUUID("team_id", r.URL.Query().Get("team_id"))
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	templates, err := c.TemplateService.List(r.Context(), userID, teamID)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"data": templates})
}

func (c *TemplateController) Preview(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	id, err := handler.UUIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body struct {
		Variables map[string]string `json:"variables"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	preview, err := c.TemplateService.Preview(r.Context(), userID, id, body.Variables)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, preview)
}
