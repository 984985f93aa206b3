package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/handler"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

type TeamController struct {
	TeamService *service.TeamService
	Logger      *zap.Logger
}

func (c *TeamController) Routes(r chi.Router) {
	r.Post("/teams", c.Create)
	r.Get("/teams", c.List)
	r.Post("/teams/{id}/members", c.AddMember)
}

// Create makes a team in the caller's organization.
func (c *TeamController) Create(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	team, err := c.TeamService.Create(r.Context(), p.MemberID, p.OrganizationID, body.Name)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, team)
}

func (c *TeamController) List(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	teams, err := c.TeamService.ListForUser(r.Context(), userID)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"data": teams})
}

func (c *TeamController) AddMember(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	teamID, err := handler.UUIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	m, err := c.TeamService.AddMember(r.Context(), userID, teamID, body.UserID, body.Role)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, m)
}
