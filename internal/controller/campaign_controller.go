// internal/controller/campaign_controller.go
package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/handler"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Logger          *zap.Logger
}

func (c *CampaignController) Routes(r chi.Router) {
	r.Post("/campaigns", c.CreateCampaign)
	r.Get("/campaigns", c.ListCampaigns)
	r.Get("/campaigns/{id}", c.GetCampaignDetails)
	r.Post("/campaigns/{id}/submit", c.SubmitForApproval)
	r.Post("/campaigns/{id}/approvals", c.RecordApproval)
	r.Post("/campaigns/{id}/deploy", c.Deploy)
	r.Get("/dashboard/stats", c.DashboardStats)
	r.Get("/approvals/pending", c.PendingApprovals)
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body service.CreateCampaignInput
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	if body.TeamID, err = handler.ParseUUID("team_id", body.TeamID); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), userID, body)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))
	in := service.ListCampaignsInput{
		Status:   model.CampaignStatus(query.Get("status")),
		Page:     page,
		PageSize: pageSize,
	}
	if teamID := query.Get("team_id"); teamID != "" {
		if in.TeamID, err = handler.ParseUUID("team_id", teamID); err != nil {
			handler.WriteError(w, c.Logger, err)
			return
		}
	}

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), userID, in)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	userID, id, err := c.target(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	details, err := c.CampaignService.GetCampaignDetails(r.Context(), userID, id)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, details)
}

func (c *CampaignController) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	userID, id, err := c.target(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	campaign, err := c.CampaignService.SubmitForApproval(r.Context(), userID, id)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) RecordApproval(w http.ResponseWriter, r *http.Request) {
	userID, id, err := c.target(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body struct {
		Status   model.Decision `json:"status"`
		Comments *string        `json:"comments"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	approval, err := c.CampaignService.RecordApproval(r.Context(), id, userID, body.Status, body.Comments)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, approval)
}

func (c *CampaignController) Deploy(w http.ResponseWriter, r *http.Request) {
	userID, id, err := c.target(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	var body struct {
		Platforms []string `json:"platforms"`
		Caption   *string  `json:"caption"`
	}
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	result, err := c.CampaignService.Deploy(r.Context(), userID, id, body.Platforms, body.Caption)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, result)
}

func (c *CampaignController) DashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	stats, err := c.CampaignService.DashboardStats(r.Context(), userID)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, stats)
}

func (c *CampaignController) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	campaigns, err := c.CampaignService.PendingApprovals(r.Context(), userID)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"data": campaigns})
}

// target returns the caller and the {id} path parameter.
func (c *CampaignController) target(r *http.Request) (string, string, error) {
	userID, err := memberID(r)
	if err != nil {
		return "", "", err
	}
	id, err := handler.UUIDParam(r, "id")
	if err != nil {
		return "", "", err
	}
	return userID, id, nil
}
