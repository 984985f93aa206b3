package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/handler"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

type AnalyticsController struct {
	AnalyticsService *service.AnalyticsService
	Logger           *zap.Logger
}

func (c *AnalyticsController) Report(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	report, err := c.AnalyticsService.Report(r.Context(), userID)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, report)
}
