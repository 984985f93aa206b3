package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/handler"
	"github.com/unclebandit/clippilot-backend/internal/metrics"
)

// RouterConfig carries what NewRouter mounts.
type RouterConfig struct {
	Campaigns *CampaignController
	Templates *TemplateController
	Teams     *TeamController
	Assets    *AssetController
	Analytics *AnalyticsController
	Members   *MemberController

	// Auth guards every route except /health and /metrics.
	Auth        func(http.Handler) http.Handler
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	// Health reports whether the database is reachable. Nil means healthy.
	Health func(ctx context.Context) error
	Logger *zap.Logger
}

func NewRouter(conf RouterConfig) http.Handler {
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(conf.Metrics.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   conf.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if conf.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := conf.Health(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				handler.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		handler.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if conf.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(conf.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if conf.Auth != nil {
			r.Use(conf.Auth)
		}
		if conf.Campaigns != nil {
			conf.Campaigns.Routes(r)
		}
		if conf.Templates != nil {
			conf.Templates.Routes(r)
		}
		if conf.Teams != nil {
			conf.Teams.Routes(r)
		}
		if conf.Assets != nil {
			conf.Assets.Routes(r)
		}
		if conf.Analytics != nil {
			r.Get("/analytics", conf.Analytics.Report)
		}
		if conf.Members != nil {
			conf.Members.Routes(r)
		}
	})
	return r
}
