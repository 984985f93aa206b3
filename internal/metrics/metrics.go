package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	postsCreated  *prometheus.CounterVec
	assetUploads  *prometheus.CounterVec
	postEvents    *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_transitions_total",
			Help: "Campaign status transitions by source and target status.",
		}, []string{"from", "to"}),
		postsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_posts_created_total",
			Help: "Posts created by deployments, per platform.",
		}, []string{"platform"}),
		assetUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asset_uploads_total",
			Help: "Asset uploads by result.",
		}, []string{"result"}),
		postEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "post_events_processed_total",
			Help: "post.published events handled by the worker, by result.",
		}, []string{"result"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(m.transitions, m.postsCreated, m.assetUploads, m.postEvents, m.httpDurations)
	return m
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) PostCreated(platform string) {
	if m == nil {
		return
	}
	m.postsCreated.WithLabelValues(platform).Inc()
}

func (m *Metrics) AssetUpload(result string) {
	if m == nil {
		return
	}
	m.assetUploads.WithLabelValues(result).Inc()
}

func (m *Metrics) PostEvent(result string) {
	if m == nil {
		return
	}
	m.postEvents.WithLabelValues(result).Inc()
}

// Middleware records request latency labelled with the chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDurations.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
