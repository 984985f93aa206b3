package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/metrics"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/queue"
)

// Announcer forwards a published post to whatever watches for it (a
// notification channel, a scraper scheduler).
type Announcer interface {
	Announce(ctx context.Context, event model.PostPublished) error
}

// LogAnnouncer writes the event to the log. It stands in until a real
// platform integration exists.
type LogAnnouncer struct {
	Logger *zap.Logger
}

func (a LogAnnouncer) Announce(ctx context.Context, e model.PostPublished) error {
	a.Logger.Info("post published",
		zap.String("post_id", e.PostID),
		zap.String("campaign_id", e.CampaignID),
		zap.String("platform", e.Platform),
		zap.String("external_post_id", e.ExternalPostID),
		zap.Time("published_at", e.PublishedAt))
	return nil
}

// Worker consumes post.published events.
type Worker struct {
	Announcer Announcer
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

func NewWorker(announcer Announcer, m *metrics.Metrics, logger *zap.Logger) *Worker {
	return &Worker{Announcer: announcer, Metrics: m, Logger: logger}
}

// Handle is a queue handler. Malformed events are dropped (nil error) since
// retrying cannot fix them; announcer failures are returned for retry.
func (w *Worker) Handle(payload any) error {
	var event model.PostPublished
	if err := queue.Decode(payload, &event); err != nil {
		w.Metrics.PostEvent("invalid")
		w.Logger.Warn("dropping malformed post event", zap.Error(err))
		return nil
	}
	if event.PostID == "" || event.Platform == "" {
		w.Metrics.PostEvent("invalid")
		w.Logger.Warn("dropping incomplete post event", zap.String("post_id", event.PostID))
		return nil
	}
	if err := w.Announcer.Announce(context.Background(), event); err != nil {
		w.Metrics.PostEvent("error")
		return fmt.Errorf("announce post %s: %w", event.PostID, err)
	}
	w.Metrics.PostEvent("ok")
	return nil
}

// Start subscribes the worker to topic.
func (w *Worker) Start(q queue.Queue, topic string) error {
	if err := q.Subscribe(topic, w.Handle); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}
	w.Logger.Info("worker subscribed", zap.String("topic", topic))
	return nil
}
