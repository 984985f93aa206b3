// internal/model/post.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Post struct {
	ID                string    `db:"id" json:"id"`
	CampaignVersionID string    `db:"campaign_version_id" json:"campaign_version_id"`
	Platform          string    `db:"platform" json:"platform"`
	ExternalPostID    string    `db:"external_post_id" json:"external_post_id"`
	Caption           *string   `db:"caption" json:"caption,omitempty"`
	PublishedAt       time.Time `db:"published_at" json:"published_at"`
}

// KPI is a single metric observation for a post, written by an external
// ingestion process.
type KPI struct {
	ID          string          `db:"id" json:"id"`
	PostID      string          `db:"post_id" json:"post_id"`
	MetricName  string          `db:"metric_name" json:"metric_name"`
	MetricValue decimal.Decimal `db:"metric_value" json:"metric_value"`
	ScrapedAt   time.Time       `db:"scraped_at" json:"scraped_at"`
}

// PostPublished is announced on the queue once a deployment commits.
type PostPublished struct {
	PostID         string    `json:"post_id"`
	CampaignID     string    `json:"campaign_id"`
	Platform       string    `json:"platform"`
	ExternalPostID string    `json:"external_post_id"`
	PublishedAt    time.Time `json:"published_at"`
}
