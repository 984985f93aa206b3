package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

type PostRepositoryInterface interface {
	CreateBatch(ctx context.Context, posts []*model.Post) error
	ListByVersionIDs(ctx context.Context, versionIDs []string) ([]model.Post, error)
	Count(ctx context.Context, teamIDs []string, since *time.Time) (int, error)
}

type PostRepository struct {
	DB *sqlx.DB
}

const postColumns = "id, campaign_version_id, platform, external_post_id, caption, published_at"

// CreateBatch inserts posts one by one on the same connection. Callers wrap
// it in Provider.Transact so the batch is all-or-nothing.
func (r *PostRepository) CreateBatch(ctx context.Context, posts []*model.Post) error {
	query := `
        INSERT INTO posts (campaign_version_id, platform, external_post_id, caption, published_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	c := conn(ctx, r.DB)
	for _, p := range posts {
		err := c.QueryRowxContext(ctx, query, p.CampaignVersionID, p.Platform, p.ExternalPostID, p.Caption, p.PublishedAt).
			Scan(&p.ID)
		if err != nil {
			return wrapErr("create post", "post", "", err)
		}
	}
	return nil
}

func (r *PostRepository) ListByVersionIDs(ctx context.Context, versionIDs []string) ([]model.Post, error) {
	posts := []model.Post{}
	if len(versionIDs) == 0 {
		return posts, nil
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE campaign_version_id = ANY($1) ORDER BY published_at DESC`
	if err := conn(ctx, r.DB).SelectContext(ctx, &posts, query, pq.StringArray(versionIDs)); err != nil {
		return nil, wrapErr("list posts", "post", "", err)
	}
	return posts, nil
}

// Count returns the number of posts for the teams, optionally only those
// published at or after since.
func (r *PostRepository) Count(ctx context.Context, teamIDs []string, since *time.Time) (int, error) {
	q := psql.Select("COUNT(*)").
		From("posts p").
		Join("campaign_versions v ON v.id = p.campaign_version_id").
		Join("campaigns c ON c.id = v.campaign_id").
		Where("c.team_id = ANY(?)", pq.StringArray(teamIDs))
	if since != nil {
		q = q.Where("p.published_at >= ?", *since)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, wrapErr("build post count", "post", "", err)
	}
	var total int
	if err := conn(ctx, r.DB).GetContext(ctx, &total, query, args...); err != nil {
		return 0, wrapErr("count posts", "post", "", err)
	}
	return total, nil
}

// KPIRepositoryInterface is read-only: KPI rows are written by an external ingester.
type KPIRepositoryInterface interface {
	ListByPostIDs(ctx context.Context, postIDs []string) ([]model.KPI, error)
}

type KPIRepository struct {
	DB *sqlx.DB
}

func (r *KPIRepository) ListByPostIDs(ctx context.Context, postIDs []string) ([]model.KPI, error) {
	kpis := []model.KPI{}
	if len(postIDs) == 0 {
		return kpis, nil
	}
	query := `SELECT id, post_id, metric_name, metric_value, scraped_at FROM kpis
        WHERE post_id = ANY($1) ORDER BY scraped_at DESC`
	if err := conn(ctx, r.DB).SelectContext(ctx, &kpis, query, pq.StringArray(postIDs)); err != nil {
		return nil, wrapErr("list kpis", "kpi", "", err)
	}
	return kpis, nil
}

var _ PostRepositoryInterface = (*PostRepository)(nil)
var _ KPIRepositoryInterface = (*KPIRepository)(nil)
