package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

// ApprovalRepositoryInterface has no update or delete: approvals are an
// append-only audit trail.
type ApprovalRepositoryInterface interface {
	Create(ctx context.Context, a *model.Approval) error
	ListByCampaign(ctx context.Context, campaignID string) ([]model.Approval, error)
	ListRecent(ctx context.Context, teamIDs []string, limit int) ([]model.Approval, error)
	CountByStatus(ctx context.Context, teamIDs []string, status model.Decision) (int, error)
}

type ApprovalRepository struct {
	DB *sqlx.DB
}

func (r *ApprovalRepository) Create(ctx context.Context, a *model.Approval) error {
	query := `
        INSERT INTO approvals (campaign_version_id, reviewer_id, status, comments)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, a.CampaignVersionID, a.ReviewerID, string(a.Status), a.Comments).
		Scan(&a.ID, &a.CreatedAt)
	return wrapErr("create approval", "approval", "", err)
}

func (r *ApprovalRepository) ListByCampaign(ctx context.Context, campaignID string) ([]model.Approval, error) {
	approvals := []model.Approval{}
	query := `
        SELECT a.id, a.campaign_version_id, a.reviewer_id, a.status, a.comments, a.created_at
        FROM approvals a
        JOIN campaign_versions v ON v.id = a.campaign_version_id
        WHERE v.campaign_id = $1
        ORDER BY a.created_at DESC
    `
	if err := conn(ctx, r.DB).SelectContext(ctx, &approvals, query, campaignID); err != nil {
		return nil, wrapErr("list approvals", "approval", "", err)
	}
	return approvals, nil
}

func (r *ApprovalRepository) ListRecent(ctx context.Context, teamIDs []string, limit int) ([]model.Approval, error) {
	approvals := []model.Approval{}
	query := `
        SELECT a.id, a.campaign_version_id, a.reviewer_id, a.status, a.comments, a.created_at
        FROM approvals a
        JOIN campaign_versions v ON v.id = a.campaign_version_id
        JOIN campaigns c ON c.id = v.campaign_id
        WHERE c.team_id = ANY($1)
        ORDER BY a.created_at DESC
        LIMIT $2
    `
	if err := conn(ctx, r.DB).SelectContext(ctx, &approvals, query, pq.StringArray(teamIDs), limit); err != nil {
		return nil, wrapErr("list recent approvals", "approval", "", err)
	}
	return approvals, nil
}

func (r *ApprovalRepository) CountByStatus(ctx context.Context, teamIDs []string, status model.Decision) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM approvals a
        JOIN campaign_versions v ON v.id = a.campaign_version_id
        JOIN campaigns c ON c.id = v.campaign_id
        WHERE c.team_id = ANY($1) AND a.status = $2
    `
	var total int
	if err := conn(ctx, r.DB).GetContext(ctx, &total, query, pq.StringArray(teamIDs), string(status)); err != nil {
		return 0, wrapErr("count approvals", "approval", "", err)
	}
	return total, nil
}

var _ ApprovalRepositoryInterface = (*ApprovalRepository)(nil)
