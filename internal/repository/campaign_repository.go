package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

// CampaignFilter narrows ListCampaigns. Empty fields are ignored.
type CampaignFilter struct {
	TeamIDs []string
	Status  model.CampaignStatus
	// OrderBy defaults to "created_at DESC".
	OrderBy string
	// Limit of 0 returns every row.
	Limit  uint64
	Offset uint64
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	GetForUpdate(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, f CampaignFilter) ([]model.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error
	CountByStatus(ctx context.Context, teamIDs []string, status model.CampaignStatus) (int, error)
}

type CampaignRepository struct {
	DB *sqlx.DB
}

const campaignColumns = "id, name, description, team_id, created_by, status, created_at, updated_at"

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	query := `
        INSERT INTO campaigns (name, description, team_id, created_by, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, c.Name, c.Description, c.TeamID, c.CreatedBy, c.Status).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return wrapErr("create campaign", "campaign", "", err)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := conn(ctx, r.DB).GetContext(ctx, &c, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return nil, wrapErr("get campaign", "campaign", id, err)
	}
	return &c, nil
}

// GetForUpdate locks the campaign row until the surrounding transaction ends.
// Outside Provider.Transact the lock is released immediately.
func (r *CampaignRepository) GetForUpdate(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := conn(ctx, r.DB).GetContext(ctx, &c, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1 FOR UPDATE`, id)
	if err != nil {
		return nil, wrapErr("lock campaign", "campaign", id, err)
	}
	return &c, nil
}

func (r *CampaignRepository) List(ctx context.Context, f CampaignFilter) ([]model.Campaign, error) {
	q := psql.Select(campaignColumns).From("campaigns")
	if len(f.TeamIDs) > 0 {
		q = q.Where("team_id = ANY(?)", pq.StringArray(f.TeamIDs))
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	q = q.OrderBy(orderBy)
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, wrapErr("build campaign list", "campaign", "", err)
	}

	campaigns := []model.Campaign{}
	if err := conn(ctx, r.DB).SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, wrapErr("list campaigns", "campaign", "", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		return wrapErr("update campaign status", "campaign", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("update campaign status", "campaign", id, err)
	}
	if n == 0 {
		return wrapErr("update campaign status", "campaign", id, errNoRows)
	}
	return nil
}

func (r *CampaignRepository) CountByStatus(ctx context.Context, teamIDs []string, status model.CampaignStatus) (int, error) {
	q := psql.Select("COUNT(*)").From("campaigns").Where("team_id = ANY(?)", pq.StringArray(teamIDs))
	if status != "" {
		q = q.Where(sq.Eq{"status": string(status)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, wrapErr("build campaign count", "campaign", "", err)
	}
	var total int
	if err := conn(ctx, r.DB).GetContext(ctx, &total, query, args...); err != nil {
		return 0, wrapErr("count campaigns", "campaign", "", err)
	}
	return total, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
