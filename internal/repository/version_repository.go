package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

type VersionRepositoryInterface interface {
	Create(ctx context.Context, v *model.CampaignVersion) error
	Latest(ctx context.Context, campaignID string) (*model.CampaignVersion, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]model.CampaignVersion, error)
	ListByCampaignIDs(ctx context.Context, campaignIDs []string) ([]model.CampaignVersion, error)
}

type VersionRepository struct {
	DB *sqlx.DB
}

const versionColumns = "id, campaign_id, version_number, content, prompt_template_id, created_at"

// Create inserts v. A zero VersionNumber is assigned the next number for the
// campaign.
func (r *VersionRepository) Create(ctx context.Context, v *model.CampaignVersion) error {
	query := `
        INSERT INTO campaign_versions (campaign_id, version_number, content, prompt_template_id)
        VALUES ($1,
            CASE WHEN $2 > 0 THEN $2
                 ELSE (SELECT COALESCE(MAX(version_number), 0) + 1 FROM campaign_versions WHERE campaign_id = $1)
            END,
            $3, $4)
        RETURNING id, version_number, created_at
    `
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, v.CampaignID, v.VersionNumber, v.Content, v.PromptTemplateID).
		Scan(&v.ID, &v.VersionNumber, &v.CreatedAt)
	return wrapErr("create campaign version", "campaign version", "", err)
}

// Latest returns the highest-numbered version of a campaign.
func (r *VersionRepository) Latest(ctx context.Context, campaignID string) (*model.CampaignVersion, error) {
	var v model.CampaignVersion
	query := `SELECT ` + versionColumns + ` FROM campaign_versions
        WHERE campaign_id=$1 ORDER BY version_number DESC LIMIT 1`
	if err := conn(ctx, r.DB).GetContext(ctx, &v, query, campaignID); err != nil {
		return nil, wrapErr("get latest campaign version", "campaign version", campaignID, err)
	}
	return &v, nil
}

func (r *VersionRepository) ListByCampaign(ctx context.Context, campaignID string) ([]model.CampaignVersion, error) {
	versions := []model.CampaignVersion{}
	query := `SELECT ` + versionColumns + ` FROM campaign_versions
        WHERE campaign_id=$1 ORDER BY version_number DESC`
	if err := conn(ctx, r.DB).SelectContext(ctx, &versions, query, campaignID); err != nil {
		return nil, wrapErr("list campaign versions", "campaign version", "", err)
	}
	return versions, nil
}

func (r *VersionRepository) ListByCampaignIDs(ctx context.Context, campaignIDs []string) ([]model.CampaignVersion, error) {
	versions := []model.CampaignVersion{}
	if len(campaignIDs) == 0 {
		return versions, nil
	}
	query := `SELECT ` + versionColumns + ` FROM campaign_versions
        WHERE campaign_id = ANY($1) ORDER BY created_at DESC`
	if err := conn(ctx, r.DB).SelectContext(ctx, &versions, query, pq.StringArray(campaignIDs)); err != nil {
		return nil, wrapErr("list campaign versions", "campaign version", "", err)
	}
	return versions, nil
}

var _ VersionRepositoryInterface = (*VersionRepository)(nil)
