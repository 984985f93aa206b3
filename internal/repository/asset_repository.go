package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

type AssetRepositoryInterface interface {
	Create(ctx context.Context, a *model.Asset) error
	GetByID(ctx context.Context, id string) (*model.Asset, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.Asset, error)
	Delete(ctx context.Context, id string) error
}

type AssetRepository struct {
	DB *sqlx.DB
}

const assetColumns = "id, team_id, type, url, metadata, created_at"

func (r *AssetRepository) Create(ctx context.Context, a *model.Asset) error {
	query := `
        INSERT INTO assets (team_id, type, url, metadata)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, a.TeamID, string(a.Type), a.URL, a.Metadata).
		Scan(&a.ID, &a.CreatedAt)
	return wrapErr("create asset", "asset", "", err)
}

func (r *AssetRepository) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	var a model.Asset
	if err := conn(ctx, r.DB).GetContext(ctx, &a, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id); err != nil {
		return nil, wrapErr("get asset", "asset", id, err)
	}
	return &a, nil
}

func (r *AssetRepository) ListByTeam(ctx context.Context, teamID string) ([]model.Asset, error) {
	assets := []model.Asset{}
	query := `SELECT ` + assetColumns + ` FROM assets WHERE team_id = $1 ORDER BY created_at DESC`
	if err := conn(ctx, r.DB).SelectContext(ctx, &assets, query, teamID); err != nil {
		return nil, wrapErr("list assets", "asset", "", err)
	}
	return assets, nil
}

// Delete removes the row only; the stored object is left in place.
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete asset", "asset", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("delete asset", "asset", id, err)
	}
	if n == 0 {
		return wrapErr("delete asset", "asset", id, errNoRows)
	}
	return nil
}

var _ AssetRepositoryInterface = (*AssetRepository)(nil)
