package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

type TeamRepositoryInterface interface {
	Create(ctx context.Context, t *model.Team) error
	AddMember(ctx context.Context, m *model.TeamMember) error
	ListForUser(ctx context.Context, userID string) ([]model.Team, error)
	IsMember(ctx context.Context, teamID, userID string) (bool, error)
}

type TeamRepository struct {
	DB *sqlx.DB
}

func (r *TeamRepository) Create(ctx context.Context, t *model.Team) error {
	query := `INSERT INTO teams (name, organization_id) VALUES ($1, $2) RETURNING id, created_at`
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, t.Name, t.OrganizationID).Scan(&t.ID, &t.CreatedAt)
	return wrapErr("create team", "team", "", err)
}

func (r *TeamRepository) AddMember(ctx context.Context, m *model.TeamMember) error {
	query := `
        INSERT INTO team_members (team_id, user_id, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING created_at
    `
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, m.TeamID, m.UserID, m.Role).Scan(&m.CreatedAt)
	return wrapErr("add team member", "team member", "", err)
}

func (r *TeamRepository) ListForUser(ctx context.Context, userID string) ([]model.Team, error) {
	teams := []model.Team{}
	query := `
        SELECT t.id, t.name, t.organization_id, t.created_at
        FROM teams t
        JOIN team_members m ON m.team_id = t.id
        WHERE m.user_id = $1
        ORDER BY t.created_at DESC
    `
	if err := conn(ctx, r.DB).SelectContext(ctx, &teams, query, userID); err != nil {
		return nil, wrapErr("list teams", "team", "", err)
	}
	return teams, nil
}

func (r *TeamRepository) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2)`
	if err := conn(ctx, r.DB).GetContext(ctx, &exists, query, teamID, userID); err != nil {
		return false, wrapErr("check team membership", "team member", "", err)
	}
	return exists, nil
}

var _ TeamRepositoryInterface = (*TeamRepository)(nil)
