package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/clippilot-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	Create(ctx context.Context, t *model.PromptTemplate) error
	GetByID(ctx context.Context, id string) (*model.PromptTemplate, error)
	ListByTeam(ctx context.Context, teamID string) ([]model.PromptTemplate, error)
}

type TemplateRepository struct {
	DB *sqlx.DB
}

const templateColumns = "id, team_id, name, description, template_text, created_by, created_at"

func (r *TemplateRepository) Create(ctx context.Context, t *model.PromptTemplate) error {
	query := `
        INSERT INTO prompt_templates (team_id, name, description, template_text, created_by)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := conn(ctx, r.DB).QueryRowxContext(ctx, query, t.TeamID, t.Name, t.Description, t.TemplateText, t.CreatedBy).
		Scan(&t.ID, &t.CreatedAt)
	return wrapErr("create prompt template", "prompt template", "", err)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.PromptTemplate, error) {
	var t model.PromptTemplate
	err := conn(ctx, r.DB).GetContext(ctx, &t, `SELECT `+templateColumns+` FROM prompt_templates WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get prompt template", "prompt template", id, err)
	}
	return &t, nil
}

func (r *TemplateRepository) ListByTeam(ctx context.Context, teamID string) ([]model.PromptTemplate, error) {
	templates := []model.PromptTemplate{}
	query := `SELECT ` + templateColumns + ` FROM prompt_templates WHERE team_id = $1 ORDER BY created_at DESC`
	if err := conn(ctx, r.DB).SelectContext(ctx, &templates, query, teamID); err != nil {
		return nil, wrapErr("list prompt templates", "prompt template", "", err)
	}
	return templates, nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
