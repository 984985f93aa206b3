// internal/service/template_service.go
package service

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository"
)

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Placeholders returns the distinct {name} variables of a template in order
// of first appearance.
func Placeholders(template string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// RenderTemplate substitutes {key} placeholders. Placeholders without a value
// are left as they are.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

type TemplateService struct {
	TemplateRepo repository.TemplateRepositoryInterface
	TeamRepo     repository.TeamRepositoryInterface
	Logger       *zap.Logger
}

type CreateTemplateInput struct {
	TeamID       string `json:"team_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	TemplateText string `json:"template_text"`
}

type TemplatePreview struct {
	TemplateID string   `json:"template_id"`
	Rendered   string   `json:"rendered"`
	Missing    []string `json:"missing"`
}

func (s *TemplateService) requireMember(ctx context.Context, teamID, userID string) error {
	ok, err := s.TeamRepo.IsMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewForbidden(userID, "use templates of team "+teamID)
	}
	return nil
}

func (s *TemplateService) Create(ctx context.Context, userID string, in CreateTemplateInput) (*model.PromptTemplate, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, appErrors.NewValidation("name", "is required")
	}
	if strings.TrimSpace(in.TemplateText) == "" {
		return nil, appErrors.NewValidation("template_text", "template cannot be empty")
	}
	if in.TeamID == "" {
		return nil, appErrors.NewValidation("team_id", "is required")
	}
	if err := s.requireMember(ctx, in.TeamID, userID); err != nil {
		return nil, err
	}

	t := &model.PromptTemplate{
		TeamID:       in.TeamID,
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		TemplateText: in.TemplateText,
		CreatedBy:    userID,
	}
	if err := s.TemplateRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("prompt template created", zap.String("template_id", t.ID), zap.String("team_id", t.TeamID))
	}
	return t, nil
}

func (s *TemplateService) List(ctx context.Context, userID, teamID string) ([]model.PromptTemplate, error) {
	if teamID == "" {
		return nil, appErrors.NewValidation("team_id", "is required")
	}
	if err := s.requireMember(ctx, teamID, userID); err != nil {
		return nil, err
	}
	return s.TemplateRepo.ListByTeam(ctx, teamID)
}

// Preview renders a stored template with vars and reports the placeholders
// that had no value.
func (s *TemplateService) Preview(ctx context.Context, userID, templateID string, vars map[string]string) (*TemplatePreview, error) {
	t, err := s.TemplateRepo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, t.TeamID, userID); err != nil {
		return nil, err
	}

	missing := []string{}
	for _, name := range Placeholders(t.TemplateText) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return &TemplatePreview{
		TemplateID: t.ID,
		Rendered:   RenderTemplate(t.TemplateText, vars),
		Missing:    missing,
	}, nil
}
