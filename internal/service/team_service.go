package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository"
)

// OwnerRole is the team_members role given to a team's creator.
const OwnerRole = "owner"

type TeamService struct {
	TeamRepo repository.TeamRepositoryInterface
	Tx       repository.Provider
	Logger   *zap.Logger
}

// Create makes a team in the caller's organization with the caller as owner.
func (s *TeamService) Create(ctx context.Context, userID, organizationID, name string) (*model.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.NewValidation("name", "is required")
	}
	if organizationID == "" {
		return nil, appErrors.NewValidation("organization_id", "is required")
	}

	team := &model.Team{Name: name, OrganizationID: organizationID}
	err := s.Tx.Transact(ctx, func(ctx context.Context) error {
		if err := s.TeamRepo.Create(ctx, team); err != nil {
			return err
		}
		return s.TeamRepo.AddMember(ctx, &model.TeamMember{TeamID: team.ID, UserID: userID, Role: OwnerRole})
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("team created", zap.String("team_id", team.ID), zap.String("user_id", userID))
	}
	return team, nil
}

func (s *TeamService) ListForUser(ctx context.Context, userID string) ([]model.Team, error) {
	return s.TeamRepo.ListForUser(ctx, userID)
}

// AddMember lets an existing member of the team add another user.
func (s *TeamService) AddMember(ctx context.Context, userID, teamID, memberID, role string) (*model.TeamMember, error) {
	if memberID == "" {
		return nil, appErrors.NewValidation("user_id", "is required")
	}
	if role == "" {
		role = "member"
	}
	ok, err := s.TeamRepo.IsMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.NewForbidden(userID, "add members to team "+teamID)
	}
	m := &model.TeamMember{TeamID: teamID, UserID: memberID, Role: role}
	if err := s.TeamRepo.AddMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}
