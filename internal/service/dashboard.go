package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository"
)

type DashboardStats struct {
	TotalCampaigns     int              `json:"total_campaigns"`
	PendingApprovals   int              `json:"pending_approvals"`
	PublishedCampaigns int              `json:"published_campaigns"`
	TotalPosts         int              `json:"total_posts"`
	PostsToday         int              `json:"posts_today"`
	ApprovedCount      int              `json:"approved_count"`
	RejectedCount      int              `json:"rejected_count"`
	RecentCampaigns    []model.Campaign `json:"recent_campaigns"`
	RecentApprovals    []model.Approval `json:"recent_approvals"`
}

const recentLimit = 5

func (s *CampaignService) teamIDs(ctx context.Context, userID string) ([]string, error) {
	teams, err := s.TeamRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// DashboardStats counts campaigns, posts and approvals across the caller's
// teams. The counts run concurrently.
func (s *CampaignService) DashboardStats(ctx context.Context, userID string) (*DashboardStats, error) {
	teamIDs, err := s.teamIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := &DashboardStats{RecentCampaigns: []model.Campaign{}, RecentApprovals: []model.Approval{}}
	if len(teamIDs) == 0 {
		return stats, nil
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	g, ctx := errgroup.WithContext(ctx)
	count := func(dst *int, fn func() (int, error)) {
		g.Go(func() error {
			n, err := fn()
			*dst = n
			return err
		})
	}
	count(&stats.TotalCampaigns, func() (int, error) { return s.CampaignRepo.CountByStatus(ctx, teamIDs, "") })
	count(&stats.PendingApprovals, func() (int, error) {
		return s.CampaignRepo.CountByStatus(ctx, teamIDs, model.StatusPendingApproval)
	})
	count(&stats.PublishedCampaigns, func() (int, error) {
		return s.CampaignRepo.CountByStatus(ctx, teamIDs, model.StatusPublished)
	})
	count(&stats.TotalPosts, func() (int, error) { return s.PostRepo.Count(ctx, teamIDs, nil) })
	count(&stats.PostsToday, func() (int, error) { return s.PostRepo.Count(ctx, teamIDs, &startOfDay) })
	count(&stats.ApprovedCount, func() (int, error) {
		return s.ApprovalRepo.CountByStatus(ctx, teamIDs, model.DecisionApproved)
	})
	count(&stats.RejectedCount, func() (int, error) {
		return s.ApprovalRepo.CountByStatus(ctx, teamIDs, model.DecisionRejected)
	})
	g.Go(func() error {
		recent, err := s.CampaignRepo.List(ctx, repository.CampaignFilter{TeamIDs: teamIDs, Limit: recentLimit})
		stats.RecentCampaigns = recent
		return err
	})
	g.Go(func() error {
		recent, err := s.ApprovalRepo.ListRecent(ctx, teamIDs, recentLimit)
		stats.RecentApprovals = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// PendingApprovals lists campaigns awaiting review in the reviewer's teams.
// Only members holding an approver role may call it.
func (s *CampaignService) PendingApprovals(ctx context.Context, reviewerID string) ([]model.Campaign, error) {
	reviewer, err := s.UserRepo.GetByID(ctx, reviewerID)
	if err != nil && !appErrors.IsNotFound(err) {
		return nil, err
	}
	if reviewer == nil || !s.Policy.IsApprover(reviewer.Role) {
		return nil, appErrors.NewForbidden(reviewerID, "review campaigns")
	}
	teamIDs, err := s.teamIDs(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if len(teamIDs) == 0 {
		return []model.Campaign{}, nil
	}
	return s.CampaignRepo.List(ctx, repository.CampaignFilter{
		TeamIDs: teamIDs,
		Status:  model.StatusPendingApproval,
		OrderBy: "updated_at ASC",
	})
}
