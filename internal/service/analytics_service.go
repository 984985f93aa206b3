package service

import (
	"context"

	"github.com/unclebandit/clippilot-backend/internal/analytics"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository"
)

// AnalyticsService loads published campaigns with their posts and KPIs and
// hands the tree to the analytics package.
type AnalyticsService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	VersionRepo  repository.VersionRepositoryInterface
	PostRepo     repository.PostRepositoryInterface
	KPIRepo      repository.KPIRepositoryInterface
	TeamRepo     repository.TeamRepositoryInterface
}

func (s *AnalyticsService) Report(ctx context.Context, userID string) (*analytics.Report, error) {
	teams, err := s.TeamRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		report := analytics.Summarize(nil)
		return &report, nil
	}
	teamNames := map[string]string{}
	teamIDs := make([]string, 0, len(teams))
	for _, t := range teams {
		teamNames[t.ID] = t.Name
		teamIDs = append(teamIDs, t.ID)
	}

	campaigns, err := s.CampaignRepo.List(ctx, repository.CampaignFilter{
		TeamIDs: teamIDs,
		Status:  model.StatusPublished,
		OrderBy: "updated_at DESC",
	})
	if err != nil {
		return nil, err
	}
	trees, err := s.load(ctx, campaigns, teamNames)
	if err != nil {
		return nil, err
	}
	report := analytics.Summarize(trees)
	return &report, nil
}

// load fetches versions, posts and KPIs with one query per level and nests
// them under their campaigns.
func (s *AnalyticsService) load(ctx context.Context, campaigns []model.Campaign, teamNames map[string]string) ([]analytics.CampaignTree, error) {
	campaignIDs := make([]string, 0, len(campaigns))
	for _, c := range campaigns {
		campaignIDs = append(campaignIDs, c.ID)
	}
	versions, err := s.VersionRepo.ListByCampaignIDs(ctx, campaignIDs)
	if err != nil {
		return nil, err
	}
	versionIDs := make([]string, 0, len(versions))
	for _, v := range versions {
		versionIDs = append(versionIDs, v.ID)
	}
	posts, err := s.PostRepo.ListByVersionIDs(ctx, versionIDs)
	if err != nil {
		return nil, err
	}
	postIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}
	kpis, err := s.KPIRepo.ListByPostIDs(ctx, postIDs)
	if err != nil {
		return nil, err
	}

	kpisByPost := map[string][]model.KPI{}
	for _, k := range kpis {
		kpisByPost[k.PostID] = append(kpisByPost[k.PostID], k)
	}
	postsByVersion := map[string][]analytics.PostTree{}
	for _, p := range posts {
		postsByVersion[p.CampaignVersionID] = append(postsByVersion[p.CampaignVersionID],
			analytics.PostTree{Post: p, KPIs: kpisByPost[p.ID]})
	}
	versionsByCampaign := map[string][]analytics.VersionTree{}
	for _, v := range versions {
		versionsByCampaign[v.CampaignID] = append(versionsByCampaign[v.CampaignID],
			analytics.VersionTree{Version: v, Posts: postsByVersion[v.ID]})
	}

	trees := make([]analytics.CampaignTree, 0, len(campaigns))
	for _, c := range campaigns {
		trees = append(trees, analytics.CampaignTree{
			Campaign: c,
			TeamName: teamNames[c.TeamID],
			Versions: versionsByCampaign[c.ID],
		})
	}
	return trees, nil
}
