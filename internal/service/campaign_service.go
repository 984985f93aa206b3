// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/metrics"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/queue"
	"github.com/unclebandit/clippilot-backend/internal/repository"
)

// TopicPostPublished is the default queue topic for deployment events.
const TopicPostPublished = "post.published"

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	VersionRepo  repository.VersionRepositoryInterface
	ApprovalRepo repository.ApprovalRepositoryInterface
	PostRepo     repository.PostRepositoryInterface
	UserRepo     repository.UserRepositoryInterface
	TeamRepo     repository.TeamRepositoryInterface
	TemplateRepo repository.TemplateRepositoryInterface
	Tx           repository.Provider

	// Queue receives one PostPublished event per post after a deployment
	// commits. Nil disables announcements.
	Queue   queue.Queue
	Topic   string
	Policy  config.Policy
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

type CreateCampaignInput struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	TeamID           string  `json:"team_id"`
	Content          *string `json:"content,omitempty"`
	PromptTemplateID *string `json:"prompt_template_id,omitempty"`
}

type ListCampaignsInput struct {
	TeamID   string
	Status   model.CampaignStatus
	Page     int
	PageSize int
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// CampaignDetails is a campaign with its history and the actions its
// current status allows.
type CampaignDetails struct {
	model.Campaign
	Versions       []model.CampaignVersion `json:"versions"`
	Approvals      []model.Approval        `json:"approvals"`
	Posts          []model.Post            `json:"posts"`
	AllowedActions []model.Action          `json:"allowed_actions"`
}

type DeployResult struct {
	CampaignID string       `json:"campaign_id"`
	Status     string       `json:"status"`
	Posts      []model.Post `json:"posts"`
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CampaignService) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

func (s *CampaignService) topic() string {
	if s.Topic != "" {
		return s.Topic
	}
	return TopicPostPublished
}

func (s *CampaignService) requireMember(ctx context.Context, teamID, userID, action string) error {
	ok, err := s.TeamRepo.IsMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewForbidden(userID, action)
	}
	return nil
}

// Authorize loads the campaign and checks that userID belongs to its team.
func (s *CampaignService) Authorize(ctx context.Context, campaignID, userID string) (*model.Campaign, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, campaign.TeamID, userID, "access campaign "+campaignID); err != nil {
		return nil, err
	}
	return campaign, nil
}

// CreateCampaign creates a draft campaign and its version 1 together.
func (s *CampaignService) CreateCampaign(ctx context.Context, userID string, in CreateCampaignInput) (*CampaignDetails, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, appErrors.NewValidation("name", "is required")
	}
	if in.TeamID == "" {
		return nil, appErrors.NewValidation("team_id", "is required")
	}
	if err := s.requireMember(ctx, in.TeamID, userID, "create campaigns in team "+in.TeamID); err != nil {
		return nil, err
	}
	if in.PromptTemplateID != nil {
		tmpl, err := s.TemplateRepo.GetByID(ctx, *in.PromptTemplateID)
		if err != nil {
			return nil, err
		}
		if tmpl.TeamID != in.TeamID {
			return nil, appErrors.NewValidation("prompt_template_id", "belongs to another team")
		}
	}

	campaign := &model.Campaign{
		Name:        in.Name,
		Description: in.Description,
		TeamID:      in.TeamID,
		CreatedBy:   userID,
		Status:      model.StatusDraft,
	}
	version := &model.CampaignVersion{
		VersionNumber:    1,
		Content:          in.Content,
		PromptTemplateID: in.PromptTemplateID,
	}
	err := s.Tx.Transact(ctx, func(ctx context.Context) error {
		if err := s.CampaignRepo.Create(ctx, campaign); err != nil {
			return err
		}
		version.CampaignID = campaign.ID
		return s.VersionRepo.Create(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.log().Info("campaign created",
		zap.String("campaign_id", campaign.ID), zap.String("team_id", campaign.TeamID), zap.String("user_id", userID))
	return &CampaignDetails{
		Campaign:       *campaign,
		Versions:       []model.CampaignVersion{*version},
		Approvals:      []model.Approval{},
		Posts:          []model.Post{},
		AllowedActions: model.AllowedActions(campaign.Status),
	}, nil
}

// ListCampaigns lists the campaigns of the caller's teams, newest first.
func (s *CampaignService) ListCampaigns(ctx context.Context, userID string, in ListCampaignsInput) ([]model.Campaign, Pagination, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, Pagination{}, appErrors.NewValidation("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PageSize < 1 {
		in.PageSize = 20
	}
	if in.PageSize > 100 {
		in.PageSize = 100
	}

	teams, err := s.TeamRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}
	teamIDs := make([]string, 0, len(teams))
	for _, t := range teams {
		if in.TeamID == "" || t.ID == in.TeamID {
			teamIDs = append(teamIDs, t.ID)
		}
	}
	if in.TeamID != "" && len(teamIDs) == 0 {
		return nil, Pagination{}, appErrors.NewForbidden(userID, "list campaigns of team "+in.TeamID)
	}
	if len(teamIDs) == 0 {
		return []model.Campaign{}, Pagination{Page: in.Page, PageSize: in.PageSize}, nil
	}

	total, err := s.CampaignRepo.CountByStatus(ctx, teamIDs, in.Status)
	if err != nil {
		return nil, Pagination{}, err
	}
	campaigns, err := s.CampaignRepo.List(ctx, repository.CampaignFilter{
		TeamIDs: teamIDs,
		Status:  in.Status,
		Limit:   uint64(in.PageSize),
		Offset:  uint64((in.Page - 1) * in.PageSize),
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	return campaigns, Pagination{
		Page:       in.Page,
		PageSize:   in.PageSize,
		TotalCount: total,
		TotalPages: (total + in.PageSize - 1) / in.PageSize,
	}, nil
}

func (s *CampaignService) GetCampaignDetails(ctx context.Context, userID, campaignID string) (*CampaignDetails, error) {
	campaign, err := s.Authorize(ctx, campaignID, userID)
	if err != nil {
		return nil, err
	}
	versions, err := s.VersionRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	approvals, err := s.ApprovalRepo.ListByCampaign(ctx, campaignID)
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

	return &CampaignDetails{
		Campaign:       *campaign,
		Versions:       versions,
		Approvals:      approvals,
		Posts:          posts,
		AllowedActions: model.AllowedActions(campaign.Status),
	}, nil
}

// transition locks the campaign, checks that action is allowed from its
// status and returns the campaign with the target status.
func (s *CampaignService) transition(ctx context.Context, campaignID string, action model.Action) (*model.Campaign, model.CampaignStatus, error) {
	campaign, err := s.CampaignRepo.GetForUpdate(ctx, campaignID)
	if err != nil {
		return nil, "", err
	}
	next, ok := model.Next(campaign.Status, action)
	if !ok {
		return nil, "", appErrors.NewPrecondition(string(action), string(campaign.Status))
	}
	return campaign, next, nil
}

// SubmitForApproval moves a draft campaign to pending_approval. No other
// field changes.
func (s *CampaignService) SubmitForApproval(ctx context.Context, userID, campaignID string) (*model.Campaign, error) {
	if _, err := s.Authorize(ctx, campaignID, userID); err != nil {
		return nil, err
	}

	var campaign *model.Campaign
	var from model.CampaignStatus
	err := s.Tx.Transact(ctx, func(ctx context.Context) error {
		c, next, err := s.transition(ctx, campaignID, model.ActionSubmit)
		if err != nil {
			return err
		}
		if err := s.CampaignRepo.UpdateStatus(ctx, campaignID, next); err != nil {
			return err
		}
		from = c.Status
		c.Status = next
		campaign = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition(string(from), string(campaign.Status))
	s.log().Info("campaign submitted for approval", zap.String("campaign_id", campaignID), zap.String("user_id", userID))
	return campaign, nil
}

// RecordApproval stores a reviewer's decision against the latest version and
// moves the campaign to the decided status in one transaction.
func (s *CampaignService) RecordApproval(ctx context.Context, campaignID, reviewerID string, decision model.Decision, comment *string) (*model.Approval, error) {
	reviewer, err := s.UserRepo.GetByID(ctx, reviewerID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.NewForbidden(reviewerID, "review campaigns")
		}
		return nil, err
	}
	if !s.Policy.IsApprover(reviewer.Role) {
		return nil, appErrors.NewForbidden(reviewerID, "review campaigns")
	}
	if !decision.Valid() {
		return nil, appErrors.NewValidation("status", fmt.Sprintf("decision must be approved or rejected, got %q", decision))
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}
	if decision == model.DecisionRejected && comment == nil {
		return nil, appErrors.NewValidation("comments", "a rejection needs a comment")
	}
	if _, err := s.Authorize(ctx, campaignID, reviewerID); err != nil {
		return nil, err
	}

	action := model.ActionApprove
	if decision == model.DecisionRejected {
		action = model.ActionReject
	}

	approval := &model.Approval{ReviewerID: reviewerID, Status: decision, Comments: comment}
	var from, to model.CampaignStatus
	err = s.Tx.Transact(ctx, func(ctx context.Context) error {
		c, next, err := s.transition(ctx, campaignID, action)
		if err != nil {
			return err
		}
		version, err := s.VersionRepo.Latest(ctx, campaignID)
		if err != nil {
			return err
		}
		approval.CampaignVersionID = version.ID
		if err := s.ApprovalRepo.Create(ctx, approval); err != nil {
			return err
		}
		from, to = c.Status, next
		return s.CampaignRepo.UpdateStatus(ctx, campaignID, next)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition(string(from), string(to))
	s.log().Info("approval recorded",
		zap.String("campaign_id", campaignID), zap.String("reviewer_id", reviewerID), zap.String("decision", string(decision)))
	return approval, nil
}

// normalizePlatforms lowercases, dedupes and validates platform ids while
// keeping their first-seen order.
func (s *CampaignService) normalizePlatforms(platforms []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		if !s.Policy.IsPlatform(p) {
			return nil, appErrors.NewValidation("platforms", fmt.Sprintf("unknown platform %q", p))
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, appErrors.NewValidation("platforms", "select at least one platform")
	}
	return out, nil
}

// Deploy publishes an approved campaign: one post per platform plus the
// status change, all in one transaction. Events are announced after commit.
func (s *CampaignService) Deploy(ctx context.Context, userID, campaignID string, platforms []string, caption *string) (*DeployResult, error) {
	targets, err := s.normalizePlatforms(platforms)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, campaignID, userID); err != nil {
		return nil, err
	}

	publishedAt := s.now()
	posts := make([]*model.Post, 0, len(targets))
	var from model.CampaignStatus
	err = s.Tx.Transact(ctx, func(ctx context.Context) error {
		c, next, err := s.transition(ctx, campaignID, model.ActionDeploy)
		if err != nil {
			return err
		}
		version, err := s.VersionRepo.Latest(ctx, campaignID)
		if err != nil {
			return err
		}
		for _, platform := range targets {
			posts = append(posts, &model.Post{
				CampaignVersionID: version.ID,
				Platform:          platform,
				ExternalPostID:    fmt.Sprintf("mock_%s_%d", platform, publishedAt.UnixMilli()),
				Caption:           caption,
				PublishedAt:       publishedAt,
			})
		}
		if err := s.PostRepo.CreateBatch(ctx, posts); err != nil {
			return err
		}
		from = c.Status
		return s.CampaignRepo.UpdateStatus(ctx, campaignID, next)
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.Transition(string(from), string(model.StatusPublished))
	result := &DeployResult{CampaignID: campaignID, Status: string(model.StatusPublished)}
	for _, p := range posts {
		s.Metrics.PostCreated(p.Platform)
		result.Posts = append(result.Posts, *p)
		s.announce(campaignID, *p)
	}
	s.log().Info("campaign deployed",
		zap.String("campaign_id", campaignID), zap.Strings("platforms", targets), zap.String("user_id", userID))
	return result, nil
}

// announce is best effort: the deployment is already committed.
func (s *CampaignService) announce(campaignID string, p model.Post) {
	if s.Queue == nil {
		return
	}
	event := model.PostPublished{
		PostID:         p.ID,
		CampaignID:     campaignID,
		Platform:       p.Platform,
		ExternalPostID: p.ExternalPostID,
		PublishedAt:    p.PublishedAt,
	}
	if err := s.Queue.Publish(s.topic(), event); err != nil {
		s.log().Warn("failed to announce post", zap.String("post_id", p.ID), zap.Error(err))
	}
}
