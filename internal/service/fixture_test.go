package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository/memrepo"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingQueue keeps what was published instead of delivering it.
type recordingQueue struct {
	mu        sync.Mutex
	published []any
	err       error
}

func (q *recordingQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, payload)
	return nil
}

func (q *recordingQueue) Subscribe(string, func(any) error) error { return nil }
func (q *recordingQueue) Close() error { return nil }

func (q *recordingQueue) events() []model.PostPublished {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []model.PostPublished{}
	for _, p := range q.published {
		out = append(out, p.(model.PostPublished))
	}
	return out
}

type fixture struct {
	store    *memrepo.Store
	queue    *recordingQueue
	svc      *service.CampaignService
	teamID   string
	author   string
	reviewer string
	outsider string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memrepo.New()
	store.Now = func() time.Time { return t0 }
	q := &recordingQueue{}

	f := &fixture{
		store:    store,
		queue:    q,
		author:   "member-author",
		reviewer: "member-reviewer",
		outsider: "member-outsider",
	}
	store.AddUser(model.User{ID: f.author, Email: "author@example.com", Role: "member"})
	store.AddUser(model.User{ID: f.reviewer, Email: "review@example.com", Role: "manager"})
	store.AddUser(model.User{ID: f.outsider, Email: "out@example.com", Role: "compliance"})

	ctx := context.Background()
	team := &model.Team{Name: "Growth", OrganizationID: "org-1"}
	if err := store.Teams().Create(ctx, team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	f.teamID = team.ID
	for _, u := range []string{f.author, f.reviewer} {
		if err := store.Teams().AddMember(ctx, &model.TeamMember{TeamID: team.ID, UserID: u, Role: "member"}); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}

	f.svc = &service.CampaignService{
		CampaignRepo: store.Campaigns(),
		VersionRepo:  store.Versions(),
		ApprovalRepo: store.Approvals(),
		PostRepo:     store.Posts(),
		UserRepo:     store.Users(),
		TeamRepo:     store.Teams(),
		TemplateRepo: store.Templates(),
		Tx:           store,
		Queue:        q,
		Policy:       config.DefaultPolicy(),
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return t0 },
	}
	return f
}

// campaignIn creates a campaign and forces it into status.
func (f *fixture) campaignIn(t *testing.T, name string, status model.CampaignStatus) string {
	t.Helper()
	ctx := context.Background()
	d, err := f.svc.CreateCampaign(ctx, f.author, service.CreateCampaignInput{Name: name, TeamID: f.teamID})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	if status != model.StatusDraft {
		if err := f.store.Campaigns().UpdateStatus(ctx, d.ID, status); err != nil {
			t.Fatalf("force status: %v", err)
		}
	}
	return d.ID
}

func (f *fixture) status(t *testing.T, campaignID string) model.CampaignStatus {
	t.Helper()
	c, err := f.store.Campaigns().GetByID(context.Background(), campaignID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	return c.Status
}

func (f *fixture) postsFor(campaignID string) []model.Post {
	versions, _ := f.store.Versions().ListByCampaign(context.Background(), campaignID)
	ids := []string{}
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	posts, _ := f.store.Posts().ListByVersionIDs(context.Background(), ids)
	return posts
}

var errBoom = errors.New("boom")

func strPtr(s string) *string { return &s }
