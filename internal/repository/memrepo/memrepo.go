// Package memrepo is an in-memory implementation of the repository
// interfaces for tests and local demos. Every list is newest first, like the
// SQL implementation.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository"
)

// Store holds every table. Transact snapshots the whole store and restores
// it when the function fails.
type Store struct {
	mu sync.Mutex

	Now func() time.Time

	campaigns []model.Campaign
	versions  []model.CampaignVersion
	approvals []model.Approval
	posts     []model.Post
	kpis      []model.KPI
	teams     []model.Team
	members   []model.TeamMember
	users     []model.User
	templates []model.PromptTemplate
	assets    []model.Asset

	failures map[string]error
}

func New() *Store {
	return &Store{Now: func() time.Time { return time.Now().UTC() }, failures: map[string]error{}}
}

// FailOn makes the named operation (e.g. "posts.create") return err until
// cleared with a nil error.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		return appErrors.NewPersistence(op, err)
	}
	return nil
}

type snapshot struct {
	campaigns []model.Campaign
	versions  []model.CampaignVersion
	approvals []model.Approval
	posts     []model.Post
	teams     []model.Team
	members   []model.TeamMember
	users     []model.User
	templates []model.PromptTemplate
	assets    []model.Asset
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		campaigns: append([]model.Campaign(nil), s.campaigns...),
		versions:  append([]model.CampaignVersion(nil), s.versions...),
		approvals: append([]model.Approval(nil), s.approvals...),
		posts:     append([]model.Post(nil), s.posts...),
		teams:     append([]model.Team(nil), s.teams...),
		members:   append([]model.TeamMember(nil), s.members...),
		users:     append([]model.User(nil), s.users...),
		templates: append([]model.PromptTemplate(nil), s.templates...),
		assets:    append([]model.Asset(nil), s.assets...),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns, s.versions, s.approvals, s.posts = snap.campaigns, snap.versions, snap.approvals, snap.posts
	s.teams, s.members, s.users = snap.teams, snap.members, snap.users
	s.templates, s.assets = snap.templates, snap.assets
}

func (s *Store) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// AddUser seeds a user row directly, including its application role.
func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.Now()
	}
	s.users = append(s.users, u)
}

// AddKPI seeds a metric observation, standing in for the external ingester.
func (s *Store) AddKPI(k model.KPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	s.kpis = append(s.kpis, k)
}

// AllPosts returns every stored post, newest first.
func (s *Store) AllPosts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reversed(s.posts)
}

func (s *Store) AllApprovals() []model.Approval {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reversed(s.approvals)
}

func reversed[T any](in []T) []T {
	out := make([]T, 0, len(in))
	for i := len(in) - 1; i >= 0; i-- {
		out = append(out, in[i])
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (s *Store) Campaigns() *CampaignRepo { return &CampaignRepo{s} }
func (s *Store) Versions() *VersionRepo { return &VersionRepo{s} }
func (s *Store) Approvals() *ApprovalRepo { return &ApprovalRepo{s} }
func (s *Store) Posts() *PostRepo { return &PostRepo{s} }
func (s *Store) KPIs() *KPIRepo { return &KPIRepo{s} }
func (s *Store) Teams() *TeamRepo { return &TeamRepo{s} }
func (s *Store) Users() *UserRepo { return &UserRepo{s} }
func (s *Store) Templates() *TemplateRepo { return &TemplateRepo{s} }
func (s *Store) Assets() *AssetRepo { return &AssetRepo{s} }

type CampaignRepo struct{ s *Store }

func (r *CampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("campaigns.create"); err != nil {
		return err
	}
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	c.ID = uuid.NewString()
	c.CreatedAt = r.s.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.campaigns = append(r.s.campaigns, *c)
	return nil
}

func (r *CampaignRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.campaigns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (r *CampaignRepo) GetForUpdate(ctx context.Context, id string) (*model.Campaign, error) {
	return r.GetByID(ctx, id)
}

func (r *CampaignRepo) List(ctx context.Context, f repository.CampaignFilter) ([]model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Campaign{}
	for _, c := range reversed(r.s.campaigns) {
		if len(f.TeamIDs) > 0 && !contains(f.TeamIDs, c.TeamID) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	switch f.OrderBy {
	case "updated_at DESC":
		sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	case "updated_at ASC":
		sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	}
	if f.Limit > 0 {
		start := int(f.Offset)
		if start > len(out) {
			start = len(out)
		}
		end := start + int(f.Limit)
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("campaigns.update_status"); err != nil {
		return err
	}
	for i := range r.s.campaigns {
		if r.s.campaigns[i].ID == id {
			r.s.campaigns[i].Status = status
			r.s.campaigns[i].UpdatedAt = r.s.Now()
			return nil
		}
	}
	return appErrors.NewCampaignNotFound(id)
}

func (r *CampaignRepo) CountByStatus(ctx context.Context, teamIDs []string, status model.CampaignStatus) (int, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	list, err := r.List(ctx, repository.CampaignFilter{TeamIDs: teamIDs, Status: status})
	return len(list), err
}

type VersionRepo struct{ s *Store }

func (r *VersionRepo) Create(ctx context.Context, v *model.CampaignVersion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("versions.create"); err != nil {
		return err
	}
	if v.VersionNumber <= 0 {
		highest := 0
		for _, existing := range r.s.versions {
			if existing.CampaignID == v.CampaignID && existing.VersionNumber > highest {
				highest = existing.VersionNumber
			}
		}
		v.VersionNumber = highest + 1
	}
	for _, existing := range r.s.versions {
		if existing.CampaignID == v.CampaignID && existing.VersionNumber == v.VersionNumber {
			return appErrors.NewValidation("version_number", "already exists for campaign")
		}
	}
	v.ID = uuid.NewString()
	v.CreatedAt = r.s.Now()
	r.s.versions = append(r.s.versions, *v)
	return nil
}

func (r *VersionRepo) Latest(ctx context.Context, campaignID string) (*model.CampaignVersion, error) {
	versions, _ := r.ListByCampaign(ctx, campaignID)
	if len(versions) == 0 {
		return nil, appErrors.NewNotFound("campaign version", campaignID)
	}
	return &versions[0], nil
}

func (r *VersionRepo) ListByCampaign(ctx context.Context, campaignID string) ([]model.CampaignVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.CampaignVersion{}
	for _, v := range r.s.versions {
		if v.CampaignID == campaignID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (r *VersionRepo) ListByCampaignIDs(ctx context.Context, campaignIDs []string) ([]model.CampaignVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.CampaignVersion{}
	for _, v := range reversed(r.s.versions) {
		if contains(campaignIDs, v.CampaignID) {
			out = append(out, v)
		}
	}
	return out, nil
}

type ApprovalRepo struct{ s *Store }

func (r *ApprovalRepo) Create(ctx context.Context, a *model.Approval) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("approvals.create"); err != nil {
		return err
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.s.Now()
	r.s.approvals = append(r.s.approvals, *a)
	return nil
}

// campaignOf maps a version id to its campaign. Callers hold the lock.
func (s *Store) campaignOf(versionID string) (model.Campaign, bool) {
	for _, v := range s.versions {
		if v.ID != versionID {
			continue
		}
		for _, c := range s.campaigns {
			if c.ID == v.CampaignID {
				return c, true
			}
		}
	}
	return model.Campaign{}, false
}

func (r *ApprovalRepo) ListByCampaign(ctx context.Context, campaignID string) ([]model.Approval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Approval{}
	for _, a := range reversed(r.s.approvals) {
		if c, ok := r.s.campaignOf(a.CampaignVersionID); ok && c.ID == campaignID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *ApprovalRepo) ListRecent(ctx context.Context, teamIDs []string, limit int) ([]model.Approval, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Approval{}
	for _, a := range reversed(r.s.approvals) {
		if len(out) == limit {
			break
		}
		if c, ok := r.s.campaignOf(a.CampaignVersionID); ok && contains(teamIDs, c.TeamID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *ApprovalRepo) CountByStatus(ctx context.Context, teamIDs []string, status model.Decision) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, a := range r.s.approvals {
		if c, ok := r.s.campaignOf(a.CampaignVersionID); ok && contains(teamIDs, c.TeamID) && a.Status == status {
			n++
		}
	}
	return n, nil
}

type PostRepo struct{ s *Store }

func (r *PostRepo) CreateBatch(ctx context.Context, posts []*model.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range posts {
		if err := r.s.fail("posts.create"); err != nil {
			return err
		}
		p.ID = uuid.NewString()
		r.s.posts = append(r.s.posts, *p)
	}
	return nil
}

func (r *PostRepo) ListByVersionIDs(ctx context.Context, versionIDs []string) ([]model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Post{}
	for _, p := range reversed(r.s.posts) {
		if contains(versionIDs, p.CampaignVersionID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PostRepo) Count(ctx context.Context, teamIDs []string, since *time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.posts {
		c, ok := r.s.campaignOf(p.CampaignVersionID)
		if !ok || !contains(teamIDs, c.TeamID) {
			continue
		}
		if since != nil && p.PublishedAt.Before(*since) {
			continue
		}
		n++
	}
	return n, nil
}

type KPIRepo struct{ s *Store }

func (r *KPIRepo) ListByPostIDs(ctx context.Context, postIDs []string) ([]model.KPI, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.KPI{}
	for _, k := range r.s.kpis {
		if contains(postIDs, k.PostID) {
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScrapedAt.After(out[j].ScrapedAt) })
	return out, nil
}

type TeamRepo struct{ s *Store }

func (r *TeamRepo) Create(ctx context.Context, t *model.Team) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.create"); err != nil {
		return err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = r.s.Now()
	r.s.teams = append(r.s.teams, *t)
	return nil
}

func (r *TeamRepo) AddMember(ctx context.Context, m *model.TeamMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("teams.add_member"); err != nil {
		return err
	}
	for i, existing := range r.s.members {
		if existing.TeamID == m.TeamID && existing.UserID == m.UserID {
			r.s.members[i].Role = m.Role
			m.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	m.CreatedAt = r.s.Now()
	r.s.members = append(r.s.members, *m)
	return nil
}

func (r *TeamRepo) ListForUser(ctx context.Context, userID string) ([]model.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Team{}
	for _, t := range reversed(r.s.teams) {
		for _, m := range r.s.members {
			if m.TeamID == t.ID && m.UserID == userID {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (r *TeamRepo) IsMember(ctx context.Context, teamID, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.TeamID == teamID && m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type UserRepo struct{ s *Store }

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, appErrors.NewNotFound("user", id)
}

func (r *UserRepo) Upsert(ctx context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("users.upsert"); err != nil {
		return err
	}
	for i := range r.s.users {
		existing := &r.s.users[i]
		if existing.ID != u.ID {
			continue
		}
		if u.Email != "" {
			existing.Email = u.Email
		}
		if u.Name != "" {
			existing.Name = u.Name
		}
		*u = *existing
		return nil
	}
	u.Role = "member"
	u.CreatedAt = r.s.Now()
	r.s.users = append(r.s.users, *u)
	return nil
}

type TemplateRepo struct{ s *Store }

func (r *TemplateRepo) Create(ctx context.Context, t *model.PromptTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("templates.create"); err != nil {
		return err
	}
	t.ID = uuid.NewString()
	t.CreatedAt = r.s.Now()
	r.s.templates = append(r.s.templates, *t)
	return nil
}

func (r *TemplateRepo) GetByID(ctx context.Context, id string) (*model.PromptTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, appErrors.NewNotFound("prompt template", id)
}

func (r *TemplateRepo) ListByTeam(ctx context.Context, teamID string) ([]model.PromptTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.PromptTemplate{}
	for _, t := range reversed(r.s.templates) {
		if t.TeamID == teamID {
			out = append(out, t)
		}
	}
	return out, nil
}

type AssetRepo struct{ s *Store }

func (r *AssetRepo) Create(ctx context.Context, a *model.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("assets.create"); err != nil {
		return err
	}
	a.ID = uuid.NewString()
	a.CreatedAt = r.s.Now()
	r.s.assets = append(r.s.assets, *a)
	return nil
}

func (r *AssetRepo) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.assets {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, appErrors.NewNotFound("asset", id)
}

func (r *AssetRepo) ListByTeam(ctx context.Context, teamID string) ([]model.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Asset{}
	for _, a := range reversed(r.s.assets) {
		if a.TeamID == teamID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *AssetRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, a := range r.s.assets {
		if a.ID == id {
			r.s.assets = append(r.s.assets[:i], r.s.assets[i+1:]...)
			return nil
		}
	}
	return appErrors.NewNotFound("asset", id)
}

var (
	_ repository.Provider                    = (*Store)(nil)
	_ repository.CampaignRepositoryInterface = (*CampaignRepo)(nil)
	_ repository.VersionRepositoryInterface  = (*VersionRepo)(nil)
	_ repository.ApprovalRepositoryInterface = (*ApprovalRepo)(nil)
	_ repository.PostRepositoryInterface     = (*PostRepo)(nil)
	_ repository.KPIRepositoryInterface      = (*KPIRepo)(nil)
	_ repository.TeamRepositoryInterface     = (*TeamRepo)(nil)
	_ repository.UserRepositoryInterface     = (*UserRepo)(nil)
	_ repository.TemplateRepositoryInterface = (*TemplateRepo)(nil)
	_ repository.AssetRepositoryInterface    = (*AssetRepo)(nil)
)
