package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	"github.com/unclebandit/clippilot-backend/internal/controller"
	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/identity"
	"github.com/unclebandit/clippilot-backend/internal/metrics"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository/memrepo"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

var now = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

// sessions maps a session token to the member it belongs to.
type sessions map[string]identity.Session

func (s sessions) Authenticate(ctx context.Context, token string) (*identity.Session, error) {
	session, ok := s[token]
	if !ok {
		return nil, appErrors.NewUnauthorized("unknown session")
	}
	return &session, nil
}

func (s sessions) SearchMembers(ctx context.Context, organizationID string) ([]identity.Member, error) {
	out := []identity.Member{}
	for _, session := range s {
		if session.Organization.OrganizationID == organizationID {
			out = append(out, session.Member)
		}
	}
	return out, nil
}

func (s sessions) UpdateMemberRoles(ctx context.Context, organizationID, memberID string, roles []string) (*identity.Member, error) {
	return &identity.Member{MemberID: memberID, OrganizationID: organizationID}, nil
}

func (s sessions) InviteMember(ctx context.Context, in identity.Invite) (*identity.InviteResult, error) {
	if in.EmailAddress == "" {
		return nil, appErrors.NewValidation("email", "is required")
	}
	return &identity.InviteResult{MemberID: "member-invited", RequestID: in.OrganizationID + ":" + in.EmailAddress}, nil
}

type objectStore struct{ keys []string }

func (o *objectStore) Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error) {
	o.keys = append(o.keys, key)
	return "https://assets.example.com/" + key, nil
}

type api struct {
	t       *testing.T
	store   *memrepo.Store
	handler http.Handler
	objects *objectStore
	teamID  string
}

const (
	authorToken   = "tok-author"
	reviewerToken = "tok-reviewer"
	outsiderToken = "tok-outsider"
)

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memrepo.New()
	store.Now = func() time.Time { return now }
	store.AddUser(model.User{ID: "member-author", Email: "author@example.com", Role: "member"})
	store.AddUser(model.User{ID: "member-reviewer", Email: "reviewer@example.com", Role: "compliance"})

	ctx := context.Background()
	team := &model.Team{Name: "Brand", OrganizationID: "org-1"}
	require.NoError(t, store.Teams().Create(ctx, team))
	for _, id := range []string{"member-author", "member-reviewer"} {
		require.NoError(t, store.Teams().AddMember(ctx, &model.TeamMember{TeamID: team.ID, UserID: id, Role: "member"}))
	}

	member := func(id string) identity.Session {
		return identity.Session{
			Member:       identity.Member{MemberID: id, EmailAddress: id + "@example.com", OrganizationID: "org-1"},
			Organization: identity.Organization{OrganizationID: "org-1"},
		}
	}
	provider := sessions{
		authorToken:   member("member-author"),
		reviewerToken: member("member-reviewer"),
		outsiderToken: member("member-outsider"),
	}

	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	objects := &objectStore{}
	clock := func() time.Time { return now }

	users := &service.UserService{UserRepo: store.Users(), Identity: provider, Logger: logger}
	campaigns := &service.CampaignService{
		CampaignRepo: store.Campaigns(),
		VersionRepo:  store.Versions(),
		ApprovalRepo: store.Approvals(),
		PostRepo:     store.Posts(),
		UserRepo:     store.Users(),
		TeamRepo:     store.Teams(),
		TemplateRepo: store.Templates(),
		Tx:           store,
		Policy:       config.DefaultPolicy(),
		Metrics:      m,
		Logger:       logger,
		Now:          clock,
	}

	h := controller.NewRouter(controller.RouterConfig{
		Campaigns: &controller.CampaignController{CampaignService: campaigns, Logger: logger},
		Templates: &controller.TemplateController{
			TemplateService: &service.TemplateService{TemplateRepo: store.Templates(), TeamRepo: store.Teams()},
		},
		Teams: &controller.TeamController{TeamService: &service.TeamService{TeamRepo: store.Teams(), Tx: store}},
		Assets: &controller.AssetController{
			AssetService: &service.AssetService{
				AssetRepo: store.Assets(), TeamRepo: store.Teams(), Store: objects, Metrics: m, Now: clock,
			},
			MaxUploadBytes: 4 << 10,
		},
		Analytics: &controller.AnalyticsController{AnalyticsService: &service.AnalyticsService{
			CampaignRepo: store.Campaigns(), VersionRepo: store.Versions(), PostRepo: store.Posts(),
			KPIRepo: store.KPIs(), TeamRepo: store.Teams(),
		}},
		Members:     &controller.MemberController{UserService: users},
		Auth:        identity.Middleware(provider, users, logger),
		Metrics:     m,
		Gatherer:    reg,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	return &api{t: t, store: store, handler: h, objects: objects, teamID: team.ID}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type campaignJSON struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	AllowedActions []string `json:"allowed_actions"`
	Versions       []struct {
		VersionNumber int `json:"version_number"`
	} `json:"versions"`
	Approvals []struct {
		Status string `json:"status"`
	} `json:"approvals"`
}

func TestRouter_HealthAndAuth(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = a.do(http.MethodGet, "/campaigns", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/campaigns", "tok-expired", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodGet, "/api/auth/me", reviewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[identity.Principal](t, w)
	assert.Equal(t, "member-reviewer", me.MemberID)
	assert.Contains(t, me.Roles, "compliance")
}

func TestRouter_CampaignLifecycle(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/campaigns", authorToken, map[string]any{
		"name": "Autumn launch", "team_id": a.teamID, "content": "Meet the new clip editor",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[campaignJSON](t, w)
	assert.Equal(t, "draft", created.Status)
	assert.Equal(t, []string{"submit"}, created.AllowedActions)

	w = a.do(http.MethodPost, "/campaigns/"+created.ID+"/deploy", authorToken, map[string]any{"platforms": []string{"linkedin"}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/campaigns/"+created.ID+"/submit", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/campaigns/"+created.ID+"/approvals", authorToken, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code, "plain members cannot approve")

	w = a.do(http.MethodGet, "/approvals/pending", reviewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending := decode[struct {
		Data []campaignJSON `json:"data"`
	}](t, w)
	require.Len(t, pending.Data, 1)

	w = a.do(http.MethodPost, "/campaigns/"+created.ID+"/approvals", reviewerToken, map[string]any{"status": "approved", "comments": "ship it"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/campaigns/"+created.ID+"/deploy", authorToken, map[string]any{
		"platforms": []string{"linkedin", "TikTok"}, "caption": "Out now",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deployed := decode[service.DeployResult](t, w)
	assert.Equal(t, "published", deployed.Status)
	require.Len(t, deployed.Posts, 2)
	assert.Equal(t, "mock_tiktok_1775122200000", deployed.Posts[1].ExternalPostID)

	w = a.do(http.MethodGet, "/campaigns/"+created.ID, reviewerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	details := decode[campaignJSON](t, w)
	assert.Equal(t, "published", details.Status)
	assert.Empty(t, details.AllowedActions)
	require.Len(t, details.Approvals, 1)
	assert.Equal(t, "approved", details.Approvals[0].Status)

	w = a.do(http.MethodGet, "/dashboard/stats", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[service.DashboardStats](t, w)
	assert.Equal(t, 1, stats.PublishedCampaigns)
	assert.Equal(t, 2, stats.TotalPosts)
	assert.Equal(t, 1, stats.ApprovedCount)

	w = a.do(http.MethodGet, "/analytics", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"linkedin":1`)
}

func TestRouter_CampaignErrors(t *testing.T) {
	a := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"malformed id", http.MethodGet, "/campaigns/42", authorToken, nil, http.StatusBadRequest},
		{"unknown campaign", http.MethodGet, "/campaigns/0b8e1a52-7c55-4a40-9d5e-0c2b5f0b5a11", authorToken, nil, http.StatusNotFound},
		{"malformed team", http.MethodPost, "/campaigns", authorToken, map[string]any{"name": "x", "team_id": "team-1"}, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/campaigns", authorToken, map[string]any{"team_id": a.teamID}, http.StatusBadRequest},
		{"outsider", http.MethodPost, "/campaigns", outsiderToken, map[string]any{"name": "x", "team_id": a.teamID}, http.StatusForbidden},
		{"pending needs approver", http.MethodGet, "/approvals/pending", authorToken, nil, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestRouter_ListCampaignsPaginates(t *testing.T) {
	a := newAPI(t)
	for _, name := range []string{"one", "two", "three"} {
		w := a.do(http.MethodPost, "/campaigns", authorToken, map[string]any{"name": name, "team_id": a.teamID})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := a.do(http.MethodGet, "/campaigns?page=2&page_size=2&team_id="+a.teamID, authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Data       []campaignJSON     `json:"data"`
		Pagination service.Pagination `json:"pagination"`
	}](t, w)
	assert.Len(t, body.Data, 1)
	assert.Equal(t, service.Pagination{Page: 2, PageSize: 2, TotalCount: 3, TotalPages: 2}, body.Pagination)
}

func TestRouter_Templates(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/templates", authorToken, map[string]any{
		"team_id": a.teamID, "name": "Teaser", "template_text": "Say hi to {audience} about {product}",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tmpl := decode[model.PromptTemplate](t, w)

	w = a.do(http.MethodPost, "/templates/"+tmpl.ID+"/preview", reviewerToken, map[string]any{
		"variables": map[string]string{"audience": "editors"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	preview := decode[service.TemplatePreview](t, w)
	assert.Equal(t, "Say hi to editors about {product}", preview.Rendered)
	assert.Equal(t, []string{"product"}, preview.Missing)

	w = a.do(http.MethodGet, "/templates?team_id="+a.teamID, outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_Teams(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodPost, "/teams", outsiderToken, map[string]any{"name": "Legal"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	team := decode[model.Team](t, w)
	assert.Equal(t, "org-1", team.OrganizationID)

	w = a.do(http.MethodGet, "/teams", outsiderToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Legal")
	assert.NotContains(t, w.Body.String(), "Brand")
}

func (a *api) upload(token, teamID, filename, contentType, content string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(a.t, mw.WriteField("team_id", teamID))
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(a.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/assets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: identity.SessionCookie, Value: token})
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func TestRouter_Assets(t *testing.T) {
	a := newAPI(t)

	w := a.upload(authorToken, a.teamID, "hero shot.png", "image/png", "png-bytes")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	asset := decode[model.Asset](t, w)
	assert.Equal(t, model.AssetImage, asset.Type)
	assert.Equal(t, int64(len("png-bytes")), asset.Metadata.Size)
	assert.Equal(t, []string{a.teamID + "/1775122200000-hero_shot.png"}, a.objects.keys)

	w = a.upload(authorToken, a.teamID, "voiceover.mp3", "audio/mpeg", "mp3")
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.do(http.MethodGet, "/assets?team_id="+a.teamID+"&q=HERO", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[struct {
		Assets    []model.Asset `json:"assets"`
		TotalSize int64         `json:"total_size"`
	}](t, w)
	require.Len(t, listed.Assets, 1)
	assert.Equal(t, asset.ID, listed.Assets[0].ID)

	w = a.do(http.MethodGet, "/assets?team_id="+a.teamID+"&type=spreadsheet", authorToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.upload(outsiderToken, a.teamID, "x.png", "image/png", "x")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.upload(authorToken, a.teamID, "huge.mp4", "video/mp4", strings.Repeat("v", 8<<10))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, a.objects.keys, 2)

	w = a.do(http.MethodDelete, "/assets/"+asset.ID, authorToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodDelete, "/assets/"+asset.ID, authorToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Members(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/api/auth/members", authorToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decode[service.OrganizationMembers](t, w)
	assert.Equal(t, "org-1", members.Organization.OrganizationID)
	assert.Len(t, members.Members, 3)

	w = a.do(http.MethodPut, "/api/auth/members", authorToken, map[string]any{"member_id": "member-reviewer", "roles": []string{"approver"}})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[struct {
		Success bool            `json:"success"`
		Member  identity.Member `json:"member"`
	}](t, w)
	assert.True(t, updated.Success)
	assert.Equal(t, "member-reviewer", updated.Member.MemberID)

	w = a.do(http.MethodPost, "/api/auth/invite", authorToken, map[string]any{
		"email":              "new@example.com",
		"organization_id":    "org-1",
		"untrusted_metadata": map[string]any{"roles": []string{"member"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"member_id":"member-invited","request_id":"org-1:new@example.com"}`, w.Body.String())

	w = a.do(http.MethodPost, "/api/auth/invite", authorToken, map[string]any{"email": "solo@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"request_id":"org-1:solo@example.com"`)

	w = a.do(http.MethodPost, "/api/auth/invite", authorToken, map[string]any{"email": "x@example.com", "organization_id": "org-2"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/api/auth/invite", authorToken, map[string]any{"email": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Metrics(t *testing.T) {
	a := newAPI(t)
	a.do(http.MethodGet, "/health", "", nil)

	w := a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/health"`)
}
