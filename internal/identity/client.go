// Package identity binds requests to members of the B2B identity provider
// (Stytch). It talks to the provider's REST API directly.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/unclebandit/clippilot-backend/internal/config"
	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
)

// Principal is the authenticated member behind a session.
type Principal struct {
	MemberID       string   `json:"member_id"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	OrganizationID string   `json:"organization_id"`
	Roles          []string `json:"roles"`
}

type Member struct {
	MemberID       string       `json:"member_id"`
	OrganizationID string       `json:"organization_id"`
	EmailAddress   string       `json:"email_address"`
	Name           string       `json:"name"`
	Status         string       `json:"status"`
	Roles          []MemberRole `json:"roles"`
}

type MemberRole struct {
	RoleID string `json:"role_id"`
}

func (m Member) RoleIDs() []string {
	out := make([]string, 0, len(m.Roles))
	for _, r := range m.Roles {
		out = append(out, r.RoleID)
	}
	return out
}

type Organization struct {
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	OrganizationSlug string `json:"organization_slug"`
}

// MemberSession is the provider's view of the session itself.
type MemberSession struct {
	MemberSessionID string    `json:"member_session_id"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type Session struct {
	Member        Member        `json:"member"`
	Organization  Organization  `json:"organization"`
	MemberSession MemberSession `json:"member_session"`
}

func (s Session) Principal() Principal {
	return Principal{
		MemberID:       s.Member.MemberID,
		Email:          s.Member.EmailAddress,
		Name:           s.Member.Name,
		OrganizationID: s.Organization.OrganizationID,
		Roles:          s.Member.RoleIDs(),
	}
}

type Invite struct {
	OrganizationID    string         `json:"organization_id"`
	EmailAddress      string         `json:"email_address"`
	UntrustedMetadata map[string]any `json:"untrusted_metadata,omitempty"`
}

type InviteResult struct {
	MemberID  string `json:"member_id"`
	RequestID string `json:"request_id"`
}

// Provider is what the HTTP layer needs from the identity provider.
type Provider interface {
	Authenticate(ctx context.Context, sessionToken string) (*Session, error)
	SearchMembers(ctx context.Context, organizationID string) ([]Member, error)
	UpdateMemberRoles(ctx context.Context, organizationID, memberID string, roles []string) (*Member, error)
	InviteMember(ctx context.Context, in Invite) (*InviteResult, error)
}

// Client calls the Stytch B2B API with basic auth.
type Client struct {
	baseURL   string
	projectID string
	secret    string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewClient(conf config.IdentityConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(conf.APIURL, "/"),
		projectID: conf.ProjectID,
		secret:    conf.Secret,
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(50), 10),
		logger:    logger,
	}
}

// apiError is the provider's error body.
type apiError struct {
	StatusCode   int    `json:"status_code"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("identity provider %d %s: %s", e.StatusCode, e.ErrorType, e.ErrorMessage)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.projectID, c.secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request: %w", err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &apiError{StatusCode: res.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		c.logger.Warn("identity provider error",
			zap.String("path", path), zap.Int("status", res.StatusCode), zap.String("type", apiErr.ErrorType))
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode identity response: %w", err)
	}
	return nil
}

// Authenticate validates a session token. Invalid or expired sessions
// produce ErrUnauthorized.
func (c *Client) Authenticate(ctx context.Context, sessionToken string) (*Session, error) {
	if sessionToken == "" {
		return nil, appErrors.NewUnauthorized("missing session")
	}
	var out Session
	err := c.do(ctx, http.MethodPost, "/v1/b2b/sessions/authenticate",
		map[string]string{"session_token": sessionToken}, &out)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return nil, appErrors.NewUnauthorized("invalid session")
		}
		return nil, err
	}
	if out.Member.MemberID == "" || out.Organization.OrganizationID == "" {
		return nil, appErrors.NewUnauthorized("session has no member")
	}
	return &out, nil
}

func (c *Client) SearchMembers(ctx context.Context, organizationID string) ([]Member, error) {
	var out struct {
		Members []Member `json:"members"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/b2b/organizations/members/search",
		map[string][]string{"organization_ids": {organizationID}}, &out)
	if err != nil {
		return nil, err
	}
	if out.Members == nil {
		out.Members = []Member{}
	}
	return out.Members, nil
}

func (c *Client) UpdateMemberRoles(ctx context.Context, organizationID, memberID string, roles []string) (*Member, error) {
	if memberID == "" {
		return nil, appErrors.NewValidation("member_id", "is required")
	}
	var out struct {
		Member Member `json:"member"`
	}
	path := "/v1/b2b/organizations/" + url.PathEscape(organizationID) + "/members/" + url.PathEscape(memberID)
	if err := c.do(ctx, http.MethodPut, path, map[string][]string{"roles": roles}, &out); err != nil {
		return nil, err
	}
	return &out.Member, nil
}

func (c *Client) InviteMember(ctx context.Context, in Invite) (*InviteResult, error) {
	if strings.TrimSpace(in.EmailAddress) == "" {
		return nil, appErrors.NewValidation("email", "is required")
	}
	var out InviteResult
	if err := c.do(ctx, http.MethodPost, "/v1/b2b/magic_links/email/invite", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var _ Provider = (*Client)(nil)
