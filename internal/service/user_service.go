package service

import (
	"context"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/identity"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/repository"
)

// UserService mirrors identity provider members into the users table and
// proxies organization member management.
type UserService struct {
	UserRepo repository.UserRepositoryInterface
	Identity identity.Provider
	Logger   *zap.Logger
}

// Bind upserts the session's member and appends the application role to the
// provider roles.
func (s *UserService) Bind(ctx context.Context, session *identity.Session) (identity.Principal, error) {
	p := session.Principal()
	u := &model.User{ID: p.MemberID, Email: p.Email, Name: p.Name}
	if err := s.UserRepo.Upsert(ctx, u); err != nil {
		return identity.Principal{}, err
	}
	if u.Role != "" {
		p.Roles = append(p.Roles, u.Role)
	}
	return p, nil
}

type OrganizationMembers struct {
	Members      []identity.Member     `json:"members"`
	Organization identity.Organization `json:"organization"`
}

func (s *UserService) ListMembers(ctx context.Context, p identity.Principal) (*OrganizationMembers, error) {
	if p.OrganizationID == "" {
		return nil, appErrors.NewValidation("organization", "no organization found")
	}
	members, err := s.Identity.SearchMembers(ctx, p.OrganizationID)
	if err != nil {
		return nil, err
	}
	return &OrganizationMembers{
		Members:      members,
		Organization: identity.Organization{OrganizationID: p.OrganizationID},
	}, nil
}

func (s *UserService) UpdateRoles(ctx context.Context, p identity.Principal, memberID string, roles []string) (*identity.Member, error) {
	if p.OrganizationID == "" {
		return nil, appErrors.NewValidation("organization", "no organization found")
	}
	if roles == nil {
		roles = []string{}
	}
	m, err := s.Identity.UpdateMemberRoles(ctx, p.OrganizationID, memberID, roles)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("member roles updated",
			zap.String("member_id", memberID), zap.Strings("roles", roles), zap.String("by", p.MemberID))
	}
	return m, nil
}

// Invite sends a magic-link invitation into the caller's organization. An
// explicit organization must match the caller's.
func (s *UserService) Invite(ctx context.Context, p identity.Principal, in identity.Invite) (*identity.InviteResult, error) {
	if p.OrganizationID == "" {
		return nil, appErrors.NewValidation("organization", "no organization found")
	}
	if in.OrganizationID != "" && in.OrganizationID != p.OrganizationID {
		return nil, appErrors.NewForbidden(p.MemberID, "invite into organization "+in.OrganizationID)
	}
	in.OrganizationID = p.OrganizationID
	if in.UntrustedMetadata == nil {
		in.UntrustedMetadata = map[string]any{}
	}
	res, err := s.Identity.InviteMember(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("member invited", zap.String("member_id", res.MemberID), zap.String("by", p.MemberID))
	}
	return res, nil
}

var _ identity.Binder = (*UserService)(nil)
