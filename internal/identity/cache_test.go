package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
)

type countingProvider struct {
	Provider
	calls     int
	expiresAt time.Time
}

func (p *countingProvider) Authenticate(ctx context.Context, token string) (*Session, error) {
	p.calls++
	if token != "good" {
		return nil, appErrors.NewUnauthorized("session not found")
	}
	return &Session{
		Member:        Member{MemberID: "member-1", Roles: []MemberRole{{RoleID: "stytch_admin"}}},
		Organization:  Organization{OrganizationID: "org-1"},
		MemberSession: MemberSession{ExpiresAt: p.expiresAt},
	}, nil
}

func TestCachedProvider_ReusesSuccessfulSessions(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, 0, 60, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := p.Authenticate(ctx, "good")
		require.NoError(t, err)
		assert.Equal(t, "member-1", s.Member.MemberID)
		assert.Equal(t, []string{"stytch_admin"}, s.Principal().Roles)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := p.Authenticate(ctx, "bad")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_DoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachedProvider(inner, 0, 60, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := p.Authenticate(context.Background(), "bad")
		var unauth *appErrors.ErrUnauthorized
		assert.ErrorAs(t, err, &unauth)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_EntryEndsWithSession(t *testing.T) {
	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	inner := &countingProvider{expiresAt: clock.Add(20 * time.Second)}
	p := NewCachedProvider(inner, 0, 60, zap.NewNop())
	p.now = func() time.Time { return clock }

	_, err := p.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	ttl, err := p.cache.TTL(cacheKey("good"))
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, uint32(20))
	assert.Greater(t, ttl, uint32(0))
}

func TestCachedProvider_SkipsExpiringSessions(t *testing.T) {
	clock := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	inner := &countingProvider{expiresAt: clock.Add(500 * time.Millisecond)}
	p := NewCachedProvider(inner, 0, 60, zap.NewNop())
	p.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		s, err := p.Authenticate(context.Background(), "good")
		require.NoError(t, err)
		assert.Equal(t, "member-1", s.Member.MemberID)
	}
	assert.Equal(t, 2, inner.calls)
}
