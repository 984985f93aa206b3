package identity

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"time"

	"github.com/coocood/freecache"
	"go.uber.org/zap"
)

// minCacheSize is the smallest size freecache accepts.
const minCacheSize = 512 * 1024

// CachedProvider remembers successful session authentications for a few
// seconds so that every API request does not call the provider. Failures are
// never cached. An entry never outlives the session's expires_at, but a
// session revoked at the provider stays usable until its entry expires.
// Member management calls pass straight through.
type CachedProvider struct {
	Provider
	cache      *freecache.Cache
	ttlSeconds int
	logger     *zap.Logger
	now        func() time.Time
}

func NewCachedProvider(p Provider, sizeBytes, ttlSeconds int, logger *zap.Logger) *CachedProvider {
	if sizeBytes < minCacheSize {
		sizeBytes = minCacheSize
	}
	return &CachedProvider{
		Provider:   p,
		cache:      freecache.NewCache(sizeBytes),
		ttlSeconds: ttlSeconds,
		logger:     logger,
		now:        time.Now,
	}
}

// cacheKey hashes the token so raw session tokens are not kept in memory.
func cacheKey(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

func (c *CachedProvider) Authenticate(ctx context.Context, sessionToken string) (*Session, error) {
	key := cacheKey(sessionToken)
	if data, err := c.cache.Get(key); err == nil {
		var s Session
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
	}

	s, err := c.Provider.Authenticate(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	ttl := c.ttl(s)
	if ttl <= 0 {
		return s, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return s, nil
	}
	if err := c.cache.Set(key, data, ttl); err != nil {
		c.logger.Debug("session not cached", zap.Error(err))
	}
	return s, nil
}

// ttl caps the configured lifetime at the session's remaining time.
func (c *CachedProvider) ttl(s *Session) int {
	ttl := c.ttlSeconds
	if expires := s.MemberSession.ExpiresAt; !expires.IsZero() {
		if left := int(expires.Sub(c.now()) / time.Second); left < ttl {
			ttl = left
		}
	}
	return ttl
}

var _ Provider = (*CachedProvider)(nil)
