package collector

import (
	"context"
	"sync"
	"time"
)

// TokenCache holds one access token with an explicit expiry. Concurrent
// callers share a single issuance.
type TokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenCache creates a cache that keeps tokens for ttl.
func NewTokenCache(ttl time.Duration) *TokenCache {
	return &TokenCache{ttl: ttl, now: time.Now}
}

// Get returns the cached token, calling issue when it is missing or expired.
// Issue errors are returned and not cached.
func (c *TokenCache) Get(ctx context.Context, issue func(context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}
	token, err := issue(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiresAt = c.now().Add(c.ttl)
	return token, nil
}

// Invalidate drops the cached token, e.g. after the API rejected it.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// ExpiresAt reports when the cached token expires; zero when empty.
func (c *TokenCache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}
