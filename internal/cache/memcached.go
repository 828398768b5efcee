package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const (
	keyPrefix = "climate:view:"

	// memcached reads expirations above 30 days as absolute unix times.
	maxRelativeExpiration = 30 * 24 * time.Hour
	fallbackExpiration    = time.Hour
)

// MemcachedCache stores rendered views in memcached so dashboard replicas
// share them.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache connects lazily to the comma-separated addrs.
// Zero timeout or maxIdleConns keeps the client defaults.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	sl := new(memcache.ServerList)
	if err := sl.SetServers(servers...); err != nil {
		return nil, fmt.Errorf("memcached servers %q: %w", addrs, err)
	}
	client := memcache.NewFromSelector(sl)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// key hashes k: line view keys carry country names with spaces and commas.
func (c *MemcachedCache) key(k string) string {
	sum := sha256.Sum256([]byte(k))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// expiration converts ttl to memcached seconds, falling back to an hour when
// ttl is unset or too long to be relative.
func expiration(ttl time.Duration) int32 {
	if ttl < time.Second || ttl > maxRelativeExpiration {
		ttl = fallbackExpiration
	}
	return int32(ttl / time.Second)
}

// Get returns the rendered view stored under key. A miss is (nil, false, nil).
func (c *MemcachedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	item, err := c.client.Get(c.key(key))
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("memcached get %s: %w", key, err)
	}
	return item.Value, true, nil
}

// Set stores a rendered view under key for ttl.
func (c *MemcachedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.client.Set(&memcache.Item{Key: c.key(key), Value: value, Expiration: expiration(ttl)})
	if err != nil {
		return fmt.Errorf("memcached set %s: %w", key, err)
	}
	return nil
}

// Ping reports whether every configured server answers.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close releases idle connections.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
