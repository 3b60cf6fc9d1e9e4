package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"nixbot/internal/redis"
)

const revokedKeyPrefix = "nixbot:revoked:"

type denylist interface {
	add(ctx context.Context, jti string, ttl time.Duration) error
	contains(ctx context.Context, jti string) (bool, error)
}

// redisDenylist shares revocations between instances.
type redisDenylist struct {
	client *redis.Client
}

func (d *redisDenylist) add(ctx context.Context, jti string, ttl time.Duration) error {
	return d.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl)
}

func (d *redisDenylist) contains(ctx context.Context, jti string) (bool, error) {
	ok, err := d.client.Exists(ctx, revokedKeyPrefix+jti)
	if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		return false, err
	}
	return ok, nil
}

type memoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func newMemoryDenylist() *memoryDenylist {
	return &memoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

func (d *memoryDenylist) add(_ context.Context, jti string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, until := range d.entries {
		if now.After(until) {
			delete(d.entries, id)
		}
	}
	d.entries[jti] = now.Add(ttl)
	return nil
}

func (d *memoryDenylist) contains(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.entries[jti]
	return ok && d.now().Before(until), nil
}
