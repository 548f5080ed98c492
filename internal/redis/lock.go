package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed named locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// releaseScript deletes the lock only when still held by the given token, so
// a slow holder cannot release a lock re-acquired by someone else after TTL
// expiry.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire attempts to take the named lock. Returns the holder token and true
// if the lock was acquired, or false if already held elsewhere. This is a
// single bounded attempt; callers layer their own retry loop on top.
func (s *LockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, "lock:"+name, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release releases the named lock if still held by token. Returns true if the
// lock was released by this call.
func (s *LockStore) Release(ctx context.Context, name, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{"lock:" + name}, token).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IsLocked reports whether the named lock is currently held.
func (s *LockStore) IsLocked(ctx context.Context, name string) (bool, error) {
	n, err := s.client.Exists(ctx, "lock:"+name).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
