package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed named locking.
type LockStoreInterface interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, name, token string) (bool, error)
	IsLocked(ctx context.Context, name string) (bool, error)
}

// Ensure concrete types implement interfaces.
var _ LockStoreInterface = (*LockStore)(nil)
