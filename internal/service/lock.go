package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"vipps/internal/redis"
)

const (
	lockRetryAttempts = 10
	lockRetryInterval = 200 * time.Millisecond

	// Safety TTL; a reconciliation pass holds the lock far shorter than this,
	// but a crashed holder must not wedge the order forever.
	lockTTL = 60 * time.Second
)

func placeOrderLockName(reservedOrderID string) string {
	return "place_order:" + reservedOrderID
}

// LockManager provides cluster-wide named mutual exclusion with bounded wait.
// The underlying store supports a single bounded attempt per call; the
// manager layers the retry loop on top so each miss can be logged.
type LockManager struct {
	store redis.LockStoreInterface
}

// NewLockManager creates a new LockManager.
func NewLockManager(store redis.LockStoreInterface) *LockManager {
	return &LockManager{store: store}
}

// Lock is a held named lock. Release is safe to call once per acquisition.
type Lock struct {
	name  string
	token string
	store redis.LockStoreInterface
}

// Acquire takes the named lock, retrying up to 10 times at 200ms intervals.
// Exhausting the retries returns ErrAcquireLockFailed.
func (m *LockManager) Acquire(ctx context.Context, name string) (*Lock, error) {
	for attempt := 1; attempt <= lockRetryAttempts; attempt++ {
		token, acquired, err := m.store.Acquire(ctx, name, lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if acquired {
			return &Lock{name: name, token: token, store: m.store}, nil
		}

		if attempt < lockRetryAttempts {
			log.Printf("lock %s busy, retrying (%d/%d)", name, attempt, lockRetryAttempts)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(lockRetryInterval):
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrAcquireLockFailed, name)
}

// IsLocked reports whether the named lock is currently held.
func (m *LockManager) IsLocked(ctx context.Context, name string) (bool, error) {
	return m.store.IsLocked(ctx, name)
}

// Release releases the lock. Failures are logged, not returned: the TTL
// bounds the damage and release runs in cleanup paths that must not mask the
// original error.
func (l *Lock) Release(ctx context.Context) {
	released, err := l.store.Release(ctx, l.name, l.token)
	if err != nil {
		log.Printf("release lock %s: %v", l.name, err)
		return
	}
	if !released {
		log.Printf("lock %s expired before release", l.name)
	}
}
