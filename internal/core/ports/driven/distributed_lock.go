package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances. The sweeper uses it
// to avoid duplicate sweep cycles in multi-instance deployments; sweeping
// stays correct without it, the lock only reduces noise.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if acquired, false if already held by another instance.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Best-effort; TTL-based
	// implementations auto-expire anyway. Safe to call when not held.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock. Not all
	// implementations support it (PostgreSQL advisory locks are a no-op).
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
