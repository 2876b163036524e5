// Package lock provides single-flight guards for background jobs that must
// not run concurrently, across processes (Redis) or within one (LocalGuard).
package lock

import (
	"context"
	"errors"
)

// ErrNotHeld is returned by a release func when the lease was lost, for
// example because its TTL expired and another owner took the key.
var ErrNotHeld = errors.New("lock not held")

// Release gives a lease back. It is safe to call once.
type Release func(ctx context.Context) error

// Guard grants at most one lease at a time.
type Guard interface {
	// TryAcquire never blocks waiting for the lease: ok is false when
	// another owner holds it.
	TryAcquire(ctx context.Context) (release Release, ok bool, err error)
}
