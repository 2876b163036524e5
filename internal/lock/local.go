package lock

import (
	"context"
	"sync"
)

// LocalGuard is an in-process Guard used when no Redis is configured.
type LocalGuard struct {
	mu sync.Mutex
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{}
}

func (g *LocalGuard) TryAcquire(context.Context) (Release, bool, error) {
	if !g.mu.TryLock() {
		return nil, false, nil
	}

	var once sync.Once
	release := func(context.Context) error {
		once.Do(g.mu.Unlock)
		return nil
	}
	return release, true, nil
}
