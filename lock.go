package pushbuf

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DeviceLock arbitrates exclusive use of a device between channels.
//
// Channels created WithLock refuse to Fire unless the lock is held. The
// lock does not track which goroutine holds it: any holder of the Guard
// may release it.
//
// Example:
//
//	guard, err := lock.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer guard.Release()
//	ctx3d.Draw(...)
//	return ch.Fire(ctx)
type DeviceLock struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

// NewDeviceLock creates an unlocked device lock.
func NewDeviceLock() *DeviceLock {
	return &DeviceLock{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *DeviceLock) Acquire(ctx context.Context) (*Guard, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.held.Store(true)
	return &Guard{lock: l}, nil
}

// TryAcquire takes the lock if it is free.
func (l *DeviceLock) TryAcquire() (*Guard, bool) {
	if !l.sem.TryAcquire(1) {
		return nil, false
	}
	l.held.Store(true)
	return &Guard{lock: l}, true
}

// Held reports whether the lock is currently held by anyone.
func (l *DeviceLock) Held() bool { return l.held.Load() }

// Guard represents one acquisition of a DeviceLock.
type Guard struct {
	lock *DeviceLock
	once sync.Once
}

// Release gives the lock back. Extra calls are no-ops.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.lock.held.Store(false)
		g.lock.sem.Release(1)
	})
}
