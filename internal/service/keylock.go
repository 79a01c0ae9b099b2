package service

import (
	"context"
	"sync"
	"time"

	apperrors "promovote/pkg/errors"
)

// keyedLock serializes mutations per lock key with a bounded acquisition
// wait. Each key gets a single-slot channel; slots are dropped as soon as the
// last waiter releases so the map does not grow with the vote history.
type keyedLock struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newKeyedLock() *keyedLock {
	return &keyedLock{slots: make(map[string]*lockSlot)}
}

// acquire blocks until the key's slot is free, the wait bound elapses, or ctx
// is cancelled. On success it returns a release func that must be called on
// every exit path.
func (l *keyedLock) acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-slot.ch
				l.unref(key, slot)
			})
		}
		return release, nil
	case <-timer.C:
		l.unref(key, slot)
		return nil, apperrors.NewLockTimeoutError("could not acquire voting lock within wait bound")
	case <-ctx.Done():
		l.unref(key, slot)
		return nil, apperrors.NewInternalError("request cancelled while waiting for voting lock", ctx.Err())
	}
}

func (l *keyedLock) unref(key string, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}
