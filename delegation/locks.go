package delegation

import (
	"context"
	"sync"
)

// senderLocks allows one in-flight attempt per sender. Waiting honours context cancellation.
type senderLocks struct {
	lock  sync.Mutex
	slots map[string]chan struct{}
}

func newSenderLocks() *senderLocks {
	return &senderLocks{
		slots: make(map[string]chan struct{}),
	}
}

func (l *senderLocks) slot(sender string) chan struct{} {
	l.lock.Lock()
	defer l.lock.Unlock()

	slot, found := l.slots[sender]
	if !found {
		slot = make(chan struct{}, 1)
		l.slots[sender] = slot
	}
	return slot
}

// acquire blocks until the sender is free, and returns a func that frees it.
func (l *senderLocks) acquire(ctx context.Context, sender string) (func(), error) {
	slot := l.slot(sender)

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
