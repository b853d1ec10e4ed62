// Package lock serializes outreach runs per sending account and per campaign.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// Locker grants exclusive use of a named resource. Lock blocks until the key
// is free or ctx is done. The returned release func may be called more than
// once; only the first call has an effect.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

func AccountKey(accountID int) string {
	return fmt.Sprintf("account:%d", accountID)
}

func CampaignKey(campaignID int) string {
	return fmt.Sprintf("campaign:%d", campaignID)
}

// LocalLocker serializes runs inside a single process.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ Locker = (*LocalLocker)(nil)
