// Package lock provides short leases that keep two scheduler processes from
// running the same tick at once.
package lock

import (
	"context"
	"sync"
	"time"
)

// Release gives a lease back early. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker hands out expiring leases by key.
type Locker interface {
	// Acquire returns ok=false without error when the key is held elsewhere.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release Release, ok bool, err error)
}

// Local is an in-process Locker.
type Local struct {
	mu     sync.Mutex
	now    func() time.Time
	leases map[string]localLease
	seq    uint64
}

type localLease struct {
	id      uint64
	expires time.Time
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{now: time.Now, leases: make(map[string]localLease)}
}

// Acquire takes key unless an unexpired lease exists.
func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (Release, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, held := l.leases[key]; held && now.Before(cur.expires) {
		return nil, false, nil
	}
	l.seq++
	id := l.seq
	l.leases[key] = localLease{id: id, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, held := l.leases[key]; held && cur.id == id {
			delete(l.leases, key)
		}
		return nil
	}, true, nil
}
