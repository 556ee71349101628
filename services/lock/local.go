package locksvc

import (
	"context"
	"sync"

	"github.com/Nanikworkforce/TET-Bloom/core"
)

// LocalLocker holds locks in process memory. It only serialises callers sharing the same instance.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ core.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) TryLock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, core.ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
