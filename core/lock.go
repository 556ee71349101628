package core

import (
	"context"

	"github.com/pkg/errors"
)

// ErrLocked is returned by a Locker when the key is held by someone else.
var ErrLocked = errors.New("lock is held")

// Locker provides non-blocking mutual exclusion on string keys.
type Locker interface {
	// TryLock acquires key or fails immediately with ErrLocked.
	// The returned func releases the lock; it is safe to call more than once.
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}
