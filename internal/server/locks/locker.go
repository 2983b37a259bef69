// Package locks provides per-key mutual exclusion used to serialize the
// read-mutate-write sequence on a single user record.
package locks

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a lock could not be acquired in time.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker acquires an exclusive lock on key, blocking until it is held,
// ctx is done, or the implementation gives up with ErrLockTimeout.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}
