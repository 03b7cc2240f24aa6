// Package lock provides the per-show critical section used while seats are
// claimed or released.  RedisLocker coordinates every replica of the
// service; LocalLocker serializes callers within one process and is used
// when Redis is not configured.
package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotAcquired is returned when the lock stays held by someone else for
// every retry attempt.
var ErrNotAcquired = errors.New("lock not acquired")

// ShowKey names the lock guarding a show's occupancy.
func ShowKey(showID uint64) string {
	return fmt.Sprintf("lock:show:%d", showID)
}

// Locker acquires a named mutual-exclusion lock.  The returned function
// releases it and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
