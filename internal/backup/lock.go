package backup

import (
	"sync"
	"time"
)

// MaintenanceLock serializes maintenance operations that must not overlap.
// Snapshot creation and restore share a single lock instance so at most
// one of them touches the live store at a time. The lock never blocks;
// contenders get an ALREADY_IN_PROGRESS error naming the current holder.
type MaintenanceLock struct {
	mu         sync.Mutex
	held       bool
	holder     string
	acquiredAt time.Time
}

// NewMaintenanceLock creates an unheld maintenance lock
func NewMaintenanceLock() *MaintenanceLock {
	return &MaintenanceLock{}
}

// TryAcquire attempts to take the lock on behalf of holder. When the lock
// is already held it returns an error carrying the current holder identity
// and acquisition time.
func (l *MaintenanceLock) TryAcquire(holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held {
		return NewInProgressError(l.holder, l.acquiredAt)
	}

	l.held = true
	l.holder = holder
	l.acquiredAt = time.Now().UTC()
	return nil
}

// Release frees the lock. Releasing an unheld lock is a no-op.
func (l *MaintenanceLock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.held = false
	l.holder = ""
	l.acquiredAt = time.Time{}
}

// Holder reports the current holder identity and acquisition time
func (l *MaintenanceLock) Holder() (holder string, since time.Time, held bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.holder, l.acquiredAt, l.held
}

// HeldLongerThan reports whether the lock has been held continuously for
// longer than d. Long holds are logged, never force-released.
func (l *MaintenanceLock) HeldLongerThan(d time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return false
	}
	return time.Since(l.acquiredAt) > d
}
